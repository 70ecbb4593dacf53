package resolve

import (
	"github.com/oxyzenQ/zenlixem/internal/proc"
	"github.com/oxyzenQ/zenlixem/internal/sockets"
	"github.com/oxyzenQ/zenlixem/pkg/model"
)

// inspection is what one worker learned about one process.
type inspection struct {
	evidence []model.HolderEvidence
	denied   bool
	vanished bool
	issue    *Issue
}

func (in *inspection) add(snap model.ProcessSnapshot, d model.Descriptor, sock *model.SocketEntry) {
	in.evidence = append(in.evidence, model.HolderEvidence{
		PID:        snap.PID,
		Command:    snap.Command,
		Descriptor: d,
		Confirmed:  true,
		Socket:     sock,
	})
}

func failed(pid int, err error) inspection {
	issue := issueFor(pid, err)
	return inspection{issue: &issue}
}

var singleLinks = []struct {
	name string
	kind model.DescriptorType
}{
	{"cwd", model.DescriptorCwd},
	{"root", model.DescriptorRoot},
	{"exe", model.DescriptorExe},
}

// inspectFile checks descriptors, cwd, root, exe and memory mappings of one
// process against a device/inode pair. Descriptors are stat'ed through
// /proc/<pid>/fd/<n>, never through the link text.
func inspectFile(src Source, snap model.ProcessSnapshot, id proc.FileID) inspection {
	var in inspection
	pid := snap.PID
	// an ENOENT on a single entry is either a closed descriptor, a kernel
	// thread without exe, or the whole process exiting; Alive decides at
	// the end
	sawGone := false

	fds, vanished, err := src.FDs(pid)
	switch {
	case err == nil:
		sawGone = vanished
		for _, fd := range fds {
			if !proc.IsPathLink(fd.Link) {
				continue
			}
			got, err := src.StatFD(pid, fd.Num)
			if err != nil {
				switch {
				case proc.IsGone(err):
					sawGone = true
				case proc.IsDenied(err):
					in.denied = true
				default:
					return failed(pid, err)
				}
				continue
			}
			if got == id {
				in.add(snap, model.FDDescriptor(fd.Num), nil)
			}
		}
	case proc.IsGone(err):
		return inspection{vanished: true}
	case proc.IsDenied(err):
		in.denied = true
	default:
		return failed(pid, err)
	}

	for _, l := range singleLinks {
		got, err := src.StatLink(pid, l.name)
		if err != nil {
			switch {
			case proc.IsGone(err):
				sawGone = true
			case proc.IsDenied(err):
				in.denied = true
			default:
				return failed(pid, err)
			}
			continue
		}
		if got == id {
			in.add(snap, model.Descriptor{Type: l.kind}, nil)
		}
	}

	maps, err := src.Maps(pid)
	switch {
	case err == nil:
		for _, m := range maps {
			if m.Matches(id) {
				in.add(snap, model.Descriptor{Type: model.DescriptorMmap}, nil)
				break
			}
		}
	case proc.IsGone(err):
		sawGone = true
	case proc.IsDenied(err):
		in.denied = true
	default:
		return failed(pid, err)
	}

	if sawGone && !src.Alive(pid) {
		return inspection{vanished: true}
	}
	return in
}

// inspectSockets attributes the sockets in table to the descriptors of one
// process. A process whose fd directory is unreadable is only marked denied;
// the aggregator decides whether its uid explains an unattributed socket.
func inspectSockets(src Source, snap model.ProcessSnapshot, table *sockets.Table) inspection {
	pid := snap.PID

	fds, vanished, err := src.FDs(pid)
	if err != nil {
		switch {
		case proc.IsGone(err):
			return inspection{vanished: true}
		case proc.IsDenied(err):
			return inspection{denied: true}
		default:
			return failed(pid, err)
		}
	}

	var in inspection
	for _, fd := range fds {
		inode, ok := proc.SocketInode(fd.Link)
		if !ok {
			continue
		}
		entry, ok := table.Lookup(inode)
		if !ok {
			continue
		}
		in.add(snap, model.FDDescriptor(fd.Num), &entry)
	}

	if vanished && !src.Alive(pid) {
		return inspection{vanished: true}
	}
	return in
}
