package resolve

import (
	"io"
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/oxyzenQ/zenlixem/internal/proc"
	"github.com/oxyzenQ/zenlixem/internal/sockets"
	"github.com/oxyzenQ/zenlixem/pkg/model"
)

// fakeProcess is one process of fakeSource. Zero values mean "nothing
// open"; unset single links return ENOENT like a kernel thread's exe.
type fakeProcess struct {
	snap     model.ProcessSnapshot
	snapErr  error
	fds      []proc.FD
	fdErr    error
	fdStat   map[int]proc.FileID
	fdErrs   map[int]error
	links    map[string]proc.FileID
	linkErrs map[string]error
	maps     []proc.MapEntry
	mapsErr  error
	exited   bool

	// descriptors are listed, then the process exits
	exitsMidScan bool

	// a descriptor closed while the fd directory was being read
	fdClosedMidList bool
}

// fakeSource implements Source for tests.
type fakeSource struct {
	procs   map[int]*fakeProcess
	tables  map[string]string
	pidsErr error

	// listed by PIDs but gone before Snapshot
	ghosts []int
}

func newFakeSource() *fakeSource {
	return &fakeSource{procs: make(map[int]*fakeProcess), tables: make(map[string]string)}
}

func (f *fakeSource) add(pid int, command string, uid uint32) *fakeProcess {
	p := &fakeProcess{
		snap:     model.ProcessSnapshot{PID: pid, PPID: 1, Command: command, UID: uid},
		fdStat:   make(map[int]proc.FileID),
		fdErrs:   make(map[int]error),
		links:    make(map[string]proc.FileID),
		linkErrs: make(map[string]error),
	}
	f.procs[pid] = p
	return p
}

func (p *fakeProcess) openFile(fd int, path string, id proc.FileID) *fakeProcess {
	p.fds = append(p.fds, proc.FD{Num: fd, Link: path})
	p.fdStat[fd] = id
	return p
}

func (p *fakeProcess) openLink(fd int, link string) *fakeProcess {
	p.fds = append(p.fds, proc.FD{Num: fd, Link: link})
	return p
}

func pathErr(op, path string, errno unix.Errno) error {
	return &fs.PathError{Op: op, Path: path, Err: errno}
}

func (f *fakeSource) PIDs() ([]int, error) {
	if f.pidsErr != nil {
		return nil, f.pidsErr
	}
	pids := append([]int(nil), f.ghosts...)
	for pid := range f.procs {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids, nil
}

func (f *fakeSource) get(pid int) (*fakeProcess, bool) {
	p, ok := f.procs[pid]
	if !ok || p.exited || p.exitsMidScan {
		return nil, false
	}
	return p, true
}

func (f *fakeSource) Snapshot(pid int) (model.ProcessSnapshot, error) {
	p, ok := f.procs[pid]
	if !ok {
		return model.ProcessSnapshot{}, pathErr("open", "/proc/status", unix.ENOENT)
	}
	if p.snapErr != nil {
		return model.ProcessSnapshot{}, p.snapErr
	}
	return p.snap, nil
}

func (f *fakeSource) FDs(pid int) ([]proc.FD, bool, error) {
	p, ok := f.procs[pid]
	if !ok || p.exited {
		return nil, false, pathErr("open", "/proc/fd", unix.ENOENT)
	}
	if p.fdErr != nil {
		return nil, false, p.fdErr
	}
	return p.fds, p.exitsMidScan || p.fdClosedMidList, nil
}

func (f *fakeSource) StatFD(pid, fd int) (proc.FileID, error) {
	p, ok := f.procs[pid]
	if !ok {
		return proc.FileID{}, pathErr("stat", "/proc/fd/n", unix.ENOENT)
	}
	if err := p.fdErrs[fd]; err != nil {
		return proc.FileID{}, err
	}
	id, ok := p.fdStat[fd]
	if !ok {
		return proc.FileID{}, pathErr("stat", "/proc/fd/n", unix.ENOENT)
	}
	return id, nil
}

func (f *fakeSource) StatLink(pid int, name string) (proc.FileID, error) {
	p, ok := f.get(pid)
	if !ok {
		return proc.FileID{}, pathErr("stat", "/proc/"+name, unix.ENOENT)
	}
	if err := p.linkErrs[name]; err != nil {
		return proc.FileID{}, err
	}
	id, ok := p.links[name]
	if !ok {
		return proc.FileID{}, pathErr("stat", "/proc/"+name, unix.ENOENT)
	}
	return id, nil
}

func (f *fakeSource) Maps(pid int) ([]proc.MapEntry, error) {
	p, ok := f.get(pid)
	if !ok {
		return nil, pathErr("open", "/proc/maps", unix.ENOENT)
	}
	return p.maps, p.mapsErr
}

func (f *fakeSource) Alive(pid int) bool {
	_, ok := f.get(pid)
	return ok
}

func (f *fakeSource) OpenNetTable(name string) (io.ReadCloser, error) {
	content, ok := f.tables[name]
	if !ok {
		return nil, pathErr("open", "/proc/net/"+name, unix.ENOENT)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

const netHeader = "  sl  local_address rem_address   st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode\n"

func netRow(local, state, uid, inode string) string {
	return "   0: " + local + " 00000000:0000 " + state + " 00000000:00000000 00:00000000 00000000  " + uid + "        0 " + inode + " 1 0000000000000000 100 0 0 10 0\n"
}

// buildTable indexes tcp rows the same way a port run does.
func buildTable(t *testing.T, rows string) *sockets.Table {
	t.Helper()
	src := newFakeSource()
	src.tables["tcp"] = netHeader + rows
	table, issues := sockets.Build(src, sockets.Filter{})
	require.Empty(t, issues)
	return table
}

func socketOf(table *sockets.Table, inode uint64) *model.SocketEntry {
	e, ok := table.Lookup(inode)
	if !ok {
		return nil
	}
	return &e
}
