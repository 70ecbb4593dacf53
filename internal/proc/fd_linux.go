//go:build linux

package proc

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"golang.org/x/sys/unix"
)

// FDs lists the open descriptors of pid, sorted by number. A descriptor that
// disappears between the listing and its readlink is left out and reported
// through vanished: either it was closed or the whole process is exiting, and
// only the caller can tell which by checking Alive.
func (p FS) FDs(pid int) (fds []FD, vanished bool, err error) {
	fdPath := p.pidPath(pid, "fd")

	entries, err := os.ReadDir(fdPath)
	if err != nil {
		return nil, false, err
	}

	fds = make([]FD, 0, len(entries))
	for _, e := range entries {
		num, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}

		link, err := os.Readlink(filepath.Join(fdPath, e.Name()))
		if err != nil {
			if IsGone(err) {
				vanished = true
				continue
			}
			return nil, false, err
		}
		fds = append(fds, FD{Num: num, Link: link})
	}

	sort.Slice(fds, func(i, j int) bool { return fds[i].Num < fds[j].Num })
	return fds, vanished, nil
}

// StatFD stats the object behind descriptor fd of pid through the magic
// link itself, never through the link text.
func (p FS) StatFD(pid, fd int) (FileID, error) {
	return statPath(p.pidPath(pid, "fd", strconv.Itoa(fd)))
}

// StatLink stats one of the single-entry references "cwd", "root" or "exe".
func (p FS) StatLink(pid int, name string) (FileID, error) {
	switch name {
	case "cwd", "root", "exe":
	default:
		return FileID{}, fmt.Errorf("unsupported process link %q", name)
	}
	return statPath(p.pidPath(pid, name))
}

func statPath(path string) (FileID, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return FileID{}, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	return FileID{Dev: uint64(st.Dev), Inode: st.Ino}, nil
}
