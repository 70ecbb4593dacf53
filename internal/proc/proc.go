// Package proc reads process, descriptor, mapping and socket state from a
// Linux procfs mount. Every path is resolved under a configurable root so a
// fake tree can stand in for /proc.
package proc

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const DefaultRoot = "/proc"

// ErrMalformed marks kernel data that could not be parsed.
var ErrMalformed = errors.New("malformed kernel data")

// FS is a read-only view of a procfs mount.
type FS struct {
	root string
}

func New(root string) FS {
	if root == "" {
		root = DefaultRoot
	}
	return FS{root: filepath.Clean(root)}
}

func (p FS) Root() string {
	return p.root
}

func (p FS) pidPath(pid int, elem ...string) string {
	parts := append([]string{p.root, strconv.Itoa(pid)}, elem...)
	return filepath.Join(parts...)
}

// FD is one entry of /proc/<pid>/fd with the text of its magic link.
type FD struct {
	Num  int
	Link string
}

// FileID is the kernel identity of a file.
type FileID struct {
	Dev   uint64
	Inode uint64
}

// MapEntry is the identity part of one /proc/<pid>/maps line.
type MapEntry struct {
	DevMajor uint32
	DevMinor uint32
	Inode    uint64
	Path     string
}

// Matches reports whether the mapping is backed by the file id.
func (m MapEntry) Matches(id FileID) bool {
	if m.Inode == 0 || m.Inode != id.Inode {
		return false
	}
	major, minor := DevMajorMinor(id.Dev)
	return m.DevMajor == major && m.DevMinor == minor
}

func DevMajorMinor(dev uint64) (uint32, uint32) {
	return unix.Major(dev), unix.Minor(dev)
}

// IsGone reports whether err means the process or descriptor no longer exists.
func IsGone(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, unix.ESRCH)
}

// IsDenied reports whether err is EACCES or EPERM.
func IsDenied(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}

// SocketInode extracts N from a "socket:[N]" descriptor link.
func SocketInode(link string) (uint64, bool) {
	rest, ok := strings.CutPrefix(link, "socket:[")
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, "]")
	if !ok {
		return 0, false
	}
	inode, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return inode, true
}

// IsPathLink reports whether a descriptor link names a filesystem object
// rather than a socket, pipe or anonymous inode.
func IsPathLink(link string) bool {
	return strings.HasPrefix(link, "/")
}
