//go:build linux

package proc

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/oxyzenQ/zenlixem/pkg/model"
)

const statusFixture = `Name:	nginx
Umask:	0022
State:	S (sleeping)
Tgid:	4300
Ngid:	0
Pid:	4300
PPid:	1
TracerPid:	0
Uid:	1000	1000	1000	1000
Gid:	1000	1000	1000	1000
`

// fakeProc builds a minimal procfs tree under a temp dir.
type fakeProc struct {
	t    *testing.T
	root string
}

func newFakeProc(t *testing.T) *fakeProc {
	t.Helper()
	return &fakeProc{t: t, root: t.TempDir()}
}

func (f *fakeProc) write(rel, content string) {
	f.t.Helper()
	path := filepath.Join(f.root, rel)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(f.t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fakeProc) link(rel, target string) {
	f.t.Helper()
	path := filepath.Join(f.root, rel)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(f.t, os.Symlink(target, path))
}

func TestPIDs_SortedNumericOnly(t *testing.T) {
	f := newFakeProc(t)
	for _, dir := range []string{"4300", "12", "self", "net", "999"} {
		require.NoError(t, os.MkdirAll(filepath.Join(f.root, dir), 0o755))
	}
	f.write("uptime", "1.0 1.0\n")

	pids, err := New(f.root).PIDs()
	require.NoError(t, err)
	assert.Equal(t, []int{12, 999, 4300}, pids)
}

func TestPIDs_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope")).PIDs()
	require.Error(t, err)
	assert.True(t, IsGone(err))
}

func TestSnapshot_ParsesStatus(t *testing.T) {
	f := newFakeProc(t)
	f.write("4300/status", statusFixture)

	snap, err := New(f.root).Snapshot(4300)
	require.NoError(t, err)
	assert.Equal(t, model.ProcessSnapshot{PID: 4300, PPID: 1, Command: "nginx", UID: 1000}, snap)
}

func TestSnapshot_Vanished(t *testing.T) {
	f := newFakeProc(t)

	_, err := New(f.root).Snapshot(77)
	require.Error(t, err)
	assert.True(t, IsGone(err))
}

func TestSnapshot_Malformed(t *testing.T) {
	f := newFakeProc(t)
	f.write("5/status", "Name:\tx\nUid:\tbogus\n")

	_, err := New(f.root).Snapshot(5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestFDs_ReadsLinksSorted(t *testing.T) {
	f := newFakeProc(t)
	f.link("10/fd/7", "socket:[55321]")
	f.link("10/fd/0", "/dev/null")
	f.link("10/fd/12", "pipe:[991]")

	fds, vanished, err := New(f.root).FDs(10)
	require.NoError(t, err)
	assert.False(t, vanished)
	assert.Equal(t, []FD{
		{Num: 0, Link: "/dev/null"},
		{Num: 7, Link: "socket:[55321]"},
		{Num: 12, Link: "pipe:[991]"},
	}, fds)
}

func TestStatFD_ThroughDescriptor(t *testing.T) {
	f := newFakeProc(t)
	held := filepath.Join(t.TempDir(), "held")
	require.NoError(t, os.WriteFile(held, []byte("x"), 0o600))
	f.link("10/fd/5", held)

	var want unix.Stat_t
	require.NoError(t, unix.Stat(held, &want))

	got, err := New(f.root).StatFD(10, 5)
	require.NoError(t, err)
	assert.Equal(t, FileID{Dev: uint64(want.Dev), Inode: want.Ino}, got)
}

func TestStatFD_Closed(t *testing.T) {
	f := newFakeProc(t)
	require.NoError(t, os.MkdirAll(filepath.Join(f.root, "10", "fd"), 0o755))

	_, err := New(f.root).StatFD(10, 3)
	require.Error(t, err)
	assert.True(t, IsGone(err))
}

func TestStatLink_RejectsUnknownName(t *testing.T) {
	_, err := New(t.TempDir()).StatLink(1, "environ")
	assert.Error(t, err)
}

func TestMaps_SkipsAnonymous(t *testing.T) {
	f := newFakeProc(t)
	f.write("10/maps", `55d4c8a00000-55d4c8a02000 r--p 00000000 fd:00 131080                     /usr/lib/libfoo.so
7ffd1c7e0000-7ffd1c801000 rw-p 00000000 00:00 0                          [stack]
7f00aa000000-7f00aa100000 rw-s 00000000 00:05 2048                       /memfd:shm (deleted)
garbage line
`)

	maps, err := New(f.root).Maps(10)
	require.NoError(t, err)
	require.Len(t, maps, 2)
	assert.Equal(t, MapEntry{DevMajor: 0xfd, DevMinor: 0, Inode: 131080, Path: "/usr/lib/libfoo.so"}, maps[0])
	assert.Equal(t, "/memfd:shm (deleted)", maps[1].Path)
}

func TestMapEntry_Matches(t *testing.T) {
	entry := MapEntry{DevMajor: 253, DevMinor: 0, Inode: 131080}
	assert.True(t, entry.Matches(FileID{Dev: 64768, Inode: 131080}))
	assert.False(t, entry.Matches(FileID{Dev: 64768, Inode: 131081}))
	assert.False(t, entry.Matches(FileID{Dev: 2049, Inode: 131080}))
	assert.False(t, MapEntry{}.Matches(FileID{}))
}

func TestSocketInode(t *testing.T) {
	cases := map[string]struct {
		inode uint64
		ok    bool
	}{
		"socket:[55321]": {55321, true},
		"socket:[]":      {0, false},
		"socket:[12":     {0, false},
		"pipe:[55321]":   {0, false},
		"/tmp/t":         {0, false},
	}
	for link, want := range cases {
		t.Run(link, func(t *testing.T) {
			inode, ok := SocketInode(link)
			assert.Equal(t, want.ok, ok)
			assert.Equal(t, want.inode, inode)
		})
	}
}

func TestErrorClassification(t *testing.T) {
	denied := &fs.PathError{Op: "open", Path: "/proc/1/fd", Err: unix.EACCES}
	perm := &fs.PathError{Op: "open", Path: "/proc/1/fd", Err: unix.EPERM}
	gone := &fs.PathError{Op: "open", Path: "/proc/1/fd", Err: unix.ENOENT}
	srch := &fs.PathError{Op: "readlink", Path: "/proc/1/exe", Err: unix.ESRCH}

	assert.True(t, IsDenied(denied))
	assert.True(t, IsDenied(perm))
	assert.False(t, IsDenied(gone))
	assert.True(t, IsGone(gone))
	assert.True(t, IsGone(srch))
	assert.False(t, IsGone(denied))
	assert.False(t, IsGone(errors.New("boom")))
}

func TestParseNetLine_TCP4(t *testing.T) {
	line := "   0: 00000000:1F90 00000000:0000 0A 00000000:00000000 00:00000000 00000000  1000        0 55321 1 0000000000000000 100 0 0 10 0"

	entry, err := ParseNetLine(line, NetTables[0])
	require.NoError(t, err)
	assert.Equal(t, model.SocketEntry{
		Inode:      55321,
		Protocol:   model.ProtocolTCP,
		Family:     model.FamilyV4,
		LocalAddr:  "0.0.0.0",
		LocalPort:  8080,
		RemoteAddr: "0.0.0.0",
		RemotePort: 0,
		State:      model.StateListen,
		OwnerUID:   1000,
	}, entry)
	assert.Equal(t, "LISTEN", entry.StateLabel())
}

func TestParseNetLine_TCP6Loopback(t *testing.T) {
	line := "   1: 00000000000000000000000001000000:0016 00000000000000000000000000000000:0000 0A 00000000:00000000 00:00000000 00000000     0        0 4242 1 0000000000000000 100 0 0 10 0"

	entry, err := ParseNetLine(line, NetTables[1])
	require.NoError(t, err)
	assert.Equal(t, "::1", entry.LocalAddr)
	assert.Equal(t, uint16(22), entry.LocalPort)
	assert.Equal(t, model.FamilyV6, entry.Family)
}

func TestParseNetLine_LoopbackV4(t *testing.T) {
	line := "   2: 0100007F:0277 00000000:0000 07 00000000:00000000 00:00000000 00000000   108        0 777 2 0000000000000000 0"

	entry, err := ParseNetLine(line, NetTables[2])
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", entry.LocalAddr)
	assert.Equal(t, uint16(631), entry.LocalPort)
	assert.Equal(t, "UNCONN", entry.StateLabel())
	assert.True(t, entry.State.Listening(model.ProtocolUDP))
}

func TestParseNetLine_Malformed(t *testing.T) {
	cases := []string{
		"   0: 00000000:1F90 00000000:0000 0A",
		"   0: 0000000G:1F90 00000000:0000 0A 00000000:00000000 00:00000000 00000000  1000        0 55321",
		"   0: 00000000:XYZ0 00000000:0000 0A 00000000:00000000 00:00000000 00000000  1000        0 55321",
		"   0: 00000000:1F90 00000000:0000 ZZ 00000000:00000000 00:00000000 00000000  1000        0 55321",
		"   0: 00000000:1F90 00000000:0000 0A 00000000:00000000 00:00000000 00000000  abc         0 55321",
		"   0: 00000000:1F90 00000000:0000 0A 00000000:00000000 00:00000000 00000000  1000        0 x",
		"   0: 000000:1F90 00000000:0000 0A 00000000:00000000 00:00000000 00000000  1000        0 1",
	}
	for i, line := range cases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			_, err := ParseNetLine(line, NetTables[0])
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
