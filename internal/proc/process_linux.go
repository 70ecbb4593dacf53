//go:build linux

package proc

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/oxyzenQ/zenlixem/pkg/model"
)

const unknownCommand = "<unknown>"

// PIDs lists the numeric entries of the proc root in ascending order.
func (p FS) PIDs() ([]int, error) {
	files, err := os.ReadDir(p.root)
	if err != nil {
		return nil, err
	}

	var pids []int
	for _, f := range files {
		if !f.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(f.Name())
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids, nil
}

// Alive reports whether /proc/<pid> still exists.
func (p FS) Alive(pid int) bool {
	_, err := os.Stat(p.pidPath(pid))
	return err == nil
}

// Snapshot reads name, parent and effective uid of pid from its status file.
// When status is unreadable for lack of privilege the uid falls back to the
// owner of the process directory.
func (p FS) Snapshot(pid int) (model.ProcessSnapshot, error) {
	data, err := os.ReadFile(p.pidPath(pid, "status"))
	if err != nil {
		if !IsDenied(err) {
			return model.ProcessSnapshot{}, err
		}
		uid, statErr := p.ownerUID(pid)
		if statErr != nil {
			return model.ProcessSnapshot{}, statErr
		}
		return model.ProcessSnapshot{PID: pid, Command: unknownCommand, UID: uid}, nil
	}

	snap, err := parseStatus(data)
	if err != nil {
		return model.ProcessSnapshot{}, fmt.Errorf("pid %d status: %w", pid, err)
	}
	snap.PID = pid
	return snap, nil
}

func (p FS) ownerUID(pid int) (uint32, error) {
	info, err := os.Stat(p.pidPath(pid))
	if err != nil {
		return 0, err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("pid %d: no stat data: %w", pid, ErrMalformed)
	}
	return stat.Uid, nil
}

func parseStatus(data []byte) (model.ProcessSnapshot, error) {
	var snap model.ProcessSnapshot
	var haveName, haveUID bool

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "Name":
			snap.Command = value
			haveName = true
		case "PPid":
			ppid, err := strconv.Atoi(value)
			if err != nil {
				return snap, fmt.Errorf("PPid %q: %w", value, ErrMalformed)
			}
			snap.PPID = ppid
		case "Uid":
			// real, effective, saved, filesystem
			fields := strings.Fields(value)
			if len(fields) < 2 {
				return snap, fmt.Errorf("Uid %q: %w", value, ErrMalformed)
			}
			uid, err := strconv.ParseUint(fields[1], 10, 32)
			if err != nil {
				return snap, fmt.Errorf("Uid %q: %w", value, ErrMalformed)
			}
			snap.UID = uint32(uid)
			haveUID = true
		}
	}
	if err := scanner.Err(); err != nil {
		return snap, err
	}

	if !haveName || !haveUID {
		return snap, fmt.Errorf("missing Name or Uid: %w", ErrMalformed)
	}
	if snap.Command == "" {
		snap.Command = unknownCommand
	}
	return snap, nil
}
