//go:build linux

package proc

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// Maps reads the file-backed mappings of pid. Anonymous mappings (inode 0)
// are left out. Lines that cannot be parsed are skipped.
func (p FS) Maps(pid int) ([]MapEntry, error) {
	f, err := os.Open(p.pidPath(pid, "maps"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []MapEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		entry, ok := parseMapsLine(scanner.Text())
		if !ok || entry.Inode == 0 {
			continue
		}
		out = append(out, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// address perms offset dev inode [pathname]
func parseMapsLine(line string) (MapEntry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return MapEntry{}, false
	}

	majorHex, minorHex, ok := strings.Cut(fields[3], ":")
	if !ok {
		return MapEntry{}, false
	}
	major, err := strconv.ParseUint(majorHex, 16, 32)
	if err != nil {
		return MapEntry{}, false
	}
	minor, err := strconv.ParseUint(minorHex, 16, 32)
	if err != nil {
		return MapEntry{}, false
	}
	inode, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		return MapEntry{}, false
	}

	entry := MapEntry{
		DevMajor: uint32(major),
		DevMinor: uint32(minor),
		Inode:    inode,
	}
	if len(fields) > 5 {
		entry.Path = strings.Join(fields[5:], " ")
	}
	return entry, true
}
