// Package sockets builds the inode-indexed socket table used to attribute
// port targets to process descriptors.
package sockets

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/oxyzenQ/zenlixem/internal/proc"
	"github.com/oxyzenQ/zenlixem/pkg/model"
)

// Source opens kernel network tables by name ("tcp", "tcp6", ...).
type Source interface {
	OpenNetTable(name string) (io.ReadCloser, error)
}

// Filter selects which rows are kept. Port is only compared when MatchPort
// is set: port 0 is a real local port (unbound sockets).
type Filter struct {
	Port          uint16
	MatchPort     bool
	Protocol      model.Protocol
	Family        model.Family
	ListeningOnly bool
	Established   bool
}

// Issue is a recoverable problem met while reading the tables.
type Issue struct {
	Kind   model.WarningKind
	Source string
	Detail string
}

// Table maps socket inode to its kernel table row. It is never modified
// after Build returns.
type Table struct {
	byInode map[uint64]model.SocketEntry
}

func (t *Table) Lookup(inode uint64) (model.SocketEntry, bool) {
	if t == nil {
		return model.SocketEntry{}, false
	}
	e, ok := t.byInode[inode]
	return e, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byInode)
}

// Entries returns the rows ordered by inode.
func (t *Table) Entries() []model.SocketEntry {
	if t == nil {
		return nil
	}
	out := make([]model.SocketEntry, 0, len(t.byInode))
	for _, e := range t.byInode {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Inode < out[j].Inode })
	return out
}

// Build reads the tables selected by f and indexes the matching rows.
// Malformed lines and unreadable tables become issues, never errors; a
// missing table (IPv6 disabled) is skipped silently.
func Build(src Source, f Filter) (*Table, []Issue) {
	t := &Table{byInode: make(map[uint64]model.SocketEntry)}
	var issues []Issue

	for _, nt := range proc.NetTables {
		if !f.Protocol.Includes(nt.Protocol) || !f.Family.Includes(nt.Family) {
			continue
		}
		issues = append(issues, t.load(src, nt, f)...)
	}
	return t, issues
}

func (t *Table) load(src Source, nt proc.NetTable, f Filter) []Issue {
	name := "net/" + nt.Name

	rc, err := src.OpenNetTable(nt.Name)
	if err != nil {
		if proc.IsGone(err) {
			return nil
		}
		return []Issue{{Kind: model.WarnIO, Source: name, Detail: err.Error()}}
	}
	defer rc.Close()

	var issues []Issue
	scanner := bufio.NewScanner(rc)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo == 1 {
			continue // header
		}
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}

		entry, err := proc.ParseNetLine(line, nt)
		if err != nil {
			kind := model.WarnMalformedData
			if !errors.Is(err, proc.ErrMalformed) {
				kind = model.WarnIO
			}
			issues = append(issues, Issue{
				Kind:   kind,
				Source: fmt.Sprintf("%s line %d", name, lineNo),
				Detail: err.Error(),
			})
			continue
		}

		if !f.keep(entry) {
			continue
		}

		if prev, dup := t.byInode[entry.Inode]; dup {
			issues = append(issues, Issue{
				Kind:   model.WarnDuplicateInode,
				Source: fmt.Sprintf("%s line %d", name, lineNo),
				Detail: fmt.Sprintf("inode %d already seen on %s port %d", entry.Inode, prev.Protocol, prev.LocalPort),
			})
			continue
		}
		t.byInode[entry.Inode] = entry
	}
	if err := scanner.Err(); err != nil {
		issues = append(issues, Issue{Kind: model.WarnIO, Source: name, Detail: err.Error()})
	}
	return issues
}

func (f Filter) keep(e model.SocketEntry) bool {
	// orphaned rows (TIME_WAIT and friends) have no owning descriptor
	if e.Inode == 0 {
		return false
	}
	if f.MatchPort && e.LocalPort != f.Port {
		return false
	}
	if f.ListeningOnly && !e.State.Listening(e.Protocol) {
		return false
	}
	if f.Established && (e.Protocol != model.ProtocolTCP || e.State != model.StateEstablished) {
		return false
	}
	return true
}
