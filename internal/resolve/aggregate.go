package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oxyzenQ/zenlixem/internal/sockets"
	"github.com/oxyzenQ/zenlixem/pkg/model"
)

// maxWarningSources caps how many offending records a warning names.
const maxWarningSources = 3

var warningOrder = []model.WarningKind{
	model.WarnPermissionDenied,
	model.WarnMalformedData,
	model.WarnDuplicateInode,
	model.WarnIO,
}

// Findings is everything a run collected, in no particular order.
type Findings struct {
	Target     model.Target
	Evidence   []model.HolderEvidence
	Denied     []model.ProcessSnapshot
	Issues     []Issue
	Sockets    *sockets.Table
	Privileged bool
}

// Aggregate merges findings into the final result. It performs no I/O and
// its output depends only on the set of findings, not their order.
func Aggregate(f Findings) *model.ResolutionResult {
	holders := append([]model.HolderEvidence(nil), f.Evidence...)

	if f.Target.Type == model.TargetPort {
		seen := make(map[uint32]bool)
		for _, entry := range unattributed(f.Sockets, f.Evidence, f.Denied) {
			if seen[entry.OwnerUID] {
				continue
			}
			seen[entry.OwnerUID] = true
			entry := entry
			holders = append(holders, model.HolderEvidence{
				Descriptor: model.Descriptor{Type: model.DescriptorUnresolved},
				Confirmed:  false,
				Note:       unresolvedNote(entry.OwnerUID),
				Socket:     &entry,
			})
		}
	}

	sortEvidence(holders)
	holders = dedupEvidence(holders)

	return &model.ResolutionResult{
		Target:     f.Target,
		Holders:    holders,
		Warnings:   buildWarnings(len(f.Denied), f.Issues),
		Degraded:   len(f.Denied) > 0,
		Privileged: f.Privileged,
		Skipped:    len(f.Denied),
	}
}

func unresolvedNote(uid uint32) string {
	return fmt.Sprintf("owner uid=%d, pid unresolved", uid)
}

// unattributed returns, ordered by inode, the socket entries no confirmed
// evidence points at whose owner uid matches a process we were denied
// access to. Those are the only sockets the uid can honestly explain.
func unattributed(table *sockets.Table, evidence []model.HolderEvidence, denied []model.ProcessSnapshot) []model.SocketEntry {
	if table.Len() == 0 || len(denied) == 0 {
		return nil
	}

	deniedUIDs := make(map[uint32]bool, len(denied))
	for _, snap := range denied {
		deniedUIDs[snap.UID] = true
	}
	matched := make(map[uint64]bool, len(evidence))
	for _, e := range evidence {
		if e.Confirmed && e.Socket != nil {
			matched[e.Socket.Inode] = true
		}
	}

	var out []model.SocketEntry
	for _, entry := range table.Entries() {
		if matched[entry.Inode] || !deniedUIDs[entry.OwnerUID] {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// sortEvidence orders by pid, then descriptor (fd numeric, cwd, root, exe,
// mmap). Unresolved evidence has no pid and goes last, by owner uid.
func sortEvidence(ev []model.HolderEvidence) {
	sort.SliceStable(ev, func(i, j int) bool {
		a, b := ev[i], ev[j]
		au, bu := a.Descriptor.Type == model.DescriptorUnresolved, b.Descriptor.Type == model.DescriptorUnresolved
		if au != bu {
			return bu
		}
		if au {
			return ownerUID(a) < ownerUID(b)
		}
		if a.PID != b.PID {
			return a.PID < b.PID
		}
		if a.Descriptor != b.Descriptor {
			return a.Descriptor.Less(b.Descriptor)
		}
		return socketInode(a) < socketInode(b)
	})
}

// dedupEvidence drops repeated (pid, descriptor) pairs from sorted evidence.
func dedupEvidence(ev []model.HolderEvidence) []model.HolderEvidence {
	out := ev[:0]
	for i, e := range ev {
		if i > 0 {
			prev := out[len(out)-1]
			if prev.PID == e.PID && prev.Descriptor == e.Descriptor && ownerUID(prev) == ownerUID(e) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func ownerUID(e model.HolderEvidence) uint32 {
	if e.Socket == nil {
		return 0
	}
	return e.Socket.OwnerUID
}

func socketInode(e model.HolderEvidence) uint64 {
	if e.Socket == nil {
		return 0
	}
	return e.Socket.Inode
}

// buildWarnings folds issues into at most one warning per kind, in a fixed
// kind order with sorted, capped detail.
func buildWarnings(denied int, issues []Issue) []model.Warning {
	byKind := make(map[model.WarningKind][]string)
	for _, i := range issues {
		byKind[i.Kind] = append(byKind[i.Kind], i.Source+": "+i.Detail)
	}

	var out []model.Warning
	for _, kind := range warningOrder {
		if kind == model.WarnPermissionDenied {
			if denied > 0 {
				out = append(out, model.Warning{
					Kind:   kind,
					Detail: fmt.Sprintf("%d process(es) could not be inspected (permission denied); run as root for complete results", denied),
				})
			}
			continue
		}

		sources := byKind[kind]
		if len(sources) == 0 {
			continue
		}
		sort.Strings(sources)
		shown := sources
		if len(shown) > maxWarningSources {
			shown = shown[:maxWarningSources]
		}
		detail := fmt.Sprintf("skipped %d record(s): %s", len(sources), strings.Join(shown, "; "))
		if extra := len(sources) - len(shown); extra > 0 {
			detail += fmt.Sprintf("; and %d more", extra)
		}
		out = append(out, model.Warning{Kind: kind, Detail: detail})
	}
	return out
}
