package resolve

import (
	"context"
	"sort"

	"golang.org/x/sys/unix"

	"github.com/oxyzenQ/zenlixem/internal/sockets"
	"github.com/oxyzenQ/zenlixem/pkg/model"
)

// Ports lists every socket in the selected tables together with the
// processes holding it.
func (r *Resolver) Ports(ctx context.Context, opts model.Options) (*model.PortListing, error) {
	table, sockIssues := sockets.Build(r.src, sockets.Filter{
		Protocol:      opts.Protocol,
		Family:        opts.Family,
		ListeningOnly: opts.ListeningOnly,
		Established:   opts.Established,
	})
	issues := fromSocketIssues(sockIssues)

	snaps, enumIssues, err := r.enumerate()
	if err != nil {
		return nil, err
	}
	issues = append(issues, enumIssues...)

	col := &collector{}
	if table.Len() > 0 {
		inspect := func(snap model.ProcessSnapshot) inspection {
			return inspectSockets(r.src, snap, table)
		}
		if err := r.scan(ctx, snaps, inspect, col); err != nil {
			return nil, err
		}
	}

	return &model.PortListing{
		Rows:       portRows(table, col.evidence, col.denied),
		Warnings:   buildWarnings(len(col.denied), append(issues, col.issues...)),
		Degraded:   len(col.denied) > 0,
		Privileged: unix.Geteuid() == 0,
		Skipped:    len(col.denied),
	}, nil
}

type portRowKey struct {
	port  uint16
	proto model.Protocol
	pid   int
	state string
	note  string
}

// portRows sorts by (port, protocol, pid) with unresolved rows after the
// resolved ones of the same port, and drops rows repeating an earlier
// (port, protocol, pid, state).
func portRows(table *sockets.Table, evidence []model.HolderEvidence, denied []model.ProcessSnapshot) []model.PortHolder {
	var rows []model.PortHolder
	for _, e := range evidence {
		if e.Socket == nil {
			continue
		}
		rows = append(rows, model.PortHolder{
			Port:      e.Socket.LocalPort,
			Protocol:  e.Socket.Protocol,
			PID:       e.PID,
			Command:   e.Command,
			State:     e.Socket.StateLabel(),
			LocalAddr: e.Socket.LocalAddr,
			Confirmed: true,
		})
	}
	for _, entry := range unattributed(table, evidence, denied) {
		rows = append(rows, model.PortHolder{
			Port:      entry.LocalPort,
			Protocol:  entry.Protocol,
			State:     entry.StateLabel(),
			LocalAddr: entry.LocalAddr,
			Note:      unresolvedNote(entry.OwnerUID),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Port != b.Port {
			return a.Port < b.Port
		}
		if a.Protocol != b.Protocol {
			return a.Protocol < b.Protocol
		}
		if a.Confirmed != b.Confirmed {
			return a.Confirmed
		}
		if a.PID != b.PID {
			return a.PID < b.PID
		}
		if a.Note != b.Note {
			return a.Note < b.Note
		}
		if a.State != b.State {
			return a.State < b.State
		}
		return a.LocalAddr < b.LocalAddr
	})

	seen := make(map[portRowKey]bool, len(rows))
	out := rows[:0]
	for _, row := range rows {
		key := portRowKey{row.Port, row.Protocol, row.PID, row.State, row.Note}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out
}
