// Package process walks parent links to show how a holder was started.
package process

import (
	"errors"
	"fmt"

	"github.com/oxyzenQ/zenlixem/pkg/model"
)

// ErrNoAncestry is returned when not even the starting process could be read.
var ErrNoAncestry = errors.New("no process ancestry found")

// SnapshotSource reads a single process' identity.
type SnapshotSource interface {
	Snapshot(pid int) (model.ProcessSnapshot, error)
}

// BuildAncestry returns the chain from the oldest reachable ancestor down to
// pid. The walk stops at pid 1, at a parent of 0, at the first unreadable
// parent, or when a pid repeats.
func BuildAncestry(src SnapshotSource, pid int) ([]model.ProcessSnapshot, error) {
	var chain []model.ProcessSnapshot
	seen := make(map[int]bool)

	current := pid
	for current > 0 {
		if seen[current] {
			break // loop protection
		}
		seen[current] = true

		p, err := src.Snapshot(current)
		if err != nil {
			if len(chain) == 0 {
				return nil, fmt.Errorf("%w: pid %d: %v", ErrNoAncestry, pid, err)
			}
			break
		}

		chain = append(chain, p)

		if p.PPID == 0 || p.PID == 1 {
			break
		}
		current = p.PPID
	}

	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: pid %d", ErrNoAncestry, pid)
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
