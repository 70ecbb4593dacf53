package resolve

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oxyzenQ/zenlixem/internal/proc"
	"github.com/oxyzenQ/zenlixem/internal/sockets"
	"github.com/oxyzenQ/zenlixem/pkg/model"
)

// Issue is a recoverable problem recorded during a run. Issues of the same
// kind are folded into a single warning by the aggregator.
type Issue struct {
	Kind   model.WarningKind
	Source string
	Detail string
}

func issueFor(pid int, err error) Issue {
	kind := model.WarnIO
	if errors.Is(err, proc.ErrMalformed) {
		kind = model.WarnMalformedData
	}
	return Issue{Kind: kind, Source: fmt.Sprintf("pid %d", pid), Detail: err.Error()}
}

func fromSocketIssues(in []sockets.Issue) []Issue {
	out := make([]Issue, 0, len(in))
	for _, i := range in {
		out = append(out, Issue{Kind: i.Kind, Source: i.Source, Detail: i.Detail})
	}
	return out
}

// collector is the only state shared between workers.
type collector struct {
	mu       sync.Mutex
	evidence []model.HolderEvidence
	denied   []model.ProcessSnapshot
	issues   []Issue
}

func (c *collector) add(snap model.ProcessSnapshot, in inspection) {
	if in.vanished {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if in.issue != nil {
		c.issues = append(c.issues, *in.issue)
		return
	}
	if in.denied {
		c.denied = append(c.denied, snap)
	}
	c.evidence = append(c.evidence, in.evidence...)
}

func defaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}
	return n
}

// scan runs inspect once per snapshot on a bounded pool. Completion order is
// irrelevant, the aggregator sorts.
func (r *Resolver) scan(ctx context.Context, snaps []model.ProcessSnapshot, inspect func(model.ProcessSnapshot) inspection, col *collector) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, snap := range snaps {
		snap := snap
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			in := inspect(snap)
			if in.vanished {
				r.logger.Debug("process vanished during inspection", zap.Int("pid", snap.PID))
			}
			if in.denied {
				r.logger.Debug("permission denied inspecting process",
					zap.Int("pid", snap.PID),
					zap.Uint32("uid", snap.UID))
			}
			col.add(snap, in)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
