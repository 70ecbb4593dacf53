// Package resolve is the holder resolution engine: it enumerates processes,
// matches their descriptors and mappings against a target identity and
// aggregates the findings into a deterministic result.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/oxyzenQ/zenlixem/internal/proc"
	"github.com/oxyzenQ/zenlixem/internal/sockets"
	"github.com/oxyzenQ/zenlixem/internal/target"
	"github.com/oxyzenQ/zenlixem/pkg/model"
)

var (
	ErrTargetNotFound = target.ErrNotFound
	ErrInvalidTarget  = target.ErrInvalid
	// ErrEnvironment means the process filesystem is missing or unreadable.
	ErrEnvironment = errors.New("process filesystem unavailable")
)

// Source is the procfs view the engine reads from. proc.FS implements it.
type Source interface {
	sockets.Source
	PIDs() ([]int, error)
	Snapshot(pid int) (model.ProcessSnapshot, error)
	FDs(pid int) (fds []proc.FD, vanished bool, err error)
	StatFD(pid, fd int) (proc.FileID, error)
	StatLink(pid int, name string) (proc.FileID, error)
	Maps(pid int) ([]proc.MapEntry, error)
	Alive(pid int) bool
}

var _ Source = proc.FS{}

// Resolver holds no state between runs; every call takes a fresh snapshot.
type Resolver struct {
	src     Source
	logger  *zap.Logger
	workers int
}

// New creates a resolver. workers <= 0 sizes the pool to the CPU count.
func New(src Source, logger *zap.Logger, workers int) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = defaultWorkers()
	}
	return &Resolver{
		src:     src,
		logger:  logger,
		workers: workers,
	}
}

// Resolve classifies raw and reports every process holding it.
func (r *Resolver) Resolve(ctx context.Context, raw string, opts model.Options) (*model.ResolutionResult, error) {
	t, err := target.Classify(raw, opts)
	if err != nil {
		return nil, err
	}
	return r.ResolveTarget(ctx, t, opts)
}

// ResolveTarget runs the scan for an already classified target.
func (r *Resolver) ResolveTarget(ctx context.Context, t model.Target, opts model.Options) (*model.ResolutionResult, error) {
	var (
		table  *sockets.Table
		issues []Issue
	)

	if t.Type == model.TargetPort {
		var sockIssues []sockets.Issue
		table, sockIssues = sockets.Build(r.src, sockets.Filter{
			Port:          t.Port.Port,
			MatchPort:     true,
			Protocol:      t.Port.Protocol,
			Family:        t.Port.Family,
			ListeningOnly: opts.ListeningOnly,
			Established:   opts.Established,
		})
		issues = append(issues, fromSocketIssues(sockIssues)...)
		r.logger.Debug("socket table built",
			zap.Uint16("port", t.Port.Port),
			zap.Int("entries", table.Len()))
	}

	snaps, enumIssues, err := r.enumerate()
	if err != nil {
		return nil, err
	}
	issues = append(issues, enumIssues...)

	var inspect func(model.ProcessSnapshot) inspection
	switch t.Type {
	case model.TargetFile:
		id := proc.FileID{Dev: t.File.Dev, Inode: t.File.Inode}
		inspect = func(snap model.ProcessSnapshot) inspection {
			return inspectFile(r.src, snap, id)
		}
	case model.TargetPort:
		inspect = func(snap model.ProcessSnapshot) inspection {
			return inspectSockets(r.src, snap, table)
		}
	default:
		return nil, fmt.Errorf("%w: unknown target type %q", ErrInvalidTarget, t.Type)
	}

	col := &collector{}
	// nothing on the port: no descriptor can match
	if t.Type == model.TargetFile || table.Len() > 0 {
		if err := r.scan(ctx, snaps, inspect, col); err != nil {
			return nil, err
		}
	}

	return Aggregate(Findings{
		Target:     t,
		Evidence:   col.evidence,
		Denied:     col.denied,
		Issues:     append(issues, col.issues...),
		Sockets:    table,
		Privileged: unix.Geteuid() == 0,
	}), nil
}

// enumerate captures the process set once. Processes that exit before their
// status is read are dropped without a trace.
func (r *Resolver) enumerate() ([]model.ProcessSnapshot, []Issue, error) {
	pids, err := r.src.PIDs()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEnvironment, err)
	}
	if len(pids) == 0 {
		return nil, nil, fmt.Errorf("%w: no process entries found, is procfs mounted?", ErrEnvironment)
	}

	snaps := make([]model.ProcessSnapshot, 0, len(pids))
	var issues []Issue
	for _, pid := range pids {
		snap, err := r.src.Snapshot(pid)
		if err != nil {
			if proc.IsGone(err) {
				r.logger.Debug("process exited before enumeration", zap.Int("pid", pid))
				continue
			}
			issues = append(issues, issueFor(pid, err))
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, issues, nil
}
