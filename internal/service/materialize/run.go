package materialize

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bdp/internal/domain"
)

// Runner executes a validated graph level by level. Assets within a level
// share no dependency, so they may run concurrently up to the configured
// limit; concurrency 1 degenerates to fully sequential execution.
type Runner struct {
	executors   map[domain.AssetKind]domain.Executor
	checker     domain.Checker
	logger      *slog.Logger
	concurrency int
}

// NewRunner creates a Runner. concurrency values below 1 are treated as 1.
func NewRunner(executors map[domain.AssetKind]domain.Executor, checker domain.Checker,
	logger *slog.Logger, concurrency int) *Runner {

	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		executors:   executors,
		checker:     checker,
		logger:      logger,
		concurrency: concurrency,
	}
}

// runState tracks per-asset status during one run. Guarded by mu because
// eligible nodes may execute concurrently.
type runState struct {
	mu     sync.Mutex
	status map[string]domain.Status
	detail map[string]string
}

func (s *runState) get(name string) domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status[name]
}

func (s *runState) set(name string, status domain.Status, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[name] = status
	if detail != "" {
		s.detail[name] = detail
	}
}

// Run executes every node of the graph at most once and returns the run
// report. Node failures never abort the run: they fail the node, skip its
// descendants, and leave unrelated branches untouched. A cancelled context
// lets in-flight nodes finish and marks not-yet-started nodes as not run.
func (r *Runner) Run(ctx context.Context, g *Graph) *domain.RunReport {
	report := &domain.RunReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger := r.logger.With("run_id", report.ID)

	state := &runState{
		status: make(map[string]domain.Status, g.Len()),
		detail: make(map[string]string, g.Len()),
	}
	for _, name := range g.Order() {
		state.status[name] = domain.StatusPending
	}

	for _, level := range g.Levels() {
		var eg errgroup.Group
		eg.SetLimit(r.concurrency)

		for _, name := range level {
			if state.get(name) != domain.StatusPending {
				continue // already skipped by an ancestor's failure
			}
			if ctx.Err() != nil {
				state.set(name, domain.StatusNotRun, "run cancelled before start")
				continue
			}
			if blocker, ok := r.blockedBy(g, state, name); ok {
				state.set(name, domain.StatusSkipped, "dependency did not succeed: "+blocker)
				continue
			}

			eg.Go(func() error {
				r.runNode(ctx, g, state, name, logger)
				return nil
			})
		}
		_ = eg.Wait()
	}

	report.FinishedAt = time.Now()
	for _, name := range g.Order() {
		report.Results = append(report.Results, domain.AssetResult{
			Name:   name,
			Target: g.Asset(name).Target,
			Status: state.status[name],
			Detail: state.detail[name],
		})
	}
	return report
}

// blockedBy reports whether any producer of name is in a non-succeeded
// terminal state, returning the first such producer by name.
func (r *Runner) blockedBy(g *Graph, state *runState, name string) (string, bool) {
	for _, parent := range g.Parents(name) {
		if state.get(parent) != domain.StatusSucceeded {
			return parent, true
		}
	}
	return "", false
}

// runNode executes one asset: adapter, then materialization check. On any
// failure it marks the node and immediately skips all pending descendants.
// Cancellation only gates starting new nodes: a node that already entered
// running finishes on a detached context, so no partial writes are left
// behind by a killed query or script.
func (r *Runner) runNode(ctx context.Context, g *Graph, state *runState, name string, logger *slog.Logger) {
	asset := g.Asset(name)
	logger = logger.With("asset", name, "target", asset.Target.String())

	executor, ok := r.executors[asset.Kind]
	if !ok {
		state.set(name, domain.StatusFailed, "no executor registered for kind "+string(asset.Kind))
		r.skipDescendants(g, state, name)
		return
	}

	state.set(name, domain.StatusRunning, "")
	logger.Info("materializing asset", "kind", asset.Kind)
	started := time.Now()
	ctx = context.WithoutCancel(ctx)

	if err := executor.Execute(ctx, asset); err != nil {
		logger.Warn("asset execution failed", "error", err)
		state.set(name, domain.StatusFailed, err.Error())
		r.skipDescendants(g, state, name)
		return
	}

	if err := r.checker.Check(ctx, asset); err != nil {
		logger.Warn("materialization check failed", "error", err)
		state.set(name, domain.StatusFailedCheck, err.Error())
		r.skipDescendants(g, state, name)
		return
	}

	state.set(name, domain.StatusSucceeded, "")
	logger.Info("asset materialized", "duration", time.Since(started))
}

// skipDescendants marks every still-pending transitive consumer of name as
// skipped. Descendants already terminal keep their state.
func (r *Runner) skipDescendants(g *Graph, state *runState, name string) {
	for _, desc := range g.Descendants(name) {
		state.mu.Lock()
		if state.status[desc] == domain.StatusPending {
			state.status[desc] = domain.StatusSkipped
			state.detail[desc] = "dependency did not succeed: " + name
		}
		state.mu.Unlock()
	}
}
