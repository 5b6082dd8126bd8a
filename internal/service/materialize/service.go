package materialize

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"bdp/internal/adapter"
	"bdp/internal/domain"
	"bdp/internal/engine"
	"bdp/internal/registry"
)

// Service ties the registry, graph builder, and runner together into the
// orchestrator's public operations: run, check-only validation, listing.
type Service struct {
	root        string
	engine      *engine.Engine
	executors   map[domain.AssetKind]domain.Executor
	checker     domain.Checker
	logger      *slog.Logger
	concurrency int
}

// NewService creates a Service scanning root and materializing into eng.
func NewService(root string, eng *engine.Engine, logger *slog.Logger, concurrency int) *Service {
	return &Service{
		root:        root,
		engine:      eng,
		executors:   adapter.Executors(eng),
		checker:     NewTableChecker(eng),
		logger:      logger,
		concurrency: concurrency,
	}
}

// Load scans the assets root and builds the validated dependency graph
// without executing anything. This is the check-only entry point.
func (s *Service) Load(ctx context.Context) (*registry.Set, *Graph, error) {
	set, err := registry.Scan(s.root)
	if err != nil {
		return nil, nil, err
	}
	g, err := BuildGraph(ctx, set, s.engine)
	if err != nil {
		return nil, nil, err
	}
	return set, g, nil
}

// Run materializes the named assets plus their transitive dependencies, or
// every asset when names is empty. Registry and graph errors abort before
// any execution; execution failures are isolated per node and surface in
// the returned report instead.
func (s *Service) Run(ctx context.Context, names []string) (*domain.RunReport, error) {
	set, err := registry.Scan(s.root)
	if err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		return nil, domain.ErrNotFound("no assets found under %s", s.root)
	}

	if len(names) > 0 {
		set, err = s.selectAssets(set, names)
		if err != nil {
			return nil, err
		}
	}

	g, err := BuildGraph(ctx, set, s.engine)
	if err != nil {
		return nil, err
	}

	runner := NewRunner(s.executors, s.checker, s.logger, s.concurrency)
	return runner.Run(ctx, g), nil
}

// List returns every discovered asset ordered by name.
func (s *Service) List(ctx context.Context) ([]*domain.Asset, error) {
	set, err := registry.Scan(s.root)
	if err != nil {
		return nil, err
	}
	return set.List(), nil
}

// RuleResult is the outcome of one named validation rule.
type RuleResult struct {
	Rule string
	Err  error
}

// Check runs the named validation rules in order, stopping at the first
// failure. It parses and builds but never executes. Scan and graph build
// each fail fast with one error, so the failure is attributed to its rule
// by error type and the remaining rules are not reported.
func (s *Service) Check(ctx context.Context) []RuleResult {
	parse := RuleResult{Rule: "Assets parse and file names match"}
	bodies := RuleResult{Rule: "Asset bodies are non-empty"}
	targets := RuleResult{Rule: "Target tables are unique"}
	resolve := RuleResult{Rule: "All dependencies resolve"}
	cycles := RuleResult{Rule: "No dependency cycles"}

	set, err := registry.Scan(s.root)
	if err != nil {
		var conflictErr *domain.ConflictError
		switch {
		case registry.IsEmptyBody(err):
			return []RuleResult{parse, {Rule: bodies.Rule, Err: err}}
		case errors.As(err, &conflictErr):
			return []RuleResult{parse, bodies, {Rule: targets.Rule, Err: err}}
		default:
			return []RuleResult{{Rule: parse.Rule, Err: err}}
		}
	}

	_, err = BuildGraph(ctx, set, s.engine)
	var cycleErr *domain.CycleError
	switch {
	case err == nil:
		return []RuleResult{parse, bodies, targets, resolve, cycles}
	case errors.As(err, &cycleErr):
		return []RuleResult{parse, bodies, targets, resolve, {Rule: cycles.Rule, Err: err}}
	default:
		return []RuleResult{parse, bodies, targets, {Rule: resolve.Rule, Err: err}}
	}
}

// selectAssets resolves an explicit selection to its transitive dependency
// closure. Unknown names fail with one error listing all of them.
func (s *Service) selectAssets(set *registry.Set, names []string) (*registry.Set, error) {
	var unknown []string
	selected := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := set.Get(name); !ok {
			unknown = append(unknown, name)
			continue
		}
		selected[name] = struct{}{}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, domain.ErrNotFound("unknown assets: %s", strings.Join(unknown, ", "))
	}

	stack := make([]string, 0, len(selected))
	for name := range selected {
		stack = append(stack, name)
	}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		asset, _ := set.Get(name)
		for _, ref := range asset.DependsOn {
			producer, ok := set.ByTarget(ref)
			if !ok {
				continue // external leaf, validated at graph build
			}
			if _, seen := selected[producer.Name]; !seen {
				selected[producer.Name] = struct{}{}
				stack = append(stack, producer.Name)
			}
		}
	}
	return set.Subset(selected), nil
}
