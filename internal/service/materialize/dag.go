// Package materialize implements the asset orchestration service: dependency
// graph construction, topological execution, and materialization checking.
package materialize

import (
	"context"
	"sort"

	"bdp/internal/domain"
	"bdp/internal/registry"
)

// node is one arena entry. Edges are stored as arena indices so the graph
// holds no pointers between nodes and cycle detection is a simple
// color-marking traversal.
type node struct {
	asset    *domain.Asset
	parents  []int // producers this node reads from
	children []int // consumers reading this node's target
}

// Graph is the validated, immutable dependency graph for one run.
type Graph struct {
	nodes    []node
	index    map[string]int
	levels   [][]string
	order    []string
	external []domain.TableRef
}

// BuildGraph resolves every declared dependency against the descriptor set,
// falling back to the database catalog for external leaves, then verifies
// acyclicity and computes the deterministic execution order.
func BuildGraph(ctx context.Context, set *registry.Set, catalog domain.Catalog) (*Graph, error) {
	names := set.Names()
	g := &Graph{
		nodes: make([]node, len(names)),
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		asset, _ := set.Get(name)
		g.nodes[i] = node{asset: asset}
		g.index[name] = i
	}

	seenExternal := make(map[domain.TableRef]struct{})
	for i := range g.nodes {
		asset := g.nodes[i].asset
		for _, ref := range asset.DependsOn {
			producer, ok := set.ByTarget(ref)
			if ok {
				j := g.index[producer.Name]
				if j == i {
					return nil, domain.ErrValidation("asset %q depends on its own target %s", asset.Name, ref)
				}
				g.nodes[i].parents = append(g.nodes[i].parents, j)
				g.nodes[j].children = append(g.nodes[j].children, i)
				continue
			}
			exists, err := catalog.TableExists(ctx, ref.Schema, ref.Table)
			if err != nil {
				return nil, err
			}
			if !exists {
				return nil, domain.ErrValidation(
					"asset %q depends on %s, which is neither produced by an asset nor present in the database",
					asset.Name, ref)
			}
			if _, dup := seenExternal[ref]; !dup {
				seenExternal[ref] = struct{}{}
				g.external = append(g.external, ref)
			}
		}
	}
	sort.Slice(g.external, func(i, j int) bool { return g.external[i].String() < g.external[j].String() })

	if cycle := g.findCycle(); cycle != nil {
		return nil, &domain.CycleError{Path: cycle}
	}

	g.computeLevels()
	return g, nil
}

// findCycle runs a color-marking DFS over the arena and returns the full
// cycle path (first and last element equal) if one exists. Nodes are visited
// in index order, which is name order, so the reported cycle is stable.
func (g *Graph) findCycle() []string {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // fully explored
	)
	color := make([]int, len(g.nodes))
	var stack []int

	var visit func(i int) []string
	visit = func(i int) []string {
		color[i] = gray
		stack = append(stack, i)
		for _, p := range g.nodes[i].parents {
			switch color[p] {
			case gray:
				// Back edge: slice the current path from p onwards.
				var path []string
				start := 0
				for k, idx := range stack {
					if idx == p {
						start = k
						break
					}
				}
				for _, idx := range stack[start:] {
					path = append(path, g.nodes[idx].asset.Name)
				}
				return append(path, g.nodes[p].asset.Name)
			case white:
				if cycle := visit(p); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return nil
	}

	for i := range g.nodes {
		if color[i] == white {
			if cycle := visit(i); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// computeLevels runs Kahn's algorithm by levels. The arena is name-sorted
// and each level is emitted in ascending index order, so ties break by
// ascending asset name and the flattened order is reproducible.
func (g *Graph) computeLevels() {
	indegree := make([]int, len(g.nodes))
	for i := range g.nodes {
		indegree[i] = len(g.nodes[i].parents)
	}

	var current []int
	for i := range g.nodes {
		if indegree[i] == 0 {
			current = append(current, i)
		}
	}

	for len(current) > 0 {
		level := make([]string, 0, len(current))
		var next []int
		for _, i := range current {
			level = append(level, g.nodes[i].asset.Name)
			for _, c := range g.nodes[i].children {
				indegree[c]--
				if indegree[c] == 0 {
					next = append(next, c)
				}
			}
		}
		sort.Ints(next)
		g.levels = append(g.levels, level)
		g.order = append(g.order, level...)
		current = next
	}
}

// Len returns the number of assets in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Order returns the deterministic execution order.
func (g *Graph) Order() []string { return g.order }

// Levels returns the execution order grouped into levels; every asset in a
// level has all of its producers in earlier levels.
func (g *Graph) Levels() [][]string { return g.levels }

// Asset returns the descriptor for the named node.
func (g *Graph) Asset(name string) *domain.Asset {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.nodes[i].asset
}

// Parents returns the names of the node's producers in name order.
func (g *Graph) Parents(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.nodes[i].parents))
	for _, p := range g.nodes[i].parents {
		out = append(out, g.nodes[p].asset.Name)
	}
	sort.Strings(out)
	return out
}

// Descendants returns every node transitively reachable through consumer
// edges, in name order. Used to propagate skips after a failure.
func (g *Graph) Descendants(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	visited := make([]bool, len(g.nodes))
	var out []string
	var walk func(int)
	walk = func(n int) {
		for _, c := range g.nodes[n].children {
			if visited[c] {
				continue
			}
			visited[c] = true
			out = append(out, g.nodes[c].asset.Name)
			walk(c)
		}
	}
	walk(i)
	sort.Strings(out)
	return out
}

// ExternalLeaves returns the dependency references satisfied by pre-existing
// database tables rather than assets in this run.
func (g *Graph) ExternalLeaves() []domain.TableRef {
	return g.external
}
