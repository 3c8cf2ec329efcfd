// Package dag tracks which passages include which other passages.
package dag

import (
	"fmt"
	"slices"
)

// Graph is a directed graph of passage names. An edge from A to B means
// passage A includes passage B.
type Graph struct {
	order    []string
	nodes    map[string]bool
	includes map[string][]string
	included map[string][]string
}

// NewGraph creates an empty include graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]bool),
		includes: make(map[string][]string),
		included: make(map[string][]string),
	}
}

// AddPassage adds a passage. Adding a known passage is a no-op.
func (g *Graph) AddPassage(name string) {
	if g.nodes[name] {
		return
	}
	g.nodes[name] = true
	g.order = append(g.order, name)
}

// AddInclude records that from includes to. Both passages must exist.
// Repeated includes are recorded once; a passage may include itself.
func (g *Graph) AddInclude(from, to string) error {
	if !g.nodes[from] {
		return fmt.Errorf("passage %q not found", from)
	}
	if !g.nodes[to] {
		return fmt.Errorf("passage %q not found", to)
	}
	if slices.Contains(g.includes[from], to) {
		return nil
	}
	g.includes[from] = append(g.includes[from], to)
	g.included[to] = append(g.included[to], from)
	return nil
}

// Has reports whether name is a known passage.
func (g *Graph) Has(name string) bool {
	return g.nodes[name]
}

// Includes returns the passages name includes, in the order recorded.
func (g *Graph) Includes(name string) []string {
	return slices.Clone(g.includes[name])
}

// IncludedBy returns the passages that include name.
func (g *Graph) IncludedBy(name string) []string {
	return slices.Clone(g.included[name])
}

// PassageCount returns the number of passages.
func (g *Graph) PassageCount() int {
	return len(g.order)
}

// IncludeCount returns the number of include edges.
func (g *Graph) IncludeCount() int {
	count := 0
	for _, to := range g.includes {
		count += len(to)
	}
	return count
}

// FindCycle returns an include cycle as a path whose first and last
// elements are the same passage, or nil when there is none. Passages are
// visited in insertion order so the result is deterministic.
func (g *Graph) FindCycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	parent := make(map[string]string)

	var cycle []string

	var dfs func(name string) bool
	dfs = func(name string) bool {
		visited[name] = true
		onStack[name] = true

		for _, next := range g.includes[name] {
			if !visited[next] {
				parent[next] = name
				if dfs(next) {
					return true
				}
			} else if onStack[next] {
				cycle = []string{next}
				for curr := name; curr != next; curr = parent[curr] {
					cycle = append([]string{curr}, cycle...)
				}
				cycle = append([]string{next}, cycle...)
				return true
			}
		}

		onStack[name] = false
		return false
	}

	for _, name := range g.order {
		if !visited[name] && dfs(name) {
			return cycle
		}
	}
	return nil
}

// Reachable returns every passage rendered, directly or transitively,
// when from is rendered, excluding from itself unless it is part of a cycle.
func (g *Graph) Reachable(from string) []string {
	seen := make(map[string]bool)
	var result []string
	queue := slices.Clone(g.includes[from])

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		result = append(result, name)
		queue = append(queue, g.includes[name]...)
	}
	return result
}
