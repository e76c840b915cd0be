package compiler

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/typekit/internal/ir"
)

// InheritanceCycle is a set of types whose extends chain loops back on
// itself. Such types can never be derived.
type InheritanceCycle struct {
	Path    []string `json:"path"`    // e.g. ["A", "B", "A"]
	Message string   `json:"message"` // human-readable description
}

// FindInheritanceCycles reports every cycle in the extends graph.
//
// The graph has one edge per type, child -> base. Strongly connected
// components are found with Tarjan's algorithm; an SCC with more than one
// node, or a type extending itself, is a cycle. Cycles are returned in
// declaration order of their first member.
func FindInheritanceCycles(types []ir.TypeSpec) []InheritanceCycle {
	if len(types) == 0 {
		return nil
	}

	graph, order := buildInheritanceGraph(types)
	sccs := tarjanSCC(graph, order)

	position := make(map[string]int, len(order))
	for i, name := range order {
		position[name] = i
	}

	var cycles []InheritanceCycle
	for _, scc := range sccs {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, sccToCycle(scc, graph, position))
		}
	}

	// tarjanSCC emits components in reverse topological order; report them
	// the way they were declared.
	slices.SortFunc(cycles, func(a, b InheritanceCycle) int {
		return cmp.Compare(position[a.Path[0]], position[b.Path[0]])
	})
	return cycles
}

// OrderTypes returns types reordered so each type follows its base.
// Among types whose bases are already placed, declaration order is kept.
// Types that cannot be placed (their base is undeclared or they sit on a
// cycle) are appended last in declaration order; Validate reports them.
func OrderTypes(types []ir.TypeSpec) []ir.TypeSpec {
	placed := make(map[string]bool, len(types))
	out := make([]ir.TypeSpec, 0, len(types))
	remaining := types

	for len(remaining) > 0 {
		var next []ir.TypeSpec
		progress := false
		for _, t := range remaining {
			if t.Extends == "" || placed[t.Extends] {
				out = append(out, t)
				placed[t.Name] = true
				progress = true
				continue
			}
			next = append(next, t)
		}
		if !progress {
			out = append(out, next...)
			break
		}
		remaining = next
	}
	return out
}

// inheritanceGraph maps type name -> base names (zero or one entry).
type inheritanceGraph map[string][]string

func buildInheritanceGraph(types []ir.TypeSpec) (inheritanceGraph, []string) {
	graph := make(inheritanceGraph, len(types))
	order := make([]string, 0, len(types))
	for _, t := range types {
		if _, seen := graph[t.Name]; !seen {
			order = append(order, t.Name)
			graph[t.Name] = []string{}
		}
		if t.Extends != "" {
			graph[t.Name] = append(graph[t.Name], t.Extends)
		}
	}
	return graph, order
}

func hasSelfLoop(node string, graph inheritanceGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in the given order so results are deterministic.
func tarjanSCC(graph inheritanceGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, inGraph := graph[w]; !inGraph {
				// Undeclared base; reported by Validate.
				continue
			}
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// sccToCycle walks the extends edges from the earliest-declared member of
// the SCC until it returns to it.
func sccToCycle(scc []string, graph inheritanceGraph, position map[string]int) InheritanceCycle {
	start := scc[0]
	for _, n := range scc[1:] {
		if position[n] < position[start] {
			start = n
		}
	}

	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	path := []string{start}
	current := start
	for range len(scc) {
		var next string
		for _, base := range graph[current] {
			if members[base] {
				next = base
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return InheritanceCycle{
		Path:    path,
		Message: fmt.Sprintf("inheritance cycle: %s", strings.Join(path, " extends ")),
	}
}
