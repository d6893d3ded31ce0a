package resolve

import (
	"sort"
	"strings"

	"github.com/roach88/loadstone/internal/mods"
)

// detectCycles decomposes the graph into strongly connected components
// and returns every component that is a circular dependency: more than
// one node, or a single node with a self-loop. An empty result means the
// graph is acyclic.
//
// Returned cycles are rendered as closed walks and sorted shortest first,
// folded path text breaking ties.
func (g *graph) detectCycles() []Cycle {
	sccs := tarjanSCC(g.adj)

	var cycles []Cycle
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && g.hasEdge(scc[0], scc[0])) {
			cycles = append(cycles, g.sccToCycle(scc))
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		if len(cycles[i].Path) != len(cycles[j].Path) {
			return len(cycles[i].Path) < len(cycles[j].Path)
		}
		return foldedWalk(cycles[i].Path) < foldedWalk(cycles[j].Path)
	})
	return cycles
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm
// over the index arena. Single-node SCCs without self-loops are not
// cycles; the caller filters them.
//
// Iteration over nodes and sorted adjacency keeps the decomposition
// deterministic.
func tarjanSCC(adj [][]int) [][]int {
	n := len(adj)
	var (
		counter = 0
		stack   []int
		indices = make([]int, n)
		lowlink = make([]int, n)
		onStack = make([]bool, n)
		sccs    [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(int)
	strongConnect = func(v int) {
		// Set the depth index for v
		indices[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range adj[v] {
			if indices[w] == -1 {
				// Successor w has not yet been visited; recurse on it
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				// Successor w is on stack and hence in the current SCC
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []int
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

	for v := 0; v < n; v++ {
		if indices[v] == -1 {
			strongConnect(v)
		}
	}

	return sccs
}

func (g *graph) hasEdge(from, to int) bool {
	_, ok := g.edges[edgeKey{from: from, to: to}]
	return ok
}

// sccToCycle renders one circular component as a closed walk. A self-loop
// renders as [A, A]. A multi-node component renders as the shortest walk
// through the component's lexicographically-first member, for example
// [A, B, A].
func (g *graph) sccToCycle(scc []int) Cycle {
	names := g.set.Names()

	if len(scc) == 1 {
		v := scc[0]
		return Cycle{Path: []string{names[v], names[v]}}
	}

	start := scc[0]
	for _, v := range scc[1:] {
		if mods.Key(names[v]) < mods.Key(names[start]) {
			start = v
		}
	}

	return Cycle{Path: g.shortestClosedWalk(start, scc, names)}
}

// shortestClosedWalk finds the shortest cycle through start within the
// component via breadth-first search, then closes it over the nearest
// in-component predecessor of start, folded name breaking distance ties.
func (g *graph) shortestClosedWalk(start int, scc []int, names []string) []string {
	const unseen = -1

	inSCC := make(map[int]bool, len(scc))
	for _, v := range scc {
		inSCC[v] = true
	}

	dist := make(map[int]int, len(scc))
	parent := make(map[int]int, len(scc))
	for _, v := range scc {
		dist[v] = unseen
	}
	dist[start] = 0

	queue := []int{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range g.adj[v] {
			if !inSCC[w] || dist[w] != unseen {
				continue
			}
			dist[w] = dist[v] + 1
			parent[w] = v
			queue = append(queue, w)
		}
	}

	closer := -1
	for _, v := range scc {
		if v == start || dist[v] == unseen || !g.hasEdge(v, start) {
			continue
		}
		if closer == -1 || dist[v] < dist[closer] ||
			(dist[v] == dist[closer] && mods.Key(names[v]) < mods.Key(names[closer])) {
			closer = v
		}
	}
	if closer == -1 {
		// Every node in a multi-node SCC has an in-component path back
		// to start, so a missing closer cannot happen on a graph that
		// finalize produced.
		return []string{names[start], names[start]}
	}

	var rev []int
	for v := closer; v != start; v = parent[v] {
		rev = append(rev, v)
	}

	path := make([]string, 0, len(rev)+2)
	path = append(path, names[start])
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, names[rev[i]])
	}
	path = append(path, names[start])
	return path
}

// foldedWalk renders a cycle path as a single folded comparison key.
func foldedWalk(path []string) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = mods.Key(p)
	}
	return strings.Join(parts, "\x00")
}
