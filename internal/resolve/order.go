package resolve

import (
	"container/heap"

	"github.com/roach88/loadstone/internal/mods"
)

// readyNode is a node whose predecessors are all satisfied.
type readyNode struct {
	idx    int
	weight int
	folded string
}

// readyHeap orders eligible nodes by soft placement weight, then original
// installed index, then folded name. The key is a total order, so ties
// are never left unresolved and identical inputs always emit identical
// orders.
type readyHeap []readyNode

func (h readyHeap) Len() int { return len(h) }

func (h readyHeap) Less(i, j int) bool {
	if h[i].weight != h[j].weight {
		return h[i].weight < h[j].weight
	}
	if h[i].idx != h[j].idx {
		return h[i].idx < h[j].idx
	}
	return h[i].folded < h[j].folded
}

func (h readyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *readyHeap) Push(x any) { *h = append(*h, x.(readyNode)) }

func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// topoOrder emits the deterministic total order over an acyclic arena:
// repeatedly the eligible node with the lowest key is appended and its
// outgoing edges are released. Call only after detectCycles returned
// empty; on an acyclic graph every node is emitted exactly once.
//
// The arena itself stays untouched; the sort consumes a copy of the
// indegree counts.
func (g *graph) topoOrder() []string {
	n := g.set.Len()
	names := g.set.Names()

	indegree := make([]int, n)
	copy(indegree, g.indegree)

	ready := make(readyHeap, 0, n)
	for v := 0; v < n; v++ {
		if indegree[v] == 0 {
			ready = append(ready, readyNode{idx: v, weight: g.weights[v], folded: mods.Key(names[v])})
		}
	}
	heap.Init(&ready)

	order := make([]string, 0, n)
	for ready.Len() > 0 {
		v := heap.Pop(&ready).(readyNode)
		order = append(order, names[v.idx])
		for _, w := range g.adj[v.idx] {
			indegree[w]--
			if indegree[w] == 0 {
				heap.Push(&ready, readyNode{idx: w, weight: g.weights[w], folded: mods.Key(names[w])})
			}
		}
	}
	return order
}
