// Package graph implements the append-only directed graph used by the
// pipeline core: index-stable node and edge handles, with O(1) incidence
// lookups available once the graph is finalized.
package graph

import (
	"fmt"

	pipelineerrors "github.com/pipelined/pipelined/pkg/errors"
)

// NodeIdx is a stable handle to a node, assigned in insertion order.
type NodeIdx int

// EdgeIdx is a stable handle to an edge, assigned in insertion order.
type EdgeIdx int

type edge struct {
	src, dst NodeIdx
}

// Graph is an arena of node and edge payloads plus, after Finalize, two
// adjacency indices (edges-out, edges-in) keyed by NodeIdx. Before
// finalization, AddEdge may create parallel edges and self-loops; after
// finalization the graph is immutable except for edge payload mutation
// through GetEdgeMut.
type Graph[N any, E any] struct {
	nodes []N
	edges []edge
	edata []E

	finalized bool
	outIdx    [][]EdgeIdx
	inIdx     [][]EdgeIdx
}

// New returns an empty graph.
func New[N any, E any]() *Graph[N, E] {
	return &Graph[N, E]{}
}

// AddNode appends a node payload and returns its stable index.
func (g *Graph[N, E]) AddNode(data N) NodeIdx {
	g.nodes = append(g.nodes, data)
	return NodeIdx(len(g.nodes) - 1)
}

// AddEdge appends an edge between two existing node indices. Parallel edges
// and self-loops are accepted; cycle detection later reports a self-loop (a
// cycle of length one), while parallel edges are kept as they are.
func (g *Graph[N, E]) AddEdge(src, dst NodeIdx, data E) (EdgeIdx, error) {
	if g.finalized {
		return 0, fmt.Errorf("graph: AddEdge after Finalize")
	}
	if int(src) < 0 || int(src) >= len(g.nodes) {
		return 0, fmt.Errorf("graph: source node %d out of range", src)
	}
	if int(dst) < 0 || int(dst) >= len(g.nodes) {
		return 0, fmt.Errorf("graph: target node %d out of range", dst)
	}
	g.edges = append(g.edges, edge{src: src, dst: dst})
	g.edata = append(g.edata, data)
	return EdgeIdx(len(g.edges) - 1), nil
}

// NodeCount returns the number of nodes in the arena.
func (g *Graph[N, E]) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the arena.
func (g *Graph[N, E]) EdgeCount() int { return len(g.edata) }

// Node returns the payload stored at idx.
func (g *Graph[N, E]) Node(idx NodeIdx) N { return g.nodes[idx] }

// Edge returns the payload stored at idx.
func (g *Graph[N, E]) Edge(idx EdgeIdx) E { return g.edata[idx] }

// GetEdgeMut applies fn to the edge payload at idx in place. It is the only
// mutation allowed once the graph is finalized.
func (g *Graph[N, E]) GetEdgeMut(idx EdgeIdx, fn func(*E)) {
	fn(&g.edata[idx])
}

// EdgeEndpoints returns the source and destination node indices for idx.
func (g *Graph[N, E]) EdgeEndpoints(idx EdgeIdx) (NodeIdx, NodeIdx) {
	e := g.edges[idx]
	return e.src, e.dst
}

// HasCycle runs DFS-based cycle detection over the current edge set,
// returning true the moment a back edge (an edge into a node still on the
// DFS stack) is found. It does not require Finalize to have run.
func (g *Graph[N, E]) HasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(g.nodes))

	adj := g.adjacencyOut()

	var visit func(n NodeIdx) bool
	visit = func(n NodeIdx) bool {
		color[n] = gray
		for _, eix := range adj[n] {
			_, dst := g.EdgeEndpoints(eix)
			switch color[dst] {
			case gray:
				return true // back edge
			case white:
				if visit(dst) {
					return true
				}
			}
		}
		color[n] = black
		return false
	}

	for n := range g.nodes {
		if color[n] == white {
			if visit(NodeIdx(n)) {
				return true
			}
		}
	}
	return false
}

// adjacencyOut computes (or reuses, if finalized) the out-edge adjacency.
func (g *Graph[N, E]) adjacencyOut() [][]EdgeIdx {
	if g.finalized {
		return g.outIdx
	}
	out := make([][]EdgeIdx, len(g.nodes))
	for i, e := range g.edges {
		out[e.src] = append(out[e.src], EdgeIdx(i))
	}
	return out
}

// Finalize computes the edges-out/edges-in adjacency indices and rejects
// cycles via topological validation. After Finalize the graph is immutable
// except for edge payload mutation through GetEdgeMut.
func (g *Graph[N, E]) Finalize() error {
	if g.finalized {
		return nil
	}
	if g.HasCycle() {
		return pipelineerrors.NewHasCycleError()
	}

	out := make([][]EdgeIdx, len(g.nodes))
	in := make([][]EdgeIdx, len(g.nodes))
	for i, e := range g.edges {
		out[e.src] = append(out[e.src], EdgeIdx(i))
		in[e.dst] = append(in[e.dst], EdgeIdx(i))
	}

	g.outIdx = out
	g.inIdx = in
	g.finalized = true
	return nil
}

// OutEdges returns the O(1)-indexed list of edges leaving n. Valid only
// after Finalize.
func (g *Graph[N, E]) OutEdges(n NodeIdx) []EdgeIdx {
	if !g.finalized {
		return g.adjacencyOut()[n]
	}
	return g.outIdx[n]
}

// InEdges returns the O(1)-indexed list of edges entering n. Valid only
// after Finalize.
func (g *Graph[N, E]) InEdges(n NodeIdx) []EdgeIdx {
	if !g.finalized {
		adj := make([][]EdgeIdx, len(g.nodes))
		for i, e := range g.edges {
			adj[e.dst] = append(adj[e.dst], EdgeIdx(i))
		}
		return adj[n]
	}
	return g.inIdx[n]
}

// Finalized reports whether Finalize has run successfully.
func (g *Graph[N, E]) Finalized() bool { return g.finalized }
