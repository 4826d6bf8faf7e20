package transform

import "github.com/matzehuels/codeflow/pkg/dag"

// BreakCycles removes back edges so the graph becomes acyclic and returns the
// removed edges in discovery order.
//
// Back edges are found by a depth-first search with white/gray/black coloring,
// started from every source and then from every still-unvisited node, both in
// insertion order. An edge into a gray (on-stack) node is a back edge; self
// loops always are. Parallel copies of a back edge are removed together and
// reported once.
//
// Removed edges do not take part in ranking but callers still draw them.
func BreakCycles(g *dag.DAG) []dag.Edge {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, g.NodeCount())
	seen := make(map[dag.Edge]struct{})
	var backEdges []dag.Edge

	var dfs func(node string)
	dfs = func(node string) {
		color[node] = gray
		for _, child := range g.Children(node) {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				e := dag.Edge{From: node, To: child}
				if _, dup := seen[e]; !dup {
					seen[e] = struct{}{}
					backEdges = append(backEdges, e)
				}
			}
		}
		color[node] = black
	}

	for _, n := range g.Sources() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}

	for _, n := range g.Nodes() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}

	for _, e := range backEdges {
		g.RemoveEdge(e.From, e.To)
	}
	return backEdges
}
