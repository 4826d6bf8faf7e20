package transform

import "github.com/matzehuels/codeflow/pkg/dag"

// Normalize prepares g for ordering: it removes back edges, assigns ranks and
// subdivides long edges. The removed back edges are returned so callers can
// still draw them.
func Normalize(g *dag.DAG) []dag.Edge {
	back := BreakCycles(g)
	AssignRanks(g)
	Subdivide(g)
	return back
}
