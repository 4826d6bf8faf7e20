package transform

import "github.com/matzehuels/codeflow/pkg/dag"

// AssignRanks places every node one rank below its deepest parent, so sources
// sit on rank 0 and each edge points strictly downward. It returns the number
// of ranks. Existing rows are overwritten.
//
// Ranks are relaxed in Kahn order: a node is released once all of its parents
// have been ranked. The queue is seeded in node insertion order, which keeps
// the result deterministic for a given snapshot.
//
// Nodes on a cycle are never released and keep the rank their ranked parents
// pushed them to; run [BreakCycles] first.
func AssignRanks(g *dag.DAG) int {
	nodes := g.Nodes()
	pending := make(map[string]int, len(nodes))
	rank := make(map[string]int, len(nodes))

	var ready []string
	for _, n := range nodes {
		if pending[n.ID] = g.InDegree(n.ID); pending[n.ID] == 0 {
			ready = append(ready, n.ID)
		}
	}

	deepest := 0
	for i := 0; i < len(ready); i++ {
		id := ready[i]
		deepest = max(deepest, rank[id])
		for _, child := range g.Children(id) {
			rank[child] = max(rank[child], rank[id]+1)
			if pending[child]--; pending[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	g.SetRows(rank)
	if len(nodes) == 0 {
		return 0
	}
	return deepest + 1
}
