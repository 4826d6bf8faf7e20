package layout

import "github.com/matzehuels/codeflow/pkg/graph"

// Grid spacing of the fallback positioner.
const (
	GridColumns = 4
	GridStepX   = 180.0
	GridStepY   = 140.0
)

// Fallback places node i at column i%4, row i/4 of a fixed grid. It accepts
// any snapshot, including ones with duplicate or empty ids, and never fails.
func Fallback(s graph.Snapshot) *Result {
	res := &Result{
		Nodes:    make([]Node, len(s.Nodes)),
		Fallback: true,
		Hash:     s.Hash(),
	}
	for i, n := range s.Nodes {
		col, row := i%GridColumns, i/GridColumns
		res.Nodes[i] = Node{
			ID: n.ID, Label: n.Label, Type: n.Type,
			X:    float64(col) * GridStepX,
			Y:    float64(row) * GridStepY,
			Rank: row, Order: col,
		}
	}
	res.Width, res.Height = extent(res.Nodes)
	return res
}
