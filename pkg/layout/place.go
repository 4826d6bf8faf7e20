package layout

import (
	"math"

	"github.com/matzehuels/codeflow/pkg/dag"
)

// placementRounds is the number of down+up balancing rounds.
const placementRounds = 4

// placeX assigns x coordinates to every node in orders. Within a rank,
// consecutive nodes are at least unit apart and keep their order. The result is
// shifted so the smallest x is 0.
func placeX(g *dag.DAG, orders map[int][]string, unit float64) map[string]float64 {
	x := make(map[string]float64, g.NodeCount())
	maxRow := 0
	for r, ids := range orders {
		maxRow = max(maxRow, r)
		for i, id := range ids {
			x[id] = float64(i) * unit
		}
	}

	for round := 0; round < placementRounds; round++ {
		for r := 1; r <= maxRow; r++ {
			balance(orders[r], x, g.Parents, unit)
		}
		for r := maxRow - 1; r >= 0; r-- {
			balance(orders[r], x, g.Children, unit)
		}
	}

	minX := math.Inf(1)
	for _, v := range x {
		minX = math.Min(minX, v)
	}
	if math.IsInf(minX, 1) {
		return x
	}
	for id := range x {
		x[id] -= minX
	}
	return x
}

// balance moves each node of row toward the mean x of its neighbours. The
// desired positions are resolved twice, packing left to right and right to
// left, and the two are averaged; both keep unit spacing, so the average
// does too.
func balance(row []string, x map[string]float64, neighbours func(string) []string, unit float64) {
	n := len(row)
	if n == 0 {
		return
	}
	desired := make([]float64, n)
	for i, id := range row {
		nbs := neighbours(id)
		if len(nbs) == 0 {
			desired[i] = x[id]
			continue
		}
		sum := 0.0
		for _, nb := range nbs {
			sum += x[nb]
		}
		desired[i] = sum / float64(len(nbs))
	}

	fwd := make([]float64, n)
	fwd[0] = desired[0]
	for i := 1; i < n; i++ {
		fwd[i] = math.Max(desired[i], fwd[i-1]+unit)
	}
	bwd := make([]float64, n)
	bwd[n-1] = desired[n-1]
	for i := n - 2; i >= 0; i-- {
		bwd[i] = math.Min(desired[i], bwd[i+1]-unit)
	}
	for i, id := range row {
		x[id] = (fwd[i] + bwd[i]) / 2
	}
}
