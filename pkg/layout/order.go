package layout

import (
	"slices"

	"github.com/matzehuels/codeflow/pkg/dag"
)

// maxTransposeRounds bounds the adjacent-swap loop per sweep.
const maxTransposeRounds = 8

// orderRanks orders the nodes of every rank to reduce edge crossings. It
// returns the best ordering found, indexed by rank, and its crossing count.
// Ranks of g must be contiguous from 0, which longest-path layering
// guarantees.
func orderRanks(g *dag.DAG, passes int) (map[int][]string, int) {
	orders := initialOrder(g)
	maxRow := g.MaxRow()

	best := cloneOrders(orders)
	bestCrossings := dag.CountCrossings(g, orders)

	for p := 0; p < passes && bestCrossings > 0; p++ {
		if p%2 == 0 {
			for r := 1; r <= maxRow; r++ {
				sortByBarycenter(orders[r], dag.PosMap(orders[r-1]), g.Parents)
			}
		} else {
			for r := maxRow - 1; r >= 0; r-- {
				sortByBarycenter(orders[r], dag.PosMap(orders[r+1]), g.Children)
			}
		}
		transpose(g, orders, maxRow)

		if c := dag.CountCrossings(g, orders); c < bestCrossings {
			best, bestCrossings = cloneOrders(orders), c
		}
	}
	return best, bestCrossings
}

// initialOrder ranks nodes by DFS discovery from the sources, in insertion
// order, so connected nodes start out close together.
func initialOrder(g *dag.DAG) map[int][]string {
	discovered := make(map[string]int, g.NodeCount())
	var visit func(id string)
	visit = func(id string) {
		if _, seen := discovered[id]; seen {
			return
		}
		discovered[id] = len(discovered)
		for _, c := range g.Children(id) {
			visit(c)
		}
	}
	for _, n := range g.Sources() {
		visit(n.ID)
	}
	for _, n := range g.Nodes() {
		visit(n.ID)
	}

	orders := make(map[int][]string, g.RowCount())
	for _, r := range g.RowIDs() {
		ids := dag.NodeIDs(g.NodesInRow(r))
		slices.SortStableFunc(ids, func(a, b string) int {
			return discovered[a] - discovered[b]
		})
		orders[r] = ids
	}
	return orders
}

// sortByBarycenter reorders row in place by the mean position of each node's
// neighbours in the adjacent rank. Nodes without neighbours there keep their
// slot; the others are stably sorted into the remaining slots, so ties keep
// their current relative order.
func sortByBarycenter(row []string, adjPos map[string]int, neighbours func(string) []string) {
	type movable struct {
		id   string
		bary float64
	}
	var mov []movable
	var slots []int
	for i, id := range row {
		sum, n := 0, 0
		for _, nb := range neighbours(id) {
			if p, ok := adjPos[nb]; ok {
				sum += p
				n++
			}
		}
		if n == 0 {
			continue
		}
		mov = append(mov, movable{id, float64(sum) / float64(n)})
		slots = append(slots, i)
	}
	slices.SortStableFunc(mov, func(a, b movable) int {
		switch {
		case a.bary < b.bary:
			return -1
		case a.bary > b.bary:
			return 1
		}
		return 0
	})
	for i, slot := range slots {
		row[slot] = mov[i].id
	}
}

// transpose swaps adjacent nodes while doing so strictly reduces the crossings
// with both neighbouring ranks.
func transpose(g *dag.DAG, orders map[int][]string, maxRow int) {
	for round, improved := 0, true; improved && round < maxTransposeRounds; round++ {
		improved = false
		for r := 0; r <= maxRow; r++ {
			row := orders[r]
			var up, down map[string]int
			if r > 0 {
				up = dag.PosMap(orders[r-1])
			}
			if r < maxRow {
				down = dag.PosMap(orders[r+1])
			}
			for i := 0; i+1 < len(row); i++ {
				v, w := row[i], row[i+1]
				if pairCost(g, w, v, up, down) < pairCost(g, v, w, up, down) {
					row[i], row[i+1] = w, v
					improved = true
				}
			}
		}
	}
}

func pairCost(g *dag.DAG, left, right string, up, down map[string]int) int {
	return dag.SwapCost(g, left, right, up, true) + dag.SwapCost(g, left, right, down, false)
}

func cloneOrders(orders map[int][]string) map[int][]string {
	out := make(map[int][]string, len(orders))
	for r, ids := range orders {
		out[r] = slices.Clone(ids)
	}
	return out
}
