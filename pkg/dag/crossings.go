package dag

import (
	"cmp"
	"maps"
	"slices"
)

// CountCrossings sums [CountRankCrossings] over every pair of consecutive
// ranks in orders. Each entry lists node ids left to right; a missing rank is
// empty.
//
//	orders := map[int][]string{
//	    0: {"src/App.tsx", "src/main.ts"},
//	    1: {"useAuth", "ApiClient", "utils.js"},
//	}
//	n := dag.CountCrossings(g, orders)
func CountCrossings(g *DAG, orders map[int][]string) int {
	total := 0
	for _, r := range slices.Sorted(maps.Keys(orders)) {
		if next, ok := orders[r+1]; ok {
			total += CountRankCrossings(g, orders[r], next)
		}
	}
	return total
}

// CountRankCrossings counts the edges between two adjacent ranks that cross.
// Edges (u1,v1) and (u2,v2) cross when u1 is left of u2 but v1 is right of v2,
// so sorting the edges by upper position turns crossings into inversions of
// the lower positions, counted with a Fenwick tree in O(E log V).
func CountRankCrossings(g *DAG, upper, lower []string) int {
	if len(upper) == 0 || len(lower) == 0 {
		return 0
	}
	at := PosMap(lower)

	type span struct{ top, bottom int }
	var spans []span
	for i, id := range upper {
		for _, child := range g.Children(id) {
			if j, ok := at[child]; ok {
				spans = append(spans, span{i, j})
			}
		}
	}
	if len(spans) < 2 {
		return 0
	}
	slices.SortFunc(spans, func(a, b span) int {
		if c := cmp.Compare(a.top, b.top); c != 0 {
			return c
		}
		return cmp.Compare(a.bottom, b.bottom)
	})

	bit := newFenwick(len(lower))
	crossings := 0
	for seen, s := range spans {
		crossings += seen - bit.prefix(s.bottom)
		bit.add(s.bottom)
	}
	return crossings
}

// SwapCost counts the crossings between the edges of left and right when left
// sits immediately before right. adj maps the ids of the neighbouring rank to
// their positions; parents selects the rank above instead of the one below.
// Comparing SwapCost(l, r) with SwapCost(r, l) tells whether swapping the pair
// helps.
func SwapCost(g *DAG, left, right string, adj map[string]int, parents bool) int {
	neighbours := g.Children
	if parents {
		neighbours = g.Parents
	}
	cost := 0
	for _, ln := range neighbours(left) {
		lp, ok := adj[ln]
		if !ok {
			continue
		}
		for _, rn := range neighbours(right) {
			if rp, ok := adj[rn]; ok && rp < lp {
				cost++
			}
		}
	}
	return cost
}

// fenwick is a binary indexed tree over positions 0..n-1.
type fenwick []int

func newFenwick(n int) fenwick { return make(fenwick, n+1) }

func (f fenwick) add(pos int) {
	for i := pos + 1; i < len(f); i += i & -i {
		f[i]++
	}
}

// prefix returns how many positions <= pos were added.
func (f fenwick) prefix(pos int) int {
	n := 0
	for i := pos + 1; i > 0; i -= i & -i {
		n += f[i]
	}
	return n
}
