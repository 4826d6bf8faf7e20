// Package layout computes node positions for a codebase graph snapshot.
//
// # Layered Layout
//
// [Engine.Layout] runs a Sugiyama-style pipeline on a [dag.DAG] built from
// the snapshot:
//
//  1. back edges are removed by DFS so cycles never block ranking
//  2. ranks are assigned by longest path from the roots
//  3. edges spanning several ranks are subdivided
//  4. each rank is ordered by alternating barycenter sweeps plus adjacent
//     transposition, keeping the ordering with the fewest crossings
//  5. x coordinates are balanced between a left-packed and a right-packed
//     placement that pull every node toward its neighbours
//
// Every node is a 120x120 box; X and Y are its top-left corner. Ranks are
// spaced by [NodeSize]+RankSep vertically and boxes in a rank by at least
// [NodeSize]+NodeSep horizontally.
//
// # Robustness
//
// Layout never fails. Duplicate ids, internal errors, panics and non-finite
// coordinates all hand control to [Fallback], which places node i on a
// four-column grid. A result is either entirely layered or entirely fallback.
//
// # Determinism
//
// All tie-breaks follow input order, so equal snapshots produce equal
// positions. The [Memo] relies on this to cache results by snapshot hash.
//
// [dag.DAG]: github.com/matzehuels/codeflow/pkg/dag
package layout
