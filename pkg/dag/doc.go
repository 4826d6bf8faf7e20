// Package dag provides a directed graph organized into rows (ranks) for the
// layered layout used by codeflow.
//
// # Overview
//
// Nodes carry a Row assignment and edges are directed parent to child. After
// layering and subdivision every edge connects consecutive rows
// (From.Row+1 == To.Row), which is what [DAG.Validate] checks and what the
// crossing counters assume.
//
// # Determinism
//
// All iteration follows insertion order. Snapshot nodes are inserted in input
// order, so every tie-break downstream (DFS roots, initial row order, stable
// sorts) is reproducible for a fixed snapshot.
//
// # Basic Usage
//
//	g := dag.New()
//	g.AddNode(dag.Node{ID: "src/app", Row: 0})
//	g.AddNode(dag.Node{ID: "src/util", Row: 1})
//	g.AddEdge(dag.Edge{From: "src/app", To: "src/util"})
//
// # Node Kinds
//
//   - [NodeKindRegular]: a node from the snapshot
//   - [NodeKindSubdivider]: a synthetic node breaking a long edge into
//     single-row hops; [Node.MasterID] names the edge source
//
// # Edge Crossings
//
// [CountCrossings] and [CountRankCrossings] count inversions with a Fenwick
// tree in O(E log V) per rank pair. [SwapCost] evaluates a single adjacent
// swap.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use. Each layout run builds its
// own graph.
//
// The [transform] subpackage provides cycle breaking, layer assignment and
// edge subdivision.
//
// [transform]: github.com/matzehuels/codeflow/pkg/dag/transform
package dag
