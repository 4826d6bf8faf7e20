// Package transform provides the graph transformations that turn an arbitrary
// directed graph into a layered DAG ready for crossing reduction.
//
// # Pipeline
//
// [Normalize] applies the steps in order:
//
//  1. [BreakCycles] removes back edges found by DFS. Codebase graphs often
//     contain import cycles; the removed edges are returned, not discarded.
//  2. [AssignRanks] computes longest-path ranks with Kahn's algorithm, so
//     every parent sits strictly above its children.
//  3. [Subdivide] replaces edges spanning several ranks by chains of
//     subdivider nodes so every edge connects consecutive rows.
//
// After Normalize, [dag.DAG.Validate] succeeds.
//
// # Usage
//
//	back := transform.Normalize(g)
//
// or step by step:
//
//	back := transform.BreakCycles(g)
//	transform.AssignRanks(g)
//	transform.Subdivide(g)
package transform
