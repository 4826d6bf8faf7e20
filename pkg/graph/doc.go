// Package graph defines the snapshot wire format consumed by codeflow.
//
// A [Snapshot] is the `{nodes, edges}` document produced by the code-analysis
// collaborator. It is treated as immutable once received: layout, rendering and
// view state are all derived from it and keyed on its content hash.
//
// # Format
//
//	{
//	  "nodes": [{"id": "src/app", "label": "App.tsx", "type": "file"}],
//	  "edges": [{"source": "src/app", "target": "src/util", "type": "import"}]
//	}
//
// YAML documents with the same keys are accepted by [ReadSnapshotFile] when the
// path ends in .yaml or .yml.
//
// # Identity
//
// [Snapshot.Hash] is a SHA-256 over the canonical JSON encoding. Two snapshots
// with equal nodes and edges (in the same order) hash identically, which is what
// the layout memo and the view-state reset rule rely on.
//
// # Tolerance
//
// Edges may reference ids that are not present in the node list; consumers skip
// them instead of failing. Unknown node and edge types are preserved verbatim.
package graph
