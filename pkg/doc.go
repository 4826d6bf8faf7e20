// Package pkg provides the core libraries for Codeflow codebase-graph views.
//
// # Overview
//
// Codeflow turns a `{nodes, edges}` snapshot of a codebase (files, folders,
// functions, routes, classes and components) into a layered diagram that can
// be viewed as a flat 2D node-link drawing or as an orbitable 3D scene. Both
// views share one layout, one style registry and one view state, so switching
// between them keeps the selection.
//
// # Architecture
//
//	Snapshot (JSON/YAML)
//	         ↓
//	    [graph] package (decode, validate, hash)
//	         ↓
//	    [layout] package (layered layout over [dag], memoized by snapshot hash)
//	         ↓
//	    [view] + [viewer] packages (shared state, host events)
//	         ↓
//	    [render] packages (planar 2D, spatial 3D, Graphviz DOT)
//	         ↓
//	    SVG/PNG/PDF/DOT output, terminal frames, websocket frames
//
// # Quick Start
//
//	s, _ := graph.ReadSnapshotFile("graph.json")
//	res := layout.New().Layout(ctx, s)
//
//	v := viewer.New(s, res, viewer.WithViewport(1280, 720))
//	v.Apply(ctx, viewer.Event{Type: viewer.Select, ID: "app"})
//	svg, _ := v.SVG(ctx)
//
// # Package Organization
//
//   - [graph]: snapshot types, codecs and hashing
//   - [dag], [dag/transform]: layered graph structure, cycle breaking, layering
//   - [layout]: node placement, fallback grid and the layout memo
//   - [style]: node categories, colors and glyphs
//   - [view]: the view-state controller shared by both modes
//   - [render/planar], [render/spatial], [render/nodelink]: renderers
//   - [viewer]: binds a snapshot, its layout and both renderers to host events
//   - [pipeline]: layout and render orchestration with artifact caching
//   - [cache], [session]: artifact cache and view-session stores
//   - [server]: HTTP and websocket host
//   - [watch]: snapshot file watcher
//   - [config], [observability], [errors], [buildinfo]: ambient support
//
// [graph]: github.com/matzehuels/codeflow/pkg/graph
// [dag]: github.com/matzehuels/codeflow/pkg/dag
// [dag/transform]: github.com/matzehuels/codeflow/pkg/dag/transform
// [layout]: github.com/matzehuels/codeflow/pkg/layout
// [style]: github.com/matzehuels/codeflow/pkg/style
// [view]: github.com/matzehuels/codeflow/pkg/view
// [render]: github.com/matzehuels/codeflow/pkg/render
// [render/planar]: github.com/matzehuels/codeflow/pkg/render/planar
// [render/spatial]: github.com/matzehuels/codeflow/pkg/render/spatial
// [render/nodelink]: github.com/matzehuels/codeflow/pkg/render/nodelink
// [viewer]: github.com/matzehuels/codeflow/pkg/viewer
// [pipeline]: github.com/matzehuels/codeflow/pkg/pipeline
// [cache]: github.com/matzehuels/codeflow/pkg/cache
// [session]: github.com/matzehuels/codeflow/pkg/session
// [server]: github.com/matzehuels/codeflow/pkg/server
// [watch]: github.com/matzehuels/codeflow/pkg/watch
// [config]: github.com/matzehuels/codeflow/pkg/config
// [observability]: github.com/matzehuels/codeflow/pkg/observability
// [errors]: github.com/matzehuels/codeflow/pkg/errors
// [buildinfo]: github.com/matzehuels/codeflow/pkg/buildinfo
package pkg
