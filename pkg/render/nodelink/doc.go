// Package nodelink exports snapshots as Graphviz node-link diagrams.
//
// # Usage
//
// Convert a snapshot to DOT, then render to SVG:
//
//	dot := nodelink.ToDOT(snapshot, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)  // 2x scale
//
// # DOT Format
//
// The generated DOT uses top-to-bottom layout (rankdir=TB) with rounded,
// filled boxes. Node fill and edge colors come from the style registry, so the
// export matches the interactive views. Edges with a missing endpoint are
// left out instead of letting Graphviz invent nodes for them.
//
// When [Options.Layout] is set, nodes sharing a layout rank are pinned to the
// same Graphviz rank.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
