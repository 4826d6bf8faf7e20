// Package render holds the codeflow renderers and the raster conversion they
// share.
//
// # Renderers
//
//   - [planar]: the 2D view. Nodes as glowing discs, edges as lifted
//     quadratic curves, an info panel for the selected node and a legend.
//   - [spatial]: the 3D view. Spheres, billboards and bezier polylines seen
//     through an orbiting perspective camera, isolated behind a supervisor.
//   - [nodelink]: a Graphviz export of the snapshot in the same colors.
//
// All three consume the style registry in [style], so a category looks the
// same everywhere.
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
//	svg := renderer.SVG()
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// [style]: github.com/matzehuels/codeflow/pkg/style
package render
