// Package spatial is the 3D renderer.
//
// The renderer works in three layers:
//
//   - [Scene]: the immutable 3D content of one layout. Node box centers are
//     projected onto the z=0 plane, each node becomes a sphere with an icon
//     and a label billboard, and each resolvable edge a bezier polyline.
//   - [Renderer]: owns a perspective [Camera] driven by [OrbitControls], the
//     [Device] handles acquired for the scene, and produces one [Frame] per
//     update. Every acquired handle is tracked in a [ResourceSet] and released
//     on teardown.
//   - [Supervisor]: the fault barrier. It runs initialization and the
//     [FrameLoop] under recovery; any error or panic releases resources and
//     leaves the view degraded with a visible message until [Supervisor.Retry].
//
// # Devices
//
// A [Device] is a software rasterizer behind opaque handles. [SVGDevice]
// draws frames as SVG documents and [CellDevice] as character grids for
// terminals. Both refuse to draw with released handles, which keeps the
// lifecycle rules testable.
//
// # Camera
//
// The camera starts at (0, 0, 10) looking at the origin. Dragging rotates it
// around the target with damped inertia; the orbit distance follows the view
// controller's camera distance, so zoom actions and wheel events go through
// [view.Controller.DollyIn] and [view.Controller.DollyOut].
package spatial
