// Package planar is the 2D renderer.
//
// A [Scene] is built once per layout: it fixes the coordinate space, the
// style of every node and the curve of every drawable edge. The scene is
// immutable; interaction state (zoom, pan, selection) lives in a
// [view.Controller] and is applied at draw time through a [Transform].
//
// # Coordinate Spaces
//
// Scene coordinates are layout units. The scene is fitted into the viewport
// preserving its aspect ratio and centered, then scaled by the zoom around the
// viewport center and finally translated by the pan:
//
//	screen = center + pan + (fit(p) - center) * zoom
//
// [Transform.ToScene] inverts this so pointer positions can be hit-tested.
//
// # Rendering
//
// [Renderer.SVG] draws the scene under the current view state as a standalone
// SVG document with the info panel for the selected node and a legend:
//
//	r := planar.New(scene, ctrl, planar.WithViewport(1280, 720))
//	r.PointerDown(view.Point{X: 400, Y: 300})
//	svg := r.SVG()
package planar
