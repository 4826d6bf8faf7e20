package planar

import (
	"math"

	"github.com/matzehuels/codeflow/pkg/view"
)

// Transform maps scene coordinates to viewport coordinates.
type Transform struct {
	// Fit is the meet scale of the scene into the viewport.
	Fit float64
	// Offset centers the fitted scene.
	Offset view.Point
	Center view.Point
	Zoom   float64
	Pan    view.Point
}

// NewTransform fits a sceneW x sceneH space into a viewW x viewH viewport and
// applies zoom around the viewport center followed by pan.
func NewTransform(sceneW, sceneH, viewW, viewH, zoom float64, pan view.Point) Transform {
	fit := 1.0
	if sceneW > 0 && sceneH > 0 && viewW > 0 && viewH > 0 {
		fit = math.Min(viewW/sceneW, viewH/sceneH)
	}
	if zoom <= 0 {
		zoom = view.DefaultZoom
	}
	return Transform{
		Fit:    fit,
		Offset: view.Point{X: (viewW - sceneW*fit) / 2, Y: (viewH - sceneH*fit) / 2},
		Center: view.Point{X: viewW / 2, Y: viewH / 2},
		Zoom:   zoom,
		Pan:    pan,
	}
}

// Scale is the total scene-to-screen scale factor.
func (t Transform) Scale() float64 { return t.Fit * t.Zoom }

// ToScreen maps a scene point into the viewport.
func (t Transform) ToScreen(p view.Point) view.Point {
	fx := p.X*t.Fit + t.Offset.X
	fy := p.Y*t.Fit + t.Offset.Y
	return view.Point{
		X: t.Center.X + t.Pan.X + (fx-t.Center.X)*t.Zoom,
		Y: t.Center.Y + t.Pan.Y + (fy-t.Center.Y)*t.Zoom,
	}
}

// ToScene maps a viewport point back into scene coordinates.
func (t Transform) ToScene(p view.Point) view.Point {
	fx := (p.X-t.Center.X-t.Pan.X)/t.Zoom + t.Center.X
	fy := (p.Y-t.Center.Y-t.Pan.Y)/t.Zoom + t.Center.Y
	return view.Point{X: (fx - t.Offset.X) / t.Fit, Y: (fy - t.Offset.Y) / t.Fit}
}

// SVG returns the transform as an SVG transform attribute value, so scene
// content can be drawn in scene coordinates inside a group.
func (t Transform) SVG() string {
	s := t.Scale()
	tx := t.Center.X + t.Pan.X + (t.Offset.X-t.Center.X)*t.Zoom
	ty := t.Center.Y + t.Pan.Y + (t.Offset.Y-t.Center.Y)*t.Zoom
	return fmtTransform(tx, ty, s)
}
