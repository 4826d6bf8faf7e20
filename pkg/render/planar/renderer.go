package planar

import (
	"sync"

	"github.com/matzehuels/codeflow/pkg/view"
)

// Default viewport size.
const (
	DefaultWidth  = 1280.0
	DefaultHeight = 720.0
)

// Option configures a [Renderer].
type Option func(*Renderer)

// WithViewport sets the viewport size in screen units.
func WithViewport(w, h float64) Option {
	return func(r *Renderer) {
		if w > 0 && h > 0 {
			r.width, r.height = w, h
		}
	}
}

// WithoutInfoPanel hides the selected-node panel.
func WithoutInfoPanel() Option { return func(r *Renderer) { r.infoPanel = false } }

// WithoutLegend hides the category legend.
func WithoutLegend() Option { return func(r *Renderer) { r.legend = false } }

// Renderer draws a scene under the state of a view controller and routes
// pointer input into it.
type Renderer struct {
	scene *Scene
	ctrl  *view.Controller

	mu        sync.Mutex
	width     float64
	height    float64
	infoPanel bool
	legend    bool
}

// New creates a 2D renderer. The controller is bound to the scene's snapshot.
func New(scene *Scene, ctrl *view.Controller, opts ...Option) *Renderer {
	r := &Renderer{
		scene:     scene,
		ctrl:      ctrl,
		width:     DefaultWidth,
		height:    DefaultHeight,
		infoPanel: true,
		legend:    true,
	}
	for _, opt := range opts {
		opt(r)
	}
	ctrl.Load(scene.Snapshot())
	return r
}

// Scene returns the drawn scene.
func (r *Renderer) Scene() *Scene { return r.scene }

// Controller returns the view controller.
func (r *Renderer) Controller() *view.Controller { return r.ctrl }

// Resize changes the viewport size. Non-positive sizes are ignored.
func (r *Renderer) Resize(w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	r.mu.Lock()
	r.width, r.height = w, h
	r.mu.Unlock()
}

// Viewport returns the viewport size.
func (r *Renderer) Viewport() (w, h float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

// Transform returns the scene-to-screen transform for the current state.
func (r *Renderer) Transform() Transform {
	w, h := r.Viewport()
	st := r.ctrl.State()
	return NewTransform(r.scene.Width, r.scene.Height, w, h, st.Zoom, st.Pan)
}

// HitTest resolves a viewport point.
func (r *Renderer) HitTest(p view.Point) Hit {
	return r.scene.HitTest(r.Transform().ToScene(p))
}

// PointerDown handles a press at viewport point p. A press on a node selects
// it; anywhere else starts a pan drag whose moves and release are delivered
// through the controller's window.
func (r *Renderer) PointerDown(p view.Point) Hit {
	hit := r.HitTest(p)
	if hit.Kind == HitNode {
		r.ctrl.Select(hit.ID)
		return hit
	}
	r.ctrl.BeginDrag(p)
	return hit
}

// PointerMove forwards a move to the global listener scope.
func (r *Renderer) PointerMove(p view.Point) { r.ctrl.Window().DispatchMove(p) }

// PointerUp forwards a release to the global listener scope.
func (r *Renderer) PointerUp(p view.Point) { r.ctrl.Window().DispatchUp(p) }
