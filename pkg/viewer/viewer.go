// Package viewer runs one interactive view of a snapshot for a host.
//
// A [Viewer] owns the view controller, the 2D renderer and the supervised 3D
// renderer, and translates host [Event]s into controller operations for the
// active mode. The HTTP server keeps one viewer per live session and the
// terminal UI keeps one for its lifetime.
//
// Viewer methods are serialized by an internal mutex. Frame and status
// callbacks run on the 3D frame loop goroutine and must not call back into
// the viewer.
package viewer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/layout"
	"github.com/matzehuels/codeflow/pkg/render/planar"
	"github.com/matzehuels/codeflow/pkg/render/spatial"
	"github.com/matzehuels/codeflow/pkg/view"
)

// Result is the outcome of an event.
type Result struct {
	State     view.State      `json:"state"`
	Selection *view.Selection `json:"selection,omitempty"`
	Status    spatial.Status  `json:"status"`
	Message   string          `json:"message,omitempty"`
}

// Option configures a [Viewer].
type Option func(*Viewer)

// WithDevice sets the 3D device. The default draws SVG.
func WithDevice(dev spatial.Device) Option {
	return func(v *Viewer) {
		if dev != nil {
			v.dev = dev
		}
	}
}

// WithState restores a saved view state.
func WithState(st view.State) Option {
	return func(v *Viewer) { v.state = &st }
}

// WithViewport sets the initial viewport size in pixels.
func WithViewport(w, h float64) Option {
	return func(v *Viewer) {
		if w > 0 && h > 0 {
			v.width, v.height = w, h
		}
	}
}

// WithFrameInterval sets the 3D frame loop period.
func WithFrameInterval(d time.Duration) Option {
	return func(v *Viewer) {
		if d > 0 {
			v.interval = d
		}
	}
}

// WithFrameHandler is called after each 3D frame drawn by the loop.
func WithFrameHandler(fn func()) Option {
	return func(v *Viewer) { v.onFrame = fn }
}

// WithStatusHandler is called when the 3D status changes.
func WithStatusHandler(fn func(spatial.Status, error)) Option {
	return func(v *Viewer) { v.onStatus = fn }
}

// WithChangeHandler is called after each view state change.
func WithChangeHandler(fn func(view.State)) Option {
	return func(v *Viewer) { v.onChange = fn }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(v *Viewer) {
		if l != nil {
			v.logger = l
		}
	}
}

// Viewer is one interactive view.
type Viewer struct {
	mu sync.Mutex

	snap graph.Snapshot
	res  *layout.Result
	ctrl *view.Controller
	flat *planar.Renderer
	deep *spatial.Renderer
	sup  *spatial.Supervisor
	dev  spatial.Device

	// live means the host wants the 3D frame loop running while in 3D.
	live bool

	state    *view.State
	width    float64
	height   float64
	interval time.Duration
	logger   *log.Logger
	onFrame  func()
	onStatus func(spatial.Status, error)
	onChange func(view.State)
}

// New creates a viewer for s laid out as res.
func New(s graph.Snapshot, res *layout.Result, opts ...Option) *Viewer {
	v := &Viewer{
		width:    planar.DefaultWidth,
		height:   planar.DefaultHeight,
		interval: spatial.DefaultFrameInterval,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.dev == nil {
		v.dev = spatial.NewSVGDevice(v.width, v.height)
	}
	var ctrlOpts []view.Option
	if v.onChange != nil {
		ctrlOpts = append(ctrlOpts, view.WithChangeHandler(v.onChange))
	}
	if v.state != nil {
		v.ctrl = view.Restore(nil, s, *v.state, ctrlOpts...)
	} else {
		v.ctrl = view.New(nil, ctrlOpts...)
	}
	v.build(s, res)
	return v
}

// build creates both renderers for s. Callers hold v.mu or own v exclusively.
func (v *Viewer) build(s graph.Snapshot, res *layout.Result) {
	v.snap, v.res = s, res
	v.flat = planar.New(planar.NewScene(s, res), v.ctrl, planar.WithViewport(v.width, v.height))
	v.deep = spatial.NewRenderer(spatial.NewScene(s, res), v.ctrl, v.dev, v.width, v.height)
	v.sup = spatial.NewSupervisor(v.deep,
		spatial.WithFrameInterval(v.interval),
		spatial.WithFrameHandler(v.onFrame),
		spatial.WithStatusHandler(v.onStatus),
		spatial.WithSupervisorLogger(v.logger),
	)
}

// Controller returns the view controller.
func (v *Viewer) Controller() *view.Controller { return v.ctrl }

// Snapshot returns the snapshot being viewed.
func (v *Viewer) Snapshot() graph.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

// Layout returns the layout of the snapshot being viewed.
func (v *Viewer) Layout() *layout.Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.res
}

// Planar returns the 2D renderer.
func (v *Viewer) Planar() *planar.Renderer {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.flat
}

// Spatial returns the 3D supervisor.
func (v *Viewer) Spatial() *spatial.Supervisor {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sup
}

// Device returns the 3D device.
func (v *Viewer) Device() spatial.Device { return v.dev }

// Viewport returns the viewport size.
func (v *Viewer) Viewport() (w, h float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width, v.height
}

// Result reports the current state, selection and 3D status.
func (v *Viewer) Result() Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.resultLocked()
}

func (v *Viewer) resultLocked() Result {
	r := Result{State: v.ctrl.State()}
	if sel, ok := v.ctrl.Selection(); ok {
		r.Selection = &sel
	}
	r.Status, _ = v.sup.Status()
	r.Message = v.sup.Message()
	return r
}

// Start marks the viewer live: while in 3D the frame loop runs and pushes
// frames through the frame handler.
func (v *Viewer) Start(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.live = true
	if v.ctrl.State().Mode == view.Mode3D {
		v.sup.Start(ctx)
	}
}

// Stop ends the frame loop and releases 3D resources. The viewer stays
// usable; frames are then drawn on demand.
func (v *Viewer) Stop(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.live = false
	v.sup.Stop(ctx)
}

// Close stops the frame loop, releases 3D resources and ends any drag.
func (v *Viewer) Close(ctx context.Context) {
	v.Stop(ctx)
	v.ctrl.Teardown()
}

// Replace swaps in a new snapshot. A changed snapshot resets the view state.
// The 3D loop is restarted if it was running.
func (v *Viewer) Replace(ctx context.Context, s graph.Snapshot, res *layout.Result) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s.Hash() == v.snap.Hash() {
		return false
	}
	v.sup.Stop(ctx)
	v.ctrl.Load(s)
	v.build(s, res)
	if v.live && v.ctrl.State().Mode == view.Mode3D {
		v.sup.Start(ctx)
	}
	v.logger.Debug("snapshot replaced", "nodes", len(s.Nodes), "edges", len(s.Edges))
	return true
}

// Apply runs one host event against the active mode.
func (v *Viewer) Apply(ctx context.Context, e Event) (Result, error) {
	if err := e.Validate(); err != nil {
		return Result{}, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	mode := v.ctrl.State().Mode
	switch e.Type {
	case PointerDown:
		if mode == view.Mode3D {
			v.pointerDown3D(ctx, e.Point())
		} else {
			v.flat.PointerDown(e.Point())
		}
	case PointerMove:
		v.ctrl.Window().DispatchMove(e.Point())
	case PointerUp:
		v.ctrl.Window().DispatchUp(e.Point())
	case Blur:
		v.ctrl.Window().DispatchBlur()
	case Wheel:
		switch {
		case e.DY < 0:
			v.zoomLocked(true)
		case e.DY > 0:
			v.zoomLocked(false)
		}
	case ZoomIn:
		v.zoomLocked(true)
	case ZoomOut:
		v.zoomLocked(false)
	case SetMode:
		m, err := view.ParseMode(e.Mode)
		if err != nil {
			return Result{}, err
		}
		v.setModeLocked(ctx, m)
	case Select:
		v.ctrl.Select(e.ID)
	case Resize:
		if err := v.resizeLocked(ctx, e.Width, e.Height); err != nil {
			return Result{}, err
		}
	case Orbit:
		if mode == view.Mode3D {
			// A degraded view ignores orbit input; the status says why.
			_ = v.sup.Do(ctx, func(r *spatial.Renderer) error {
				r.Orbit(e.DX, e.DY)
				return nil
			})
		} else {
			v.ctrl.PanBy(e.DX, e.DY)
		}
	case Retry:
		v.retryLocked(ctx)
	default:
		return Result{}, errors.New(errors.ErrCodeInvalidEvent, "unknown event type %q", e.Type)
	}
	return v.resultLocked(), nil
}

// ToggleMode switches between 2D and 3D.
func (v *Viewer) ToggleMode(ctx context.Context) view.Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	next := view.Mode3D
	if v.ctrl.State().Mode == view.Mode3D {
		next = view.Mode2D
	}
	v.setModeLocked(ctx, next)
	return next
}

func (v *Viewer) zoomLocked(in bool) {
	switch {
	case v.ctrl.State().Mode == view.Mode3D && in:
		v.ctrl.DollyIn()
	case v.ctrl.State().Mode == view.Mode3D:
		v.ctrl.DollyOut()
	case in:
		v.ctrl.ZoomIn()
	default:
		v.ctrl.ZoomOut()
	}
}

func (v *Viewer) setModeLocked(ctx context.Context, m view.Mode) {
	prev := v.ctrl.State().Mode
	// ParseMode already rejected unknown modes.
	_ = v.ctrl.SetMode(m)
	switch {
	case prev == view.Mode3D && m != view.Mode3D:
		v.sup.Stop(ctx)
	case prev != view.Mode3D && m == view.Mode3D && v.live:
		v.sup.Start(ctx)
	}
}

func (v *Viewer) resizeLocked(ctx context.Context, w, h float64) error {
	if w <= 0 || h <= 0 {
		return errors.New(errors.ErrCodeInvalidEvent, "invalid viewport %gx%g", w, h)
	}
	v.width, v.height = w, h
	v.flat.Resize(w, h)
	// A failed 3D resize degrades the view; the 2D view is unaffected.
	if err := v.sup.Resize(ctx, w, h); err != nil {
		v.logger.Debug("3D resize failed", "err", err)
	}
	return nil
}

func (v *Viewer) pointerDown3D(ctx context.Context, p view.Point) {
	// Picking needs a frame under the current camera.
	if _, err := v.sup.RenderOnce(ctx); err != nil {
		return
	}
	_ = v.sup.Do(ctx, func(r *spatial.Renderer) error {
		r.PointerDown(p)
		return nil
	})
}

func (v *Viewer) retryLocked(ctx context.Context) {
	v.sup.Retry(ctx)
	if !v.live || v.ctrl.State().Mode != view.Mode3D {
		// Retry starts the loop; without a live host frames are drawn on
		// demand instead.
		v.sup.Stop(ctx)
	}
}

// Render3D draws a 3D frame outside the loop. A degraded view reports
// RENDER_UNAVAILABLE.
func (v *Viewer) Render3D(ctx context.Context) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	drawn, err := v.sup.RenderOnce(ctx)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeRenderUnavailable, err, spatial.DegradedMessage)
	}
	return drawn, nil
}

type svgSource interface {
	Bytes() []byte
}

// SVG returns the current frame of the active mode as SVG. A degraded 3D view
// yields the degraded placeholder with its retry control.
func (v *Viewer) SVG(ctx context.Context) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ctrl.State().Mode == view.Mode2D {
		return v.flat.SVG(), nil
	}
	src, ok := v.dev.(svgSource)
	if !ok {
		return nil, fmt.Errorf("3D device %T does not produce SVG", v.dev)
	}
	if st, _ := v.sup.Status(); st != spatial.StatusDegraded {
		v.sup.RenderOnce(ctx)
	}
	if st, _ := v.sup.Status(); st == spatial.StatusDegraded {
		return spatial.DegradedSVG(v.width, v.height, spatial.DegradedMessage), nil
	}
	return src.Bytes(), nil
}
