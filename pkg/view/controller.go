package view

import (
	"math"
	"sync"

	"github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/style"
)

// Mode is the active renderer.
type Mode string

// View modes.
const (
	Mode2D Mode = "2d"
	Mode3D Mode = "3d"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Mode2D, Mode3D:
		return Mode(s), nil
	}
	return "", errors.New(errors.ErrCodeInvalidMode, "unknown view mode %q (want 2d or 3d)", s)
}

// Zoom and camera limits.
const (
	MinZoom     = 0.4
	MaxZoom     = 2.0
	ZoomStep    = 0.15
	DefaultZoom = 1.0

	MinDistance     = 4.0
	MaxDistance     = 25.0
	DefaultDistance = 10.0
	// DistanceFactor is the camera dolly ratio per zoom action.
	DistanceFactor = 1.2
)

// State is the serializable interaction state.
type State struct {
	SelectedID     string  `json:"selected_id,omitempty"`
	Mode           Mode    `json:"mode"`
	Zoom           float64 `json:"zoom"`
	Pan            Point   `json:"pan"`
	CameraDistance float64 `json:"camera_distance"`
	Dragging       bool    `json:"dragging"`
	DragAnchor     Point   `json:"drag_anchor"`
	// SnapshotHash identifies the snapshot the state belongs to.
	SnapshotHash string `json:"snapshot_hash,omitempty"`
}

// DefaultState returns the state of a freshly mounted 2D view.
func DefaultState() State {
	return State{
		Mode:           Mode2D,
		Zoom:           DefaultZoom,
		CameraDistance: DefaultDistance,
	}
}

// Selection describes the selected node for info panels and host callbacks.
type Selection struct {
	ID       string         `json:"id"`
	Label    string         `json:"label"`
	Type     graph.NodeType `json:"type,omitempty"`
	Category style.Category `json:"category"`
	Outgoing int            `json:"outgoing"`
	Incoming int            `json:"incoming"`
}

// Option configures a [Controller].
type Option func(*Controller)

// WithSelectionHandler is called after every selection change.
func WithSelectionHandler(fn func(Selection)) Option {
	return func(c *Controller) { c.onSelect = fn }
}

// WithChangeHandler is called after every state change.
func WithChangeHandler(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// Controller owns the view state of one hosted view.
type Controller struct {
	mu     sync.Mutex
	state  State
	snap   graph.Snapshot
	window *Window
	drag   *DragSession
	gen    uint64 // identifies the current drag for its callbacks

	onSelect func(Selection)
	onChange func(State)
}

// New creates a controller whose drag sessions listen on w. A nil w gets a
// private window.
func New(w *Window, opts ...Option) *Controller {
	if w == nil {
		w = NewWindow()
	}
	c := &Controller{state: DefaultState(), window: w}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Restore creates a controller bound to snap with a previously saved state.
// The state is discarded if it belongs to a different snapshot; an interrupted
// drag is not resumed.
func Restore(w *Window, snap graph.Snapshot, st State, opts ...Option) *Controller {
	c := New(w, opts...)
	c.snap = snap
	hash := snap.Hash()
	if st.SnapshotHash != hash {
		st = DefaultState()
	}
	st.SnapshotHash = hash
	st.Dragging, st.DragAnchor = false, Point{}
	st.Zoom = clamp(st.Zoom, MinZoom, MaxZoom)
	st.CameraDistance = clamp(st.CameraDistance, MinDistance, MaxDistance)
	if st.Mode != Mode3D {
		st.Mode = Mode2D
	}
	if _, ok := snap.Node(st.SelectedID); !ok {
		st.SelectedID = ""
	}
	c.state = st
	return c
}

// Window returns the listener scope drag sessions attach to.
func (c *Controller) Window() *Window { return c.window }

// Load binds the controller to s. If the snapshot's identity differs from the
// current one, all state is reset and true is returned.
func (c *Controller) Load(s graph.Snapshot) bool {
	hash := s.Hash()
	c.mu.Lock()
	if hash == c.state.SnapshotHash {
		c.snap = s
		c.mu.Unlock()
		return false
	}
	c.stopDragLocked()
	c.snap = s
	c.state = DefaultState()
	c.state.SnapshotHash = hash
	st := c.state
	c.mu.Unlock()

	c.changed(st)
	return true
}

// Snapshot returns the bound snapshot.
func (c *Controller) Snapshot() graph.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetMode switches the active renderer. The selection survives; pan, zoom,
// camera distance and any drag are reset.
func (c *Controller) SetMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}
	c.mu.Lock()
	c.stopDragLocked()
	c.state.Mode = m
	c.state.Zoom = DefaultZoom
	c.state.Pan = Point{}
	c.state.CameraDistance = DefaultDistance
	st := c.state
	c.mu.Unlock()

	c.changed(st)
	return nil
}

// ToggleMode switches between 2D and 3D.
func (c *Controller) ToggleMode() Mode {
	next := Mode3D
	if c.State().Mode == Mode3D {
		next = Mode2D
	}
	_ = c.SetMode(next)
	return next
}

// Select makes id the selected node. Unknown ids are ignored and reported as
// false; the previous selection stays.
func (c *Controller) Select(id string) (Selection, bool) {
	c.mu.Lock()
	n, ok := c.snap.Node(id)
	if !ok {
		c.mu.Unlock()
		return Selection{}, false
	}
	c.state.SelectedID = id
	sel := selectionOf(c.snap, n)
	st := c.state
	c.mu.Unlock()

	if c.onSelect != nil {
		c.onSelect(sel)
	}
	c.changed(st)
	return sel, true
}

// Selection returns the selected node, if any.
func (c *Controller) Selection() (Selection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.snap.Node(c.state.SelectedID)
	if c.state.SelectedID == "" || !ok {
		return Selection{}, false
	}
	return selectionOf(c.snap, n), true
}

func selectionOf(s graph.Snapshot, n graph.Node) Selection {
	out, in := s.EdgeCounts(n.ID)
	return Selection{
		ID:       n.ID,
		Label:    n.DisplayLabel(),
		Type:     n.Type,
		Category: style.ClassifyNode(n),
		Outgoing: out,
		Incoming: in,
	}
}

// ZoomIn raises the 2D zoom by one step and returns the new value.
func (c *Controller) ZoomIn() float64 { return c.SetZoom(c.State().Zoom + ZoomStep) }

// ZoomOut lowers the 2D zoom by one step and returns the new value.
func (c *Controller) ZoomOut() float64 { return c.SetZoom(c.State().Zoom - ZoomStep) }

// SetZoom sets the 2D zoom, clamped to [MinZoom, MaxZoom].
func (c *Controller) SetZoom(z float64) float64 {
	c.mu.Lock()
	c.state.Zoom = clamp(round(z), MinZoom, MaxZoom)
	st := c.state
	c.mu.Unlock()
	c.changed(st)
	return st.Zoom
}

// PanBy translates the 2D view.
func (c *Controller) PanBy(dx, dy float64) Point {
	c.mu.Lock()
	c.state.Pan = Point{c.state.Pan.X + dx, c.state.Pan.Y + dy}
	st := c.state
	c.mu.Unlock()
	c.changed(st)
	return st.Pan
}

// DollyIn moves the 3D camera toward the target by one step.
func (c *Controller) DollyIn() float64 {
	return c.SetCameraDistance(c.State().CameraDistance / DistanceFactor)
}

// DollyOut moves the 3D camera away from the target by one step.
func (c *Controller) DollyOut() float64 {
	return c.SetCameraDistance(c.State().CameraDistance * DistanceFactor)
}

// SetCameraDistance sets the 3D camera distance, clamped to
// [MinDistance, MaxDistance].
func (c *Controller) SetCameraDistance(d float64) float64 {
	c.mu.Lock()
	c.state.CameraDistance = clamp(d, MinDistance, MaxDistance)
	st := c.state
	c.mu.Unlock()
	c.changed(st)
	return st.CameraDistance
}

// BeginDrag starts a pan drag at pointer. Any earlier drag is ended first.
// Callers must only start a drag for pointer-downs that did not hit a node.
func (c *Controller) BeginDrag(pointer Point) {
	c.mu.Lock()
	c.stopDragLocked()
	c.gen++
	gen := c.gen
	sess := StartDrag(c.window, pointer, c.state.Pan,
		func(pan Point) { c.dragMoved(gen, pan) },
		func() { c.dragEnded(gen) },
	)
	c.drag = sess
	c.state.Dragging = true
	c.state.DragAnchor = sess.Anchor()
	st := c.state
	c.mu.Unlock()
	c.changed(st)
}

// EndDrag stops the active drag, if any.
func (c *Controller) EndDrag() {
	c.mu.Lock()
	was := c.stopDragLocked()
	st := c.state
	c.mu.Unlock()
	if was {
		c.changed(st)
	}
}

// Teardown ends the drag session and releases its listeners. The controller
// may be reused after Load.
func (c *Controller) Teardown() {
	c.mu.Lock()
	c.stopDragLocked()
	c.mu.Unlock()
}

func (c *Controller) dragMoved(gen uint64, pan Point) {
	c.mu.Lock()
	if c.drag == nil || c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.state.Pan = pan
	st := c.state
	c.mu.Unlock()
	c.changed(st)
}

func (c *Controller) dragEnded(gen uint64) {
	c.mu.Lock()
	if c.drag == nil || c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.drag = nil
	c.state.Dragging = false
	c.state.DragAnchor = Point{}
	st := c.state
	c.mu.Unlock()
	c.changed(st)
}

func (c *Controller) stopDragLocked() bool {
	if c.drag == nil {
		return false
	}
	c.drag.End()
	c.drag = nil
	c.state.Dragging = false
	c.state.DragAnchor = Point{}
	return true
}

func (c *Controller) changed(st State) {
	if c.onChange != nil {
		c.onChange(st)
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// round trims float noise from repeated ±0.15 steps.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
