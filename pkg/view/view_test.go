package view

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/style"
)

func sample() graph.Snapshot {
	return graph.Snapshot{
		Nodes: []graph.Node{
			{ID: "A", Label: "App.tsx", Type: graph.TypeFile},
			{ID: "B", Label: "utils.js", Type: graph.TypeFile},
			{ID: "C", Label: "getUser", Type: graph.TypeFunction},
		},
		Edges: []graph.Edge{
			{Source: "A", Target: "B", Type: graph.EdgeImport},
			{Source: "A", Target: "C", Type: graph.EdgeCall},
		},
	}
}

func TestWindowAddRemove(t *testing.T) {
	w := NewWindow()
	var moves int
	remove := w.Add(Listener{Move: func(Point) { moves++ }})
	assert.Equal(t, 1, w.Len())

	w.DispatchMove(Point{1, 1})
	remove()
	remove()
	w.DispatchMove(Point{2, 2})

	assert.Equal(t, 1, moves)
	assert.Equal(t, 0, w.Len())
}

func TestDragSessionReleasesOnUp(t *testing.T) {
	w := NewWindow()
	var pans []Point
	ended := 0
	s := StartDrag(w, Point{100, 50}, Point{10, 10},
		func(p Point) { pans = append(pans, p) },
		func() { ended++ },
	)
	assert.Equal(t, Point{90, 40}, s.Anchor())

	w.DispatchMove(Point{120, 70})
	w.DispatchUp(Point{120, 70})
	w.DispatchUp(Point{0, 0})
	w.DispatchMove(Point{500, 500})

	assert.Equal(t, []Point{{30, 30}}, pans)
	assert.Equal(t, 1, ended)
	assert.Equal(t, 0, w.Len())
	assert.False(t, s.End(), "second End should be a no-op")
}

func TestDragSessionReleasesOnBlur(t *testing.T) {
	w := NewWindow()
	ended := 0
	StartDrag(w, Point{}, Point{}, nil, func() { ended++ })
	w.DispatchBlur()
	w.DispatchBlur()
	assert.Equal(t, 1, ended)
	assert.Equal(t, 0, w.Len())
}

func TestDragSessionExplicitEndSkipsCallback(t *testing.T) {
	w := NewWindow()
	ended := 0
	s := StartDrag(w, Point{}, Point{}, nil, func() { ended++ })
	assert.True(t, s.End())
	w.DispatchUp(Point{})
	assert.Equal(t, 0, ended)
	assert.Equal(t, 0, w.Len())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("3d")
	require.NoError(t, err)
	assert.Equal(t, Mode3D, m)

	_, err = ParseMode("4d")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidMode))
}

func TestControllerZoomClamp(t *testing.T) {
	c := New(nil)
	c.Load(sample())

	for i := 0; i < 10; i++ {
		c.ZoomIn()
	}
	assert.Equal(t, MaxZoom, c.State().Zoom)

	for i := 0; i < 20; i++ {
		c.ZoomOut()
	}
	assert.Equal(t, MinZoom, c.State().Zoom)

	c.SetZoom(1)
	assert.InDelta(t, 1.15, c.ZoomIn(), 1e-9)
}

func TestControllerCameraClamp(t *testing.T) {
	c := New(nil)
	assert.InDelta(t, DefaultDistance/DistanceFactor, c.DollyIn(), 1e-9)
	for i := 0; i < 20; i++ {
		c.DollyIn()
	}
	assert.Equal(t, MinDistance, c.State().CameraDistance)
	for i := 0; i < 30; i++ {
		c.DollyOut()
	}
	assert.Equal(t, MaxDistance, c.State().CameraDistance)
}

func TestControllerSelection(t *testing.T) {
	var got []Selection
	c := New(nil, WithSelectionHandler(func(s Selection) { got = append(got, s) }))
	c.Load(sample())

	sel, ok := c.Select("A")
	require.True(t, ok)
	assert.Equal(t, "App.tsx", sel.Label)
	assert.Equal(t, 2, sel.Outgoing)
	assert.Equal(t, 0, sel.Incoming)
	assert.Equal(t, style.React, sel.Category)

	_, ok = c.Select("missing")
	assert.False(t, ok)
	assert.Equal(t, "A", c.State().SelectedID, "unknown ids keep the previous selection")

	sel, ok = c.Select("C")
	require.True(t, ok)
	assert.Equal(t, 1, sel.Incoming)
	assert.Equal(t, style.Function, sel.Category)
	assert.Len(t, got, 2)
}

func TestControllerModeSwitch(t *testing.T) {
	w := NewWindow()
	c := New(w)
	c.Load(sample())
	c.Select("B")
	c.SetZoom(1.6)
	c.PanBy(40, -20)
	c.BeginDrag(Point{10, 10})
	require.Equal(t, 1, w.Len())

	require.NoError(t, c.SetMode(Mode3D))

	st := c.State()
	assert.Equal(t, Mode3D, st.Mode)
	assert.Equal(t, "B", st.SelectedID)
	assert.Equal(t, DefaultZoom, st.Zoom)
	assert.Equal(t, Point{}, st.Pan)
	assert.Equal(t, DefaultDistance, st.CameraDistance)
	assert.False(t, st.Dragging)
	assert.Equal(t, 0, w.Len(), "mode switch must release drag listeners")

	assert.Error(t, c.SetMode("4d"))
	assert.Equal(t, Mode2D, c.ToggleMode())
}

func TestControllerDrag(t *testing.T) {
	w := NewWindow()
	c := New(w)
	c.Load(sample())
	c.PanBy(10, 10)

	c.BeginDrag(Point{100, 100})
	st := c.State()
	assert.True(t, st.Dragging)
	assert.Equal(t, Point{90, 90}, st.DragAnchor)

	w.DispatchMove(Point{150, 120})
	assert.Equal(t, Point{60, 30}, c.State().Pan)

	// Release outside the canvas still ends the drag.
	w.DispatchUp(Point{-500, -500})
	st = c.State()
	assert.False(t, st.Dragging)
	assert.Equal(t, 0, w.Len())

	w.DispatchMove(Point{0, 0})
	assert.Equal(t, Point{60, 30}, c.State().Pan)
}

func TestControllerBlurEndsDrag(t *testing.T) {
	w := NewWindow()
	c := New(w)
	c.BeginDrag(Point{})
	w.DispatchBlur()
	assert.False(t, c.State().Dragging)
	assert.Equal(t, 0, w.Len())
}

func TestControllerTeardown(t *testing.T) {
	w := NewWindow()
	c := New(w)
	c.BeginDrag(Point{})
	c.BeginDrag(Point{5, 5})
	assert.Equal(t, 1, w.Len(), "a new drag replaces the old one")
	c.Teardown()
	assert.Equal(t, 0, w.Len())
	assert.False(t, c.State().Dragging)
}

func TestControllerLoadResets(t *testing.T) {
	w := NewWindow()
	var changes int
	c := New(w, WithChangeHandler(func(State) { changes++ }))
	assert.True(t, c.Load(sample()))
	c.Select("A")
	require.NoError(t, c.SetMode(Mode3D))
	c.BeginDrag(Point{})

	assert.False(t, c.Load(sample()), "same content keeps state")
	assert.Equal(t, "A", c.State().SelectedID)

	next := sample()
	next.Nodes = append(next.Nodes, graph.Node{ID: "D"})
	assert.True(t, c.Load(next))

	st := c.State()
	assert.Equal(t, "", st.SelectedID)
	assert.Equal(t, Mode2D, st.Mode)
	assert.Equal(t, next.Hash(), st.SnapshotHash)
	assert.Equal(t, 0, w.Len())
	assert.Positive(t, changes)
}

func TestRestore(t *testing.T) {
	s := sample()
	st := State{
		SelectedID:     "C",
		Mode:           Mode3D,
		Zoom:           9,
		CameraDistance: 1,
		Dragging:       true,
		SnapshotHash:   s.Hash(),
	}
	c := Restore(nil, s, st)
	got := c.State()
	assert.Equal(t, "C", got.SelectedID)
	assert.Equal(t, Mode3D, got.Mode)
	assert.Equal(t, MaxZoom, got.Zoom)
	assert.Equal(t, MinDistance, got.CameraDistance)
	assert.False(t, got.Dragging)

	st.SnapshotHash = "stale"
	got = Restore(nil, s, st).State()
	assert.Equal(t, DefaultState().Mode, got.Mode)
	assert.Equal(t, "", got.SelectedID)
}

func TestControllerConcurrentUse(t *testing.T) {
	w := NewWindow()
	c := New(w)
	c.Load(sample())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.BeginDrag(Point{float64(i), 0})
			w.DispatchMove(Point{float64(i), 5})
			c.ZoomIn()
			w.DispatchUp(Point{})
		}(i)
	}
	wg.Wait()
	c.Teardown()
	assert.Equal(t, 0, w.Len())
}
