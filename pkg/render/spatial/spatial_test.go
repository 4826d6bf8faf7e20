package spatial

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/layout"
	"github.com/matzehuels/codeflow/pkg/observability"
	"github.com/matzehuels/codeflow/pkg/style"
	"github.com/matzehuels/codeflow/pkg/view"
)

func fixture() (graph.Snapshot, *layout.Result) {
	s := graph.Snapshot{
		Nodes: []graph.Node{
			{ID: "a", Label: "AuthenticationProvider.tsx", Type: graph.TypeFile},
			{ID: "b", Label: "db", Type: graph.TypeFolder},
		},
		Edges: []graph.Edge{
			{Source: "a", Target: "b", Type: graph.EdgeDependency},
			{Source: "a", Target: "ghost"},
		},
	}
	res := &layout.Result{
		Nodes: []layout.Node{
			{ID: "a", Label: "AuthenticationProvider.tsx", Type: graph.TypeFile, X: 0, Y: 0},
			{ID: "b", Label: "db", Type: graph.TypeFolder, X: 0, Y: 240},
		},
		Hash: s.Hash(),
	}
	return s, res
}

func TestProject(t *testing.T) {
	_, res := fixture()
	pos := Project(res)
	require.Len(t, pos, 2)
	assert.InDelta(t, 0, pos[0].X, 1e-12)
	assert.InDelta(t, 120*Scale, pos[0].Y, 1e-12)
	assert.InDelta(t, -120*Scale, pos[1].Y, 1e-12)
	assert.Zero(t, pos[0].Z)

	assert.Empty(t, Project(&layout.Result{}))
}

func TestNewScene(t *testing.T) {
	s, res := fixture()
	sc := NewScene(s, res)

	require.Len(t, sc.Spheres, 2)
	a := sc.Spheres[0]
	assert.Equal(t, SphereRadius, a.Radius)
	assert.Equal(t, SphereSegments, a.Segments)
	assert.Equal(t, style.React, a.Style.Category)

	require.Len(t, sc.Billboards, 4)
	icon, label := sc.Billboards[0], sc.Billboards[1]
	assert.Equal(t, IconBillboard, icon.Kind)
	assert.InDelta(t, IconLift, icon.Anchor.Z, 1e-12)
	assert.Equal(t, LabelBillboard, label.Kind)
	assert.InDelta(t, a.Center.Y-LabelDrop, label.Anchor.Y, 1e-12)
	assert.Equal(t, "Authentication…", label.Text)
	assert.Equal(t, "file", label.Caption)

	require.Len(t, sc.Lines, 1, "dangling edges are skipped")
	line := sc.Lines[0]
	assert.Len(t, line.Points, CurveSegments+1)
	assert.Equal(t, style.DependencyEdgeColor, line.Color)
	assert.InDelta(t, -CurveSag/2, line.Points[CurveSegments/2].Z, 1e-12)
	assert.Equal(t, a.Center, line.Points[0])
}

func TestCameraProject(t *testing.T) {
	cam := NewCamera(2)
	p, depth, ok := cam.Project(Vec3{}, 800, 400)
	require.True(t, ok)
	assert.InDelta(t, 400, p.X, 1e-9)
	assert.InDelta(t, 200, p.Y, 1e-9)
	assert.InDelta(t, 10, depth, 1e-9)

	up, _, _ := cam.Project(Vec3{Y: 1}, 800, 400)
	assert.Less(t, up.Y, p.Y, "world up is screen up")

	_, _, ok = cam.Project(Vec3{Z: 20}, 800, 400)
	assert.False(t, ok, "points behind the camera are culled")
}

func TestOrbitControls(t *testing.T) {
	cam := NewCamera(1)
	o := NewOrbitControls(cam)
	theta, phi := o.Angles()
	assert.InDelta(t, 0, theta, 1e-12)
	assert.InDelta(t, math.Pi/2, phi, 1e-12)
	assert.InDelta(t, 10, o.Distance(), 1e-12)

	o.SetDistance(100)
	assert.Equal(t, view.MaxDistance, o.Distance())
	o.SetDistance(0)
	assert.Equal(t, view.MinDistance, o.Distance())
	o.SetDistance(10)

	o.Rotate(100, 0, 400)
	require.True(t, o.Update(cam))
	first := cam.Position
	assert.InDelta(t, 10, first.Len(), 1e-9)

	for i := 0; i < 2000 && !o.Settled(); i++ {
		o.Update(cam)
	}
	assert.True(t, o.Settled())
	theta, _ = o.Angles()
	assert.InDelta(t, -2*math.Pi*100/400, theta, 1e-3, "damped steps add up to the full rotation")
}

type recordingDevice struct {
	*SVGDevice
	released []Handle
}

func (d *recordingDevice) Release(h Handle) error {
	d.released = append(d.released, h)
	return d.SVGDevice.Release(h)
}

func TestResourceSetReleasesNewestFirst(t *testing.T) {
	dev := &recordingDevice{SVGDevice: NewSVGDevice(100, 100)}
	rs := NewResourceSet(dev)
	var acquired []Handle
	for i := 0; i < 3; i++ {
		h, err := dev.CreateMaterial(Material{Color: "#fff"})
		require.NoError(t, err)
		acquired = append(acquired, rs.Track(h))
	}

	n, err := rs.ReleaseAll()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []Handle{acquired[2], acquired[1], acquired[0]}, dev.released)
	assert.Zero(t, dev.Live())
	assert.Zero(t, rs.Len())

	require.ErrorIs(t, dev.Release(acquired[0]), ErrUnknownHandle)
}

func newRenderer(t *testing.T, dev Device) (*Renderer, *view.Controller) {
	t.Helper()
	s, res := fixture()
	ctrl := view.New(nil)
	return NewRenderer(NewScene(s, res), ctrl, dev, 800, 600), ctrl
}

func TestRendererLifecycle(t *testing.T) {
	dev := NewSVGDevice(1, 1)
	r, ctrl := newRenderer(t, dev)
	require.NoError(t, r.Init())

	// 2 spheres x (geometry + material), 1 line + 1 line material, 4 billboards.
	assert.Equal(t, 10, dev.Live())
	assert.Equal(t, 10, r.Resources().Len())

	drawn, err := r.Render()
	require.NoError(t, err)
	assert.True(t, drawn)
	out := string(dev.Bytes())
	assert.Contains(t, out, "Authentication…")
	assert.Contains(t, out, `<polyline`)
	assert.Equal(t, 2, strings.Count(out, `class="sphere"`))

	drawn, err = r.Render()
	require.NoError(t, err)
	assert.False(t, drawn, "nothing changed")

	ctrl.Select("b")
	drawn, _ = r.Render()
	assert.True(t, drawn, "selection is visible")

	n, err := r.Release()
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Zero(t, dev.Live())

	_, err = r.Render()
	assert.Error(t, err)
}

func TestRendererInitResetsCamera(t *testing.T) {
	r, _ := newRenderer(t, NewSVGDevice(800, 600))
	require.NoError(t, r.Init())
	initial := r.Camera().Position

	r.SetAngles(1.2, 0.4)
	r.Orbit(50, 20)
	_, err := r.Release()
	require.NoError(t, err)

	require.NoError(t, r.Init())
	assert.True(t, r.Settled())
	assert.InDelta(t, 0, r.Camera().Position.Sub(initial).Len(), 1e-9)
	assert.InDelta(t, view.DefaultDistance, r.Camera().Position.Z, 1e-9)
}

func TestRendererPickAndOrbitDrag(t *testing.T) {
	dev := NewSVGDevice(800, 600)
	r, ctrl := newRenderer(t, dev)
	require.NoError(t, r.Init())
	_, err := r.Render()
	require.NoError(t, err)

	b, ok := r.scene.Sphere("b")
	require.True(t, ok)
	p, _, _ := r.camera.Project(b.Center, 800, 600)
	r.PointerDown(p)
	assert.Equal(t, "b", ctrl.State().SelectedID)

	before := r.Camera().Position
	r.PointerDown(view.Point{X: 5, Y: 5})
	require.True(t, ctrl.State().Dragging)
	ctrl.Window().DispatchMove(view.Point{X: 105, Y: 5})
	ctrl.Window().DispatchUp(view.Point{X: 105, Y: 5})
	_, err = r.Render()
	require.NoError(t, err)
	assert.NotEqual(t, before, r.Camera().Position, "drag orbits the camera")
	assert.False(t, r.Settled(), "orbit keeps damped inertia")
	assert.InDelta(t, view.DefaultDistance, r.Camera().Position.Len(), 1e-9)
}

func TestRendererFollowsCameraDistance(t *testing.T) {
	r, ctrl := newRenderer(t, NewSVGDevice(800, 600))
	require.NoError(t, r.Init())
	ctrl.DollyIn()
	_, err := r.Render()
	require.NoError(t, err)
	assert.InDelta(t, view.DefaultDistance/view.DistanceFactor, r.Camera().Position.Len(), 1e-9)
}

func TestRendererResize(t *testing.T) {
	dev := NewSVGDevice(800, 600)
	r, _ := newRenderer(t, dev)
	require.NoError(t, r.Init())
	require.NoError(t, r.Resize(400, 400))
	assert.Equal(t, 1.0, r.Camera().Aspect)
	_, err := r.Render()
	require.NoError(t, err)
	assert.Contains(t, string(dev.Bytes()), `width="400" height="400"`)
	assert.Error(t, r.Resize(0, 10))
}

func TestCellDevice(t *testing.T) {
	dev := NewCellDevice(80, 24)
	w, h := dev.Viewport()
	assert.Equal(t, 80.0, w)
	assert.Equal(t, 48.0, h)

	r, _ := newRenderer(t, dev)
	r.width, r.height = w, h
	r.camera.SetAspect(w, h)
	require.NoError(t, r.Init())
	_, err := r.Render()
	require.NoError(t, err)

	out := dev.String()
	assert.Contains(t, out, style.Of(style.Folder).Glyph)
	assert.Contains(t, out, "db")
	assert.Len(t, dev.Cells(), 24)

	_, err = r.Release()
	require.NoError(t, err)
	assert.Zero(t, dev.Live())
}

func TestFrameLoop(t *testing.T) {
	var ticks atomic.Int64
	l := NewFrameLoop(time.Millisecond, func(context.Context) error {
		ticks.Add(1)
		return nil
	})
	l.Start(context.Background())
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)

	l.Stop()
	assert.False(t, l.Running())
	after := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, after, ticks.Load(), "no tick runs after Stop returns")
}

func TestFrameLoopEndsOnError(t *testing.T) {
	boom := errors.New("boom")
	l := NewFrameLoop(time.Millisecond, func(context.Context) error { return boom })
	l.Start(context.Background())
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not end")
	}
	assert.ErrorIs(t, l.Err(), boom)
	assert.False(t, l.Running())
	l.Stop()
}

// faultyDevice fails on demand.
type faultyDevice struct {
	*SVGDevice
	mu         sync.Mutex
	failCreate bool
	panicDraw  bool
}

func (d *faultyDevice) CreateOverlay(o Overlay) (Handle, error) {
	d.mu.Lock()
	fail := d.failCreate
	d.mu.Unlock()
	if fail {
		return 0, errors.New("context lost")
	}
	return d.SVGDevice.CreateOverlay(o)
}

func (d *faultyDevice) Draw(f Frame) error {
	d.mu.Lock()
	p := d.panicDraw
	d.mu.Unlock()
	if p {
		panic("gpu reset")
	}
	return d.SVGDevice.Draw(f)
}

type renderRecorder struct {
	observability.NoopRenderHooks
	mu       sync.Mutex
	degraded int
	released int
}

func (r *renderRecorder) OnDegraded(context.Context, string, error) {
	r.mu.Lock()
	r.degraded++
	r.mu.Unlock()
}

func (r *renderRecorder) OnRelease(_ context.Context, _ string, n int) {
	r.mu.Lock()
	r.released += n
	r.mu.Unlock()
}

func TestSupervisorInitFault(t *testing.T) {
	rec := &renderRecorder{}
	observability.SetRenderHooks(rec)
	t.Cleanup(observability.Reset)

	dev := &faultyDevice{SVGDevice: NewSVGDevice(800, 600), failCreate: true}
	r, _ := newRenderer(t, dev)
	var statuses []Status
	sup := NewSupervisor(r, WithStatusHandler(func(s Status, _ error) { statuses = append(statuses, s) }))

	ctx := context.Background()
	assert.Equal(t, StatusDegraded, sup.Start(ctx))
	assert.Equal(t, DegradedMessage, sup.Message())
	assert.Zero(t, dev.Live(), "partially acquired handles are released")
	assert.False(t, sup.Running())
	assert.Equal(t, 1, rec.degraded)
	assert.Equal(t, 6, rec.released)

	assert.Equal(t, StatusDegraded, sup.Start(ctx), "start does not clear a fault")

	dev.mu.Lock()
	dev.failCreate = false
	dev.mu.Unlock()
	assert.Equal(t, StatusRunning, sup.Retry(ctx))
	assert.Empty(t, sup.Message())
	assert.True(t, sup.Running())

	sup.Stop(ctx)
	assert.False(t, sup.Running())
	assert.Zero(t, dev.Live())
	assert.Contains(t, statuses, StatusDegraded)
	assert.Equal(t, StatusStopped, statuses[len(statuses)-1])
}

func TestSupervisorFramePanic(t *testing.T) {
	dev := &faultyDevice{SVGDevice: NewSVGDevice(800, 600)}
	r, _ := newRenderer(t, dev)
	var frames atomic.Int64
	sup := NewSupervisor(r, WithFrameInterval(time.Millisecond), WithFrameHandler(func() { frames.Add(1) }))

	ctx := context.Background()
	require.Equal(t, StatusRunning, sup.Start(ctx))
	require.Eventually(t, func() bool { return frames.Load() >= 1 }, time.Second, time.Millisecond)

	dev.mu.Lock()
	dev.panicDraw = true
	dev.mu.Unlock()
	// Force a redraw so the panicking Draw runs.
	require.NoError(t, sup.Do(ctx, func(r *Renderer) error { r.Orbit(50, 0); return nil }))

	require.Eventually(t, func() bool {
		st, _ := sup.Status()
		return st == StatusDegraded
	}, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return !sup.Running() }, time.Second, time.Millisecond)
	assert.Zero(t, dev.Live())
	_, cause := sup.Status()
	assert.ErrorContains(t, cause, "gpu reset")

	err := sup.Do(ctx, func(*Renderer) error { return nil })
	assert.Error(t, err, "operations are refused while degraded")

	dev.mu.Lock()
	dev.panicDraw = false
	dev.mu.Unlock()
	assert.Equal(t, StatusRunning, sup.Retry(ctx))
	sup.Stop(ctx)
	assert.Zero(t, dev.Live())
}

func TestSupervisorRenderOnce(t *testing.T) {
	dev := NewSVGDevice(800, 600)
	r, _ := newRenderer(t, dev)
	sup := NewSupervisor(r)
	ctx := context.Background()

	drawn, err := sup.RenderOnce(ctx)
	require.NoError(t, err)
	assert.True(t, drawn)
	assert.NotEmpty(t, dev.Bytes())
	assert.False(t, sup.Running())

	require.NoError(t, sup.Resize(ctx, 1024, 768))
	drawn, err = sup.RenderOnce(ctx)
	require.NoError(t, err)
	assert.True(t, drawn)

	sup.Stop(ctx)
	assert.Zero(t, dev.Live())
}

func TestSupervisorOperationFault(t *testing.T) {
	dev := NewSVGDevice(800, 600)
	r, _ := newRenderer(t, dev)
	sup := NewSupervisor(r)
	ctx := context.Background()
	require.Equal(t, StatusRunning, sup.Start(ctx))

	err := sup.Resize(ctx, -1, 10)
	require.Error(t, err)
	st, _ := sup.Status()
	assert.Equal(t, StatusDegraded, st)
	assert.False(t, sup.Running(), "the loop is stopped before resources are released")
	assert.Zero(t, dev.Live())
}

func TestDegradedSVG(t *testing.T) {
	out := string(DegradedSVG(640, 480, DegradedMessage))
	assert.Contains(t, out, DegradedMessage)
	assert.Contains(t, out, ">Retry<")
}

func TestBezier(t *testing.T) {
	pts := Bezier(Vec3{}, Vec3{X: 1, Y: 2}, Vec3{X: 2}, 4)
	require.Len(t, pts, 5)
	assert.Equal(t, Vec3{}, pts[0])
	assert.Equal(t, Vec3{X: 2}, pts[4])
	assert.InDelta(t, 1, pts[2].Y, 1e-12)
	assert.True(t, pts[2].Finite())
	assert.False(t, Vec3{X: math.NaN()}.Finite())
}
