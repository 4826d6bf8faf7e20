package spatial

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/matzehuels/codeflow/pkg/view"
)

// ErrNonFinite is returned when projection produces NaN or infinite
// coordinates.
var ErrNonFinite = errors.New("non-finite projection")

// Default viewport size.
const (
	DefaultWidth  = 1280.0
	DefaultHeight = 720.0
)

type meshHandles struct {
	geometry Handle
	material Handle
}

type frameKey struct {
	position Vec3
	width    float64
	height   float64
	selected string
}

// Renderer draws a scene onto a device from an orbiting camera. It is not
// safe for concurrent use; [Supervisor] serializes access.
type Renderer struct {
	scene *Scene
	ctrl  *view.Controller
	dev   Device
	res   *ResourceSet

	camera *Camera
	orbit  *OrbitControls
	width  float64
	height float64

	spheres  []meshHandles
	lines    []meshHandles
	overlays []Handle

	lastPan view.Point
	last    Frame
	lastKey frameKey
	drawn   bool
	ready   bool
}

// NewRenderer creates a renderer for scene drawing onto dev with a w x h
// viewport. No resources are acquired until [Renderer.Init].
func NewRenderer(scene *Scene, ctrl *view.Controller, dev Device, w, h float64) *Renderer {
	if w <= 0 || h <= 0 {
		w, h = DefaultWidth, DefaultHeight
	}
	cam := NewCamera(w / h)
	r := &Renderer{
		scene:  scene,
		ctrl:   ctrl,
		dev:    dev,
		res:    NewResourceSet(dev),
		camera: cam,
		orbit:  NewOrbitControls(cam),
		width:  w,
		height: h,
	}
	ctrl.Load(scene.Snapshot())
	st := ctrl.State()
	r.lastPan = st.Pan
	r.orbit.SetDistance(st.CameraDistance)
	return r
}

// Init acquires device resources for every sphere, line and billboard and
// places the camera at its initial position. On error the handles acquired so
// far stay tracked; call [Renderer.Release].
func (r *Renderer) Init() error {
	if err := r.dev.Resize(r.width, r.height); err != nil {
		return err
	}
	r.spheres = make([]meshHandles, len(r.scene.Spheres))
	for i, s := range r.scene.Spheres {
		g, err := r.dev.CreateGeometry(Geometry{Kind: SphereGeometry, Radius: s.Radius, Segments: s.Segments})
		if err != nil {
			return fmt.Errorf("sphere %s: %w", s.ID, err)
		}
		r.res.Track(g)
		m, err := r.dev.CreateMaterial(Material{Color: s.Style.Color, Emissive: Emissive, Opacity: 1})
		if err != nil {
			return fmt.Errorf("sphere material %s: %w", s.ID, err)
		}
		r.res.Track(m)
		r.spheres[i] = meshHandles{g, m}
	}

	lineMats := make(map[string]Handle)
	r.lines = make([]meshHandles, len(r.scene.Lines))
	for i, l := range r.scene.Lines {
		g, err := r.dev.CreateGeometry(Geometry{Kind: LineGeometry, Points: l.Points})
		if err != nil {
			return fmt.Errorf("edge %s->%s: %w", l.Source, l.Target, err)
		}
		r.res.Track(g)
		m, ok := lineMats[l.Color]
		if !ok {
			if m, err = r.dev.CreateMaterial(Material{Color: l.Color, Opacity: 0.8}); err != nil {
				return fmt.Errorf("edge material: %w", err)
			}
			r.res.Track(m)
			lineMats[l.Color] = m
		}
		r.lines[i] = meshHandles{g, m}
	}

	r.overlays = make([]Handle, len(r.scene.Billboards))
	for i, b := range r.scene.Billboards {
		h, err := r.dev.CreateOverlay(Overlay{Kind: b.Kind, Category: b.Category, Text: b.Text, Caption: b.Caption})
		if err != nil {
			return fmt.Errorf("billboard %s: %w", b.NodeID, err)
		}
		r.overlays[i] = r.res.Track(h)
	}
	// Each entry into 3D starts from the initial camera, as a fresh scene
	// would. Pan moved by the 2D view, or before a release, is not orbit input.
	st := r.ctrl.State()
	r.lastPan = st.Pan
	r.orbit.Reset()
	r.orbit.SetDistance(st.CameraDistance)
	r.orbit.Update(r.camera)
	r.ready = true
	r.drawn = false
	return nil
}

// Ready reports whether resources are acquired.
func (r *Renderer) Ready() bool { return r.ready }

// Resources returns the tracked handles.
func (r *Renderer) Resources() *ResourceSet { return r.res }

// Release frees every acquired handle, newest first.
func (r *Renderer) Release() (int, error) {
	r.ready = false
	r.drawn = false
	r.last = Frame{}
	return r.res.ReleaseAll()
}

// Resize updates the camera aspect and the device viewport.
func (r *Renderer) Resize(w, h float64) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("resize: invalid size %gx%g", w, h)
	}
	r.width, r.height = w, h
	r.camera.SetAspect(w, h)
	if r.ready {
		return r.dev.Resize(w, h)
	}
	return nil
}

// Viewport returns the viewport size.
func (r *Renderer) Viewport() (w, h float64) { return r.width, r.height }

// Camera returns a copy of the camera.
func (r *Renderer) Camera() Camera { return *r.camera }

// Orbit queues a rotation for a pointer displacement in pixels.
func (r *Renderer) Orbit(dx, dy float64) { r.orbit.Rotate(dx, dy, r.height) }

// SetAngles places the camera at an azimuth and polar angle in radians.
func (r *Renderer) SetAngles(theta, phi float64) {
	r.orbit.SetAngles(theta, phi)
	r.orbit.Update(r.camera)
}

// Settled reports whether the orbit has no pending inertia.
func (r *Renderer) Settled() bool { return r.orbit.Settled() }

// update advances the camera. In 3D the controller's pan only moves through
// drag sessions, so pan displacement since the last update is orbit input.
// The orbit distance follows the controller's camera distance.
func (r *Renderer) update() {
	st := r.ctrl.State()
	if d := st.Pan.Sub(r.lastPan); d != (view.Point{}) {
		r.orbit.Rotate(d.X, d.Y, r.height)
	}
	r.lastPan = st.Pan
	r.orbit.SetDistance(st.CameraDistance)
	r.orbit.Update(r.camera)
}

// Render advances the camera and draws a frame if anything visible changed.
// It reports whether a frame was drawn.
func (r *Renderer) Render() (bool, error) {
	if !r.ready {
		return false, errors.New("renderer not initialized")
	}
	r.update()
	key := frameKey{r.camera.Position, r.width, r.height, r.ctrl.State().SelectedID}
	if r.drawn && key == r.lastKey {
		return false, nil
	}
	f, err := r.BuildFrame()
	if err != nil {
		return false, err
	}
	if err := r.dev.Draw(f); err != nil {
		return false, err
	}
	r.last, r.lastKey, r.drawn = f, key, true
	return true, nil
}

// BuildFrame projects the scene from the current camera.
func (r *Renderer) BuildFrame() (Frame, error) {
	f := Frame{Width: r.width, Height: r.height}
	selected := r.ctrl.State().SelectedID

	for i, l := range r.scene.Lines {
		pts := make([]view.Point, 0, len(l.Points))
		depth := 0.0
		visible := true
		for _, p := range l.Points {
			sp, z, ok := r.camera.Project(p, r.width, r.height)
			if !ok {
				visible = false
				break
			}
			pts = append(pts, sp)
			depth += z
		}
		if !visible {
			continue
		}
		if err := finite(pts...); err != nil {
			return Frame{}, err
		}
		f.Lines = append(f.Lines, Line{
			Geometry: r.lines[i].geometry,
			Material: r.lines[i].material,
			Points:   pts,
			Depth:    depth / float64(len(pts)),
		})
	}

	for i, s := range r.scene.Spheres {
		c, z, ok := r.camera.Project(s.Center, r.width, r.height)
		if !ok {
			continue
		}
		if err := finite(c); err != nil {
			return Frame{}, err
		}
		f.Discs = append(f.Discs, Disc{
			Geometry: r.spheres[i].geometry,
			Material: r.spheres[i].material,
			NodeID:   s.ID,
			Center:   c,
			Radius:   s.Radius * r.camera.PixelsPerUnit(z, r.height),
			Depth:    z,
			Shade:    shadeAt(s.Center, r.camera.Position),
			Selected: s.ID == selected,
		})
	}

	for i, b := range r.scene.Billboards {
		at, z, ok := r.camera.Project(b.Anchor, r.width, r.height)
		if !ok {
			continue
		}
		if err := finite(at); err != nil {
			return Frame{}, err
		}
		f.Sprites = append(f.Sprites, Sprite{Overlay: r.overlays[i], At: at, Size: IconPixels, Depth: z})
	}

	sort.SliceStable(f.Lines, func(i, j int) bool { return f.Lines[i].Depth > f.Lines[j].Depth })
	sort.SliceStable(f.Discs, func(i, j int) bool { return f.Discs[i].Depth > f.Discs[j].Depth })
	sort.SliceStable(f.Sprites, func(i, j int) bool { return f.Sprites[i].Depth > f.Sprites[j].Depth })
	return f, nil
}

// Pick returns the node whose projected sphere contains p in the last drawn
// frame, nearest first.
func (r *Renderer) Pick(p view.Point) (string, bool) {
	for i := len(r.last.Discs) - 1; i >= 0; i-- {
		d := r.last.Discs[i]
		if math.Hypot(p.X-d.Center.X, p.Y-d.Center.Y) <= d.Radius {
			return d.NodeID, true
		}
	}
	return "", false
}

// PointerDown selects the sphere under p, or starts an orbit drag.
func (r *Renderer) PointerDown(p view.Point) {
	if id, ok := r.Pick(p); ok {
		r.ctrl.Select(id)
		return
	}
	r.ctrl.BeginDrag(p)
}

// shadeAt lights the camera-facing point of a sphere centered at c.
func shadeAt(c, eye Vec3) float64 {
	n := eye.Sub(c).Norm()
	total := Emissive
	for _, l := range Lights {
		if l.Ambient {
			total += l.Intensity / 2
			continue
		}
		total += l.Intensity / 2 * math.Max(0, n.Dot(l.Position.Sub(c).Norm()))
	}
	return math.Min(1, total)
}

func finite(pts ...view.Point) error {
	for _, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return ErrNonFinite
		}
	}
	return nil
}
