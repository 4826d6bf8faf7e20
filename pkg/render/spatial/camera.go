package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/codeflow/pkg/view"
)

// Camera defaults.
const (
	FOV  = 50.0
	Near = 0.1
	Far  = 1000.0

	// Damping is the fraction of the pending rotation applied per update.
	Damping = 0.05
)

// Camera is a perspective camera.
type Camera struct {
	// FOV is the vertical field of view in degrees.
	FOV      float64
	Near     float64
	Far      float64
	Aspect   float64
	Position Vec3
	Target   Vec3
	Up       Vec3
}

// NewCamera returns the initial camera: at (0, 0, [view.DefaultDistance])
// looking at the origin.
func NewCamera(aspect float64) *Camera {
	if aspect <= 0 {
		aspect = 1
	}
	return &Camera{
		FOV:      FOV,
		Near:     Near,
		Far:      Far,
		Aspect:   aspect,
		Position: Vec3{0, 0, view.DefaultDistance},
		Up:       Vec3{0, 1, 0},
	}
}

// SetAspect updates the aspect ratio from a viewport size.
func (c *Camera) SetAspect(w, h float64) {
	if w > 0 && h > 0 {
		c.Aspect = w / h
	}
}

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl64.Mat4 {
	return mgl64.LookAtV(c.Position.gl(), c.Target.gl(), c.Up.gl())
}

// Projection returns the perspective matrix.
func (c *Camera) Projection() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// Project maps p to viewport coordinates of a w x h viewport. It also returns
// the view depth and whether p lies inside the near/far range.
func (c *Camera) Project(p Vec3, w, h float64) (view.Point, float64, bool) {
	eye := c.View().Mul4x1(p.gl().Vec4(1))
	depth := -eye.Z()
	if depth < c.Near || depth > c.Far {
		return view.Point{}, depth, false
	}
	clip := c.Projection().Mul4x1(eye)
	nx, ny := clip.X()/clip.W(), clip.Y()/clip.W()
	return view.Point{X: (nx + 1) / 2 * w, Y: (1 - ny) / 2 * h}, depth, true
}

// PixelsPerUnit returns how many viewport pixels one world unit spans at the
// given depth of a viewport h pixels tall.
func (c *Camera) PixelsPerUnit(depth, h float64) float64 {
	if depth <= 0 {
		return 0
	}
	return h / 2 * c.Projection().At(1, 1) / depth
}

// OrbitControls rotate a camera around a target on a sphere.
type OrbitControls struct {
	Target      Vec3
	Damping     float64
	MinDistance float64
	MaxDistance float64

	theta, phi   float64 // azimuth around +y from +z, polar angle from +y
	distance     float64
	dTheta, dPhi float64
}

const minPolar = 1e-6

// NewOrbitControls derives the orbit from the camera's current position.
func NewOrbitControls(c *Camera) *OrbitControls {
	o := &OrbitControls{
		Target:      c.Target,
		Damping:     Damping,
		MinDistance: view.MinDistance,
		MaxDistance: view.MaxDistance,
	}
	off := c.Position.Sub(c.Target)
	o.distance = off.Len()
	if o.distance > 0 {
		o.theta = math.Atan2(off.X, off.Z)
		o.phi = math.Acos(math.Max(-1, math.Min(1, off.Y/o.distance)))
	}
	o.distance = o.clampDistance(o.distance)
	return o
}

// Rotate queues a rotation for a pointer displacement of (dx, dy) pixels on a
// viewport h pixels tall. A full-height drag turns the camera once around.
func (o *OrbitControls) Rotate(dx, dy, h float64) {
	if h <= 0 {
		return
	}
	o.dTheta -= 2 * math.Pi * dx / h
	o.dPhi -= 2 * math.Pi * dy / h
}

// SetAngles places the camera at the given azimuth and polar angle
// (radians) immediately, discarding pending rotation.
func (o *OrbitControls) SetAngles(theta, phi float64) {
	o.theta = theta
	o.phi = clampPolar(phi)
	o.dTheta, o.dPhi = 0, 0
}

// Reset returns the orbit to the initial camera direction, on +z at the
// current distance, and drops pending rotation.
func (o *OrbitControls) Reset() { o.SetAngles(0, math.Pi/2) }

// Angles returns the azimuth and polar angle.
func (o *OrbitControls) Angles() (theta, phi float64) { return o.theta, o.phi }

// SetDistance sets the orbit radius, clamped to the distance limits.
func (o *OrbitControls) SetDistance(d float64) { o.distance = o.clampDistance(d) }

// Distance returns the orbit radius.
func (o *OrbitControls) Distance() float64 { return o.distance }

// Settled reports whether no rotation is pending.
func (o *OrbitControls) Settled() bool { return o.dTheta == 0 && o.dPhi == 0 }

// Update applies one damped step of the pending rotation and moves the
// camera. It reports whether the camera position changed.
func (o *OrbitControls) Update(c *Camera) bool {
	o.theta += o.dTheta * o.Damping
	o.phi = clampPolar(o.phi + o.dPhi*o.Damping)
	o.dTheta *= 1 - o.Damping
	o.dPhi *= 1 - o.Damping
	if math.Abs(o.dTheta) < 1e-6 {
		o.dTheta = 0
	}
	if math.Abs(o.dPhi) < 1e-6 {
		o.dPhi = 0
	}

	sin := math.Sin(o.phi)
	pos := o.Target.Add(Vec3{
		X: o.distance * sin * math.Sin(o.theta),
		Y: o.distance * math.Cos(o.phi),
		Z: o.distance * sin * math.Cos(o.theta),
	})
	moved := pos.Sub(c.Position).Len() > 1e-9
	c.Position = pos
	c.Target = o.Target
	return moved
}

func (o *OrbitControls) clampDistance(d float64) float64 {
	if math.IsNaN(d) {
		return o.MinDistance
	}
	return math.Max(o.MinDistance, math.Min(o.MaxDistance, d))
}

func clampPolar(phi float64) float64 {
	return math.Max(minPolar, math.Min(math.Pi-minPolar, phi))
}
