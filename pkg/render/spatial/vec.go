package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a point or direction in world space. It keeps named fields for the
// scene and frame types; arithmetic runs on [mgl64.Vec3].
type Vec3 struct {
	X, Y, Z float64
}

func (a Vec3) gl() mgl64.Vec3 { return mgl64.Vec3{a.X, a.Y, a.Z} }

func fromGL(v mgl64.Vec3) Vec3 { return Vec3{v[0], v[1], v[2]} }

func (a Vec3) Add(b Vec3) Vec3             { return fromGL(a.gl().Add(b.gl())) }
func (a Vec3) Sub(b Vec3) Vec3             { return fromGL(a.gl().Sub(b.gl())) }
func (a Vec3) Scale(s float64) Vec3        { return fromGL(a.gl().Mul(s)) }
func (a Vec3) Dot(b Vec3) float64          { return a.gl().Dot(b.gl()) }
func (a Vec3) Len() float64                { return a.gl().Len() }
func (a Vec3) Cross(b Vec3) Vec3           { return fromGL(a.gl().Cross(b.gl())) }
func (a Vec3) Lerp(b Vec3, t float64) Vec3 { return a.Add(b.Sub(a).Scale(t)) }

// Norm returns a unit vector in the direction of a, or the zero vector.
func (a Vec3) Norm() Vec3 {
	if a.Len() == 0 {
		return Vec3{}
	}
	return fromGL(a.gl().Normalize())
}

// Finite reports whether every component is a finite number.
func (a Vec3) Finite() bool {
	for _, v := range [...]float64{a.X, a.Y, a.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Bezier samples the quadratic bezier (a, c, b) into segments+1 points.
func Bezier(a, c, b Vec3, segments int) []Vec3 {
	if segments < 1 {
		segments = 1
	}
	pts := make([]Vec3, segments+1)
	for i := range pts {
		t := float64(i) / float64(segments)
		u := 1 - t
		pts[i] = a.Scale(u * u).Add(c.Scale(2 * u * t)).Add(b.Scale(t * t))
	}
	return pts
}
