package view

import (
	"math"

	"github.com/park285/cheese-hopboard/internal/scene"
)

type Projection int

const (
	Orthographic Projection = iota
	Perspective
)

func (p Projection) String() string {
	if p == Perspective {
		return "perspective"
	}
	return "orthographic"
}

// Camera is one fixed viewpoint. Orthographic cameras use HalfHeight and the
// derived Left/Right/Top/Bottom; perspective cameras use FOV (degrees) and
// Aspect.
type Camera struct {
	Name       string
	Projection Projection
	FOV        float64
	HalfHeight float64
	Near, Far  float64
	Position   scene.Vec3
	Target     scene.Vec3

	Aspect                   float64
	Left, Right, Top, Bottom float64
}

// updateProjection recomputes the frustum for a new aspect ratio.
func (c *Camera) updateProjection(aspect float64) {
	c.Aspect = aspect
	if c.Projection == Orthographic {
		c.Left = -c.HalfHeight * aspect
		c.Right = c.HalfHeight * aspect
		c.Top = c.HalfHeight
		c.Bottom = -c.HalfHeight
	}
}

// basis returns the camera's right, up and back axes (the lookAt frame).
// A camera looking straight down uses -z as its up hint.
func (c *Camera) basis() (x, y, z scene.Vec3) {
	z = c.Position.Sub(c.Target).Normalize()
	up := scene.V(0, 1, 0)
	if math.Abs(z.Dot(up)) > 1-1e-6 {
		up = scene.V(0, 0, -1)
	}
	x = up.Cross(z).Normalize()
	y = z.Cross(x)
	return x, y, z
}

// toCamera expresses a world point in camera space; visible points have
// negative z.
func (c *Camera) toCamera(p scene.Vec3) scene.Vec3 {
	x, y, z := c.basis()
	d := p.Sub(c.Position)
	return scene.Vec3{X: d.Dot(x), Y: d.Dot(y), Z: d.Dot(z)}
}

func (c *Camera) focal() float64 {
	return 1 / math.Tan(c.FOV*math.Pi/360)
}

// ndc maps a world point to normalized device coordinates. depth is the
// distance in front of the camera; ok is false outside the near/far range.
func (c *Camera) ndc(p scene.Vec3) (nx, ny, depth float64, ok bool) {
	q := c.toCamera(p)
	depth = -q.Z
	if depth < c.Near || depth > c.Far {
		return 0, 0, depth, false
	}
	if c.Projection == Perspective {
		f := c.focal()
		return f / c.Aspect * q.X / depth, f * q.Y / depth, depth, true
	}
	w := (c.Right - c.Left) / 2
	h := (c.Top - c.Bottom) / 2
	if w == 0 || h == 0 {
		return 0, 0, depth, false
	}
	return (q.X - (c.Right+c.Left)/2) / w, (q.Y - (c.Top+c.Bottom)/2) / h, depth, true
}

// ray returns the world-space ray through an NDC point.
func (c *Camera) ray(nx, ny float64) (origin, dir scene.Vec3) {
	x, y, z := c.basis()
	if c.Projection == Perspective {
		f := c.focal()
		d := x.Scale(nx * c.Aspect / f).Add(y.Scale(ny / f)).Sub(z)
		return c.Position, d.Normalize()
	}
	ox := (c.Right+c.Left)/2 + nx*(c.Right-c.Left)/2
	oy := (c.Top+c.Bottom)/2 + ny*(c.Top-c.Bottom)/2
	origin = c.Position.Add(x.Scale(ox)).Add(y.Scale(oy))
	return origin, z.Scale(-1)
}
