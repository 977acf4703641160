package render

import "github.com/go-gl/mathgl/mgl64"

// Camera is a perspective camera looking at Target.
type Camera struct {
	FOV    float64 // vertical field of view in degrees
	Aspect float64
	Near   float64
	Far    float64

	Position Vec3
	Target   Vec3
	Up       Vec3
}

// NewCamera creates a camera at the origin looking down -Z.
func NewCamera(fov, aspect, near, far float64) *Camera {
	return &Camera{
		FOV:      fov,
		Aspect:   aspect,
		Near:     near,
		Far:      far,
		Position: V3(0, 0, 0),
		Target:   V3(0, 0, -1),
		Up:       V3(0, 1, 0),
	}
}

// SetAspect updates the aspect ratio after a resize.
func (c *Camera) SetAspect(width, height int) {
	if width > 0 && height > 0 {
		c.Aspect = float64(width) / float64(height)
	}
}

// view holds the per-frame view and projection matrices.
type view struct {
	eye  Mat4
	proj Mat4
	near float64
	far  float64
}

func (c *Camera) view() view {
	target := c.Target
	if c.Position.Sub(target).LenSqr() == 0 {
		target = c.Position.Sub(V3(0, 0, 1))
	}
	up := c.Up
	if c.Position.Sub(target).Cross(up).LenSqr() == 0 {
		up = V3(0, 0, 1)
	}

	return view{
		eye:  mgl64.LookAtV(c.Position, target, up),
		proj: mgl64.Perspective(mgl64.DegToRad(c.FOV), c.Aspect, c.Near, c.Far),
		near: c.Near,
		far:  c.Far,
	}
}

// project maps a world point to normalized device coordinates and a view depth.
// ok is false when the point lies outside the near and far planes.
func (v view) project(p Vec3) (ndcX, ndcY, depth float64, ok bool) {
	e := v.eye.Mul4x1(p.Vec4(1))
	depth = -e.Z()
	if depth < v.near || depth > v.far {
		return 0, 0, depth, false
	}
	clip := v.proj.Mul4x1(e)
	return clip.X() / clip.W(), clip.Y() / clip.W(), depth, true
}

// focal is the vertical projection scale, 1/tan(fov/2).
func (v view) focal() float64 {
	return v.proj.At(1, 1)
}

// Project maps a world point to pixel coordinates in a width x height frame.
func (c *Camera) Project(p Vec3, width, height int) (x, y, depth float64, ok bool) {
	nx, ny, depth, ok := c.view().project(p)
	if !ok {
		return 0, 0, depth, false
	}
	x = (nx + 1) / 2 * float64(width)
	y = (1 - ny) / 2 * float64(height)
	return x, y, depth, true
}
