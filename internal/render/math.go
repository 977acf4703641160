// Package render is a small software 3D pipeline: a scene graph, a
// perspective camera with orbit controls, a rasterizer and a post-processing
// composer with a bloom pass. Frames are produced as *image.RGBA.
package render

import "github.com/go-gl/mathgl/mgl64"

// Vec2 is a 2D point, used for outlines before extrusion.
type Vec2 struct {
	X, Y float64
}

// Vec3 is a 3D vector.
type Vec3 = mgl64.Vec3

// V3 is shorthand for Vec3{x, y, z}.
func V3(x, y, z float64) Vec3 {
	return Vec3{x, y, z}
}

// normalize returns a unit vector, or the zero vector unchanged.
func normalize(v Vec3) Vec3 {
	if v.LenSqr() == 0 {
		return v
	}
	return v.Normalize()
}

// Color is a linear RGB color. Components may exceed 1 before tone mapping,
// which is what the bloom pass feeds on.
type Color struct {
	R, G, B float64
}

// Hex builds a color from 0xRRGGBB.
func Hex(v uint32) Color {
	return Color{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
	}
}

func (c Color) Add(o Color) Color { return Color{c.R + o.R, c.G + o.G, c.B + o.B} }
func (c Color) Scale(s float64) Color { return Color{c.R * s, c.G * s, c.B * s} }
func (c Color) Mul(o Color) Color { return Color{c.R * o.R, c.G * o.G, c.B * o.B} }

// Lerp blends c toward o by t in [0, 1].
func (c Color) Lerp(o Color, t float64) Color {
	return Color{
		R: c.R + (o.R-c.R)*t,
		G: c.G + (o.G-c.G)*t,
		B: c.B + (o.B-c.B)*t,
	}
}

// Luminance returns the perceived brightness of c.
func (c Color) Luminance() float64 {
	return 0.299*c.R + 0.587*c.G + 0.114*c.B
}

// HSL converts hue, saturation and lightness (all 0..1) to a Color.
func HSL(h, s, l float64) Color {
	if s == 0 {
		return Color{l, l, l}
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	return Color{
		R: hueToRGB(p, q, h+1.0/3.0),
		G: hueToRGB(p, q, h),
		B: hueToRGB(p, q, h-1.0/3.0),
	}
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 0.5 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

// Mat4 is a column-major 4x4 transform.
type Mat4 = mgl64.Mat4

// Identity returns the identity matrix.
func Identity() Mat4 {
	return mgl64.Ident4()
}

// Point transforms p as a position.
func Point(m Mat4, p Vec3) Vec3 {
	return mgl64.TransformCoordinate(p, m)
}

// Compose builds translate * rotateZ * rotateY * rotateX * scale, the
// order used for Euler XYZ rotations.
func Compose(pos, rot, scale Vec3) Mat4 {
	return mgl64.Translate3D(pos[0], pos[1], pos[2]).
		Mul4(mgl64.HomogRotate3DZ(rot[2])).
		Mul4(mgl64.HomogRotate3DY(rot[1])).
		Mul4(mgl64.HomogRotate3DX(rot[0])).
		Mul4(mgl64.Scale3D(scale[0], scale[1], scale[2]))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
