package render

import (
	"image"
	"image/color"
	"math"
)

// lightDir is the fixed key light, pointing from the viewer's upper left.
var lightDir = V3(-0.4, 0.6, 1).Normalize()

// Frame is a linear HDR color buffer with depth.
type Frame struct {
	Width  int
	Height int
	Pix    []float64 // RGB triples, row major
	Depth  []float64
}

// NewFrame allocates a frame.
func NewFrame(width, height int) *Frame {
	f := &Frame{}
	f.Resize(width, height)
	return f
}

// Resize reallocates the buffers when the size changes.
func (f *Frame) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if f.Width == width && f.Height == height {
		return
	}
	f.Width, f.Height = width, height
	f.Pix = make([]float64, width*height*3)
	f.Depth = make([]float64, width*height)
}

// Clear fills the frame with bg and resets depth.
func (f *Frame) Clear(bg Color) {
	for i := 0; i < len(f.Depth); i++ {
		f.Pix[i*3] = bg.R
		f.Pix[i*3+1] = bg.G
		f.Pix[i*3+2] = bg.B
		f.Depth[i] = math.Inf(1)
	}
}

// At returns the color at (x, y).
func (f *Frame) At(x, y int) Color {
	i := (y*f.Width + x) * 3
	return Color{f.Pix[i], f.Pix[i+1], f.Pix[i+2]}
}

func (f *Frame) plot(x, y int, depth float64, c Color) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	i := y*f.Width + x
	if depth >= f.Depth[i] {
		return
	}
	f.Depth[i] = depth
	f.Pix[i*3] = c.R
	f.Pix[i*3+1] = c.G
	f.Pix[i*3+2] = c.B
}

// ToRGBA tone maps the frame into dst, reallocating it when the size differs.
func (f *Frame) ToRGBA(dst *image.RGBA) *image.RGBA {
	if dst == nil || dst.Rect.Dx() != f.Width || dst.Rect.Dy() != f.Height {
		dst = image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	}
	for i := 0; i < f.Width*f.Height; i++ {
		dst.Pix[i*4] = toByte(f.Pix[i*3])
		dst.Pix[i*4+1] = toByte(f.Pix[i*3+1])
		dst.Pix[i*4+2] = toByte(f.Pix[i*3+2])
		dst.Pix[i*4+3] = 255
	}
	return dst
}

func toByte(v float64) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}

// RGBA8 converts c for use with image/color.
func (c Color) RGBA8() color.RGBA {
	return color.RGBA{R: toByte(c.R), G: toByte(c.G), B: toByte(c.B), A: 255}
}

// screenVertex is a projected vertex.
type screenVertex struct {
	x, y, depth float64
	ok          bool
}

// Rasterizer draws a scene into a Frame.
type Rasterizer struct {
	verts []screenVertex
	world []Vec3
}

// Draw renders scene from camera into f.
func (r *Rasterizer) Draw(f *Frame, scene *Scene, camera *Camera) {
	f.Clear(scene.Background)
	v := camera.view()

	scene.walk(func(n *Node, world Mat4) {
		if n.Geometry == nil || n.Material == nil {
			return
		}
		r.drawNode(f, v, n, world)
	})
}

func (r *Rasterizer) drawNode(f *Frame, v view, n *Node, world Mat4) {
	g := n.Geometry
	if cap(r.verts) < len(g.Vertices) {
		r.verts = make([]screenVertex, len(g.Vertices))
		r.world = make([]Vec3, len(g.Vertices))
	}
	r.verts = r.verts[:len(g.Vertices)]
	r.world = r.world[:len(g.Vertices)]

	w, h := float64(f.Width), float64(f.Height)
	for i, p := range g.Vertices {
		wp := Point(world, p)
		r.world[i] = wp
		nx, ny, depth, ok := v.project(wp)
		r.verts[i] = screenVertex{
			x:     (nx + 1) / 2 * w,
			y:     (1 - ny) / 2 * h,
			depth: depth,
			ok:    ok,
		}
	}

	m := n.Material
	emissive := m.Emissive.Scale(m.EmissiveIntensity)

	switch g.Primitive {
	case Triangles:
		for i := 0; i+2 < len(g.Indices); i += 3 {
			a, b, c := g.Indices[i], g.Indices[i+1], g.Indices[i+2]
			col := m.Color
			if !m.Unlit {
				normal := normalize(r.world[b].Sub(r.world[a]).Cross(r.world[c].Sub(r.world[a])))
				col = col.Scale(0.55 + 0.45*math.Abs(normal.Dot(lightDir)))
			}
			r.fillTriangle(f, r.verts[a], r.verts[b], r.verts[c], col.Add(emissive))
		}

	case LineStrip, LineLoop:
		col := m.Color.Add(emissive)
		for i := 0; i+1 < len(r.verts); i++ {
			r.drawLine(f, r.verts[i], r.verts[i+1], col)
		}
		if g.Primitive == LineLoop && len(r.verts) > 2 {
			r.drawLine(f, r.verts[len(r.verts)-1], r.verts[0], col)
		}

	case Points:
		scale := v.focal() * h / 2
		for i, sv := range r.verts {
			if !sv.ok {
				continue
			}
			col := m.Color
			if i < len(g.Colors) {
				col = col.Mul(g.Colors[i])
			}
			size := m.PointSize * scale / sv.depth
			r.drawSplat(f, sv, size, col.Add(emissive))
		}
	}
}

func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func (r *Rasterizer) fillTriangle(f *Frame, a, b, c screenVertex, col Color) {
	if !a.ok || !b.ok || !c.ok {
		return
	}

	area := edge(a.x, a.y, b.x, b.y, c.x, c.y)
	if math.Abs(area) < 1e-9 {
		return
	}

	minX := int(math.Max(0, math.Floor(math.Min(a.x, math.Min(b.x, c.x)))))
	maxX := int(math.Min(float64(f.Width-1), math.Ceil(math.Max(a.x, math.Max(b.x, c.x)))))
	minY := int(math.Max(0, math.Floor(math.Min(a.y, math.Min(b.y, c.y)))))
	maxY := int(math.Min(float64(f.Height-1), math.Ceil(math.Max(a.y, math.Max(b.y, c.y)))))

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(b.x, b.y, c.x, c.y, px, py) / area
			w1 := edge(c.x, c.y, a.x, a.y, px, py) / area
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			f.plot(x, y, w0*a.depth+w1*b.depth+w2*c.depth, col)
		}
	}
}

func (r *Rasterizer) drawLine(f *Frame, a, b screenVertex, col Color) {
	if !a.ok || !b.ok {
		return
	}
	dx, dy := b.x-a.x, b.y-a.y
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		f.plot(int(a.x), int(a.y), a.depth, col)
		return
	}
	// cap absurd lengths from near-plane projections
	if steps > 4*(f.Width+f.Height) {
		return
	}
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		f.plot(int(a.x+dx*t), int(a.y+dy*t), a.depth+(b.depth-a.depth)*t, col)
	}
}

func (r *Rasterizer) drawSplat(f *Frame, v screenVertex, size float64, col Color) {
	half := size / 2
	if half < 0.5 {
		half = 0.5
	}
	x0, x1 := int(v.x-half), int(v.x+half)
	y0, y1 := int(v.y-half), int(v.y+half)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			f.plot(x, y, v.depth, col)
		}
	}
}
