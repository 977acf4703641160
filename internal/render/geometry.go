package render

import "math"

// Box returns a w x h x d box centered on the origin.
func Box(w, h, d float64) *Geometry {
	x, y, z := w/2, h/2, d/2
	v := []Vec3{
		{-x, -y, z}, {x, -y, z}, {x, y, z}, {-x, y, z}, // front
		{-x, -y, -z}, {x, -y, -z}, {x, y, -z}, {-x, y, -z}, // back
	}
	idx := []int{
		0, 1, 2, 0, 2, 3, // front
		5, 4, 7, 5, 7, 6, // back
		4, 0, 3, 4, 3, 7, // left
		1, 5, 6, 1, 6, 2, // right
		3, 2, 6, 3, 6, 7, // top
		4, 5, 1, 4, 1, 0, // bottom
	}
	return &Geometry{Primitive: Triangles, Vertices: v, Indices: idx}
}

// Sphere returns a UV sphere.
func Sphere(radius float64, segments, rings int) *Geometry {
	g := &Geometry{Primitive: Triangles}
	for r := 0; r <= rings; r++ {
		phi := math.Pi * float64(r) / float64(rings)
		sp, cp := math.Sincos(phi)
		for s := 0; s <= segments; s++ {
			theta := 2 * math.Pi * float64(s) / float64(segments)
			st, ct := math.Sincos(theta)
			g.Vertices = append(g.Vertices, V3(radius*sp*ct, radius*cp, radius*sp*st))
		}
	}

	row := segments + 1
	for r := 0; r < rings; r++ {
		for s := 0; s < segments; s++ {
			a := r*row + s
			b := a + row
			g.Indices = append(g.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return g
}

// PointGrid returns a (cols x rows) grid of points spanning w x h in the XY plane.
func PointGrid(w, h float64, cols, rows int) *Geometry {
	g := &Geometry{Primitive: Points}
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			x := -w/2 + w*float64(i)/float64(cols-1)
			y := h/2 - h*float64(j)/float64(rows-1)
			g.Vertices = append(g.Vertices, V3(x, y, 0))
		}
	}
	g.Colors = make([]Color, len(g.Vertices))
	for i := range g.Colors {
		g.Colors[i] = Color{1, 1, 1}
	}
	return g
}

// Extrude turns a closed outline into a prism from z=0 to z=depth.
// The outline may be concave but must not self-intersect.
func Extrude(outline []Vec2, depth float64) *Geometry {
	pts := outline
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if signedArea(pts) < 0 {
		rev := make([]Vec2, len(pts))
		for i, p := range pts {
			rev[len(pts)-1-i] = p
		}
		pts = rev
	}

	n := len(pts)
	g := &Geometry{Primitive: Triangles}
	for _, p := range pts {
		g.Vertices = append(g.Vertices, V3(p.X, p.Y, depth))
	}
	for _, p := range pts {
		g.Vertices = append(g.Vertices, V3(p.X, p.Y, 0))
	}

	for _, tri := range triangulate(pts) {
		g.Indices = append(g.Indices, tri[0], tri[1], tri[2])
		g.Indices = append(g.Indices, n+tri[0], n+tri[2], n+tri[1])
	}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		g.Indices = append(g.Indices, i, n+i, n+j, i, n+j, j)
	}
	return g
}

// BezierPath samples a sequence of cubic segments starting at start.
// Each segment is (control1, control2, end).
func BezierPath(start Vec2, segments [][3]Vec2, steps int) []Vec2 {
	out := []Vec2{start}
	p0 := start
	for _, seg := range segments {
		c1, c2, p3 := seg[0], seg[1], seg[2]
		for s := 1; s <= steps; s++ {
			t := float64(s) / float64(steps)
			u := 1 - t
			a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
			out = append(out, Vec2{
				X: a*p0.X + b*c1.X + c*c2.X + d*p3.X,
				Y: a*p0.Y + b*c1.Y + c*c2.Y + d*p3.Y,
			})
		}
		p0 = p3
	}
	return dedupe(out)
}

func dedupe(pts []Vec2) []Vec2 {
	out := pts[:0:0]
	for i, p := range pts {
		if i > 0 && math.Abs(p.X-out[len(out)-1].X) < 1e-9 && math.Abs(p.Y-out[len(out)-1].Y) < 1e-9 {
			continue
		}
		out = append(out, p)
	}
	return out
}

func signedArea(pts []Vec2) float64 {
	var a float64
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return a / 2
}

// triangulate ear-clips a counter-clockwise simple polygon.
func triangulate(pts []Vec2) [][3]int {
	idx := make([]int, len(pts))
	for i := range idx {
		idx[i] = i
	}

	var tris [][3]int
	for guard := 0; len(idx) > 3 && guard < len(pts)*len(pts); guard++ {
		clipped := false
		for i := range idx {
			a := idx[(i+len(idx)-1)%len(idx)]
			b := idx[i]
			c := idx[(i+1)%len(idx)]
			if !isEar(pts, idx, a, b, c) {
				continue
			}
			tris = append(tris, [3]int{a, b, c})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			// degenerate input; fan the rest
			break
		}
	}
	for i := 1; i+1 < len(idx); i++ {
		tris = append(tris, [3]int{idx[0], idx[i], idx[i+1]})
	}
	return tris
}

func cross2(o, a, b Vec2) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func isEar(pts []Vec2, idx []int, a, b, c int) bool {
	pa, pb, pc := pts[a], pts[b], pts[c]
	if cross2(pa, pb, pc) <= 0 {
		return false
	}
	for _, k := range idx {
		if k == a || k == b || k == c {
			continue
		}
		p := pts[k]
		if cross2(pa, pb, p) >= 0 && cross2(pb, pc, p) >= 0 && cross2(pc, pa, p) >= 0 {
			return false
		}
	}
	return true
}
