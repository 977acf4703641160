package render

import "sync"

// Primitive selects how a Geometry is drawn.
type Primitive int

const (
	// Triangles draws Indices as triangle triples.
	Triangles Primitive = iota
	// LineStrip connects Vertices in order.
	LineStrip
	// LineLoop is a LineStrip closed back to the first vertex.
	LineLoop
	// Points draws each vertex as a square splat.
	Points
)

// Geometry holds vertex data in local space.
type Geometry struct {
	Primitive Primitive
	Vertices  []Vec3
	Indices   []int

	// Colors optionally gives one color per vertex (Points only).
	Colors []Color
}

// Material describes how a mesh is shaded. Unlit materials ignore the light.
type Material struct {
	Color             Color
	Emissive          Color
	EmissiveIntensity float64
	Unlit             bool

	// PointSize is the world-space splat size for Points geometry.
	PointSize float64
}

// Node is an element of the scene graph. A node without geometry is a group.
type Node struct {
	Name     string
	Position Vec3
	Rotation Vec3 // Euler XYZ in radians
	Scale    Vec3
	Visible  bool

	Geometry *Geometry
	Material *Material

	parent   *Node
	children []*Node
}

// NewGroup creates an empty visible node.
func NewGroup(name string) *Node {
	return &Node{Name: name, Scale: V3(1, 1, 1), Visible: true}
}

// NewMesh creates a visible node drawing g with m.
func NewMesh(name string, g *Geometry, m *Material) *Node {
	n := NewGroup(name)
	n.Geometry = g
	n.Material = m
	return n
}

// Add attaches child, detaching it from any previous parent.
func (n *Node) Add(child *Node) {
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

// Remove detaches child. Removing a node that is not a child is a no-op.
func (n *Node) Remove(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// Children returns the direct children.
func (n *Node) Children() []*Node {
	return n.children
}

// Parent returns the parent node, or nil.
func (n *Node) Parent() *Node {
	return n.parent
}

// Local returns the node's transform relative to its parent.
func (n *Node) Local() Mat4 {
	return Compose(n.Position, n.Rotation, n.Scale)
}

// Walk visits visible nodes depth first with their world transforms.
func (n *Node) Walk(parent Mat4, fn func(node *Node, world Mat4)) {
	if !n.Visible {
		return
	}
	world := parent.Mul4(n.Local())
	fn(n, world)
	for _, c := range n.children {
		c.Walk(world, fn)
	}
}

// Scene is the root of what the camera sees.
type Scene struct {
	Background Color

	root *Node
	mu   sync.Mutex
}

// NewScene creates an empty scene with a dark background.
func NewScene() *Scene {
	return &Scene{
		Background: Hex(0x000000),
		root:       NewGroup("scene"),
	}
}

// Add attaches a node to the scene root.
func (s *Scene) Add(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root.Add(n)
}

// Remove detaches a node from the scene root.
func (s *Scene) Remove(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root.Remove(n)
}

// Contains reports whether n is a direct child of the scene root.
func (s *Scene) Contains(n *Node) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.root.children {
		if c == n {
			return true
		}
	}
	return false
}

// Len returns the number of top-level nodes.
func (s *Scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.root.children)
}

func (s *Scene) walk(fn func(node *Node, world Mat4)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root.Walk(Identity(), fn)
}
