package visualizer

import (
	"math"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/render"
)

var (
	heartBase = render.Hex(0xff4f8b)
	heartAlt  = render.Hex(0xff00ff)
)

// Heart is an extruded heart that pulses with the average level and cycles
// between pink and magenta.
type Heart struct {
	base
	mesh     *render.Node
	material *render.Material
}

// NewHeart creates the Heart variant.
func NewHeart() *Heart {
	return &Heart{base: base{id: domain.VisualizerHeart, distance: 20}}
}

func heartOutline() []render.Vec2 {
	return render.BezierPath(render.Vec2{X: 0, Y: 0}, [][3]render.Vec2{
		{{X: 0, Y: 0}, {X: 0, Y: 2.5}, {X: 2, Y: 2.5}},
		{{X: 4, Y: 2.5}, {X: 4, Y: 0}, {X: 4, Y: 0}},
		{{X: 4, Y: -3}, {X: 0, Y: -3.5}, {X: 0, Y: -6}},
		{{X: 0, Y: -3.5}, {X: -4, Y: -3}, {X: -4, Y: 0}},
		{{X: -4, Y: 0}, {X: -4, Y: 2.5}, {X: -2, Y: 2.5}},
		{{X: 0, Y: 2.5}, {X: 0, Y: 0}, {X: 0, Y: 0}},
	}, 12)
}

// Init implements Visualizer.
func (h *Heart) Init() error {
	h.material = &render.Material{Color: heartBase, Unlit: true}
	h.mesh = render.NewMesh("heart", render.Extrude(heartOutline(), 0.5), h.material)
	h.mesh.Scale = render.V3(1.2, 1.2, 0.7)

	h.group = render.NewGroup("heart-group")
	h.group.Add(h.mesh)
	return nil
}

// Update implements Visualizer.
func (h *Heart) Update(t float64, snap domain.FrequencySnapshot) {
	level := intensity(snap)

	s := 1 + 0.25*level
	h.mesh.Scale = render.V3(1.2*s, 1.2*s, 0.7+0.3*level)

	blend := (math.Sin(t) + 1) / 2
	h.material.Color = heartBase.Lerp(heartAlt, blend)
}
