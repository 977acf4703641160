package visualizer

import (
	"math"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/render"
)

const (
	starSpikes      = 5
	starOuterRadius = 4.0
	starInnerRadius = 1.7
	starSpin        = 0.01

	starMinEmissive = 1.9
	starMaxEmissive = 5.0
)

var (
	starBase     = render.Hex(0x8f00ff)
	starAlt      = render.Hex(0xb266ff)
	starEmissive = render.Hex(0xfff6b0)
)

// Star is a spinning extruded star whose size and glow follow the level.
// Its spin accumulates per frame; it is the only variant with frame state.
type Star struct {
	base
	mesh     *render.Node
	material *render.Material
}

// NewStar creates the Star variant.
func NewStar() *Star {
	return &Star{base: base{id: domain.VisualizerStar, distance: 20}}
}

func starOutline() []render.Vec2 {
	pts := make([]render.Vec2, 0, starSpikes*2)
	for i := 0; i < starSpikes*2; i++ {
		angle := float64(i) / float64(starSpikes*2) * 2 * math.Pi
		r := starInnerRadius
		if i%2 == 0 {
			r = starOuterRadius
		}
		pts = append(pts, render.Vec2{X: math.Cos(angle) * r, Y: math.Sin(angle) * r})
	}
	return pts
}

// Init implements Visualizer.
func (s *Star) Init() error {
	s.material = &render.Material{
		Color:             starBase,
		Emissive:          starEmissive,
		EmissiveIntensity: 1.8,
	}
	s.mesh = render.NewMesh("star", render.Extrude(starOutline(), 1.5), s.material)
	s.mesh.Scale = render.V3(1.1, 1.1, 0.7)

	s.group = render.NewGroup("star-group")
	s.group.Add(s.mesh)
	return nil
}

// Update implements Visualizer.
func (s *Star) Update(t float64, snap domain.FrequencySnapshot) {
	level := intensity(snap)

	scale := 1 + 1.5*level
	s.mesh.Scale = render.V3(1.1*scale, 1.1*scale, 0.7+0.3*level)
	s.material.EmissiveIntensity = starMinEmissive + (starMaxEmissive-starMinEmissive)*level

	s.mesh.Rotation[2] += starSpin
	s.mesh.Rotation[1] += starSpin

	blend := (math.Sin(t) + 1) / 2
	s.material.Color = starBase.Lerp(starAlt, blend)
}

// Spin returns the accumulated rotation.
func (s *Star) Spin() float64 {
	if s.mesh == nil {
		return 0
	}
	return s.mesh.Rotation.Z()
}
