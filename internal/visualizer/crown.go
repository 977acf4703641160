package visualizer

import (
	"math"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/render"
)

var (
	crownGold = render.Hex(0xffd700)
	crownAlt  = render.Hex(0xffbb00)
	jewelBlue = render.Hex(0x00bfff)
	jewelRed  = render.Hex(0xff4444)
)

const crownJewelRadius = 0.22

var crownOutline = []render.Vec2{
	{X: -3.5, Y: -1.5},
	{X: -3.2, Y: 2.5}, {X: -1.8, Y: -0.2},
	{X: -0.8, Y: 2.5}, {X: 0, Y: -0.2},
	{X: 0.8, Y: 2.5}, {X: 1.8, Y: -0.2},
	{X: 3.2, Y: 2.5},
	{X: 3.5, Y: -1.5},
	{X: 3.5, Y: -2}, {X: -3.5, Y: -2},
}

// Crown is a four-spiked crown on a band, with jewels on every spike and
// three on the band. It sways and bounces with the level.
type Crown struct {
	base
	mesh     *render.Node
	material *render.Material
	band     *render.Material
	jewels   []*render.Node
}

// NewCrown creates the Crown variant.
func NewCrown() *Crown {
	return &Crown{base: base{id: domain.VisualizerCrown, distance: 16}}
}

// Init implements Visualizer.
func (c *Crown) Init() error {
	c.material = &render.Material{Color: crownGold, Unlit: true}
	c.mesh = render.NewMesh("crown", render.Extrude(crownOutline, 0.5), c.material)
	c.mesh.Scale = render.V3(1.1, 1.1, 0.7)

	c.group = render.NewGroup("crown-group")
	c.group.Add(c.mesh)

	c.band = &render.Material{Color: crownGold, Unlit: true}
	band := render.NewMesh("band", render.Box(7, 0.5, 0.55), c.band)
	band.Position = render.V3(0, -1.75, 0.1)
	c.group.Add(band)

	blue := &render.Material{Color: jewelBlue, Unlit: true}
	red := &render.Material{Color: jewelRed, Unlit: true}

	spike := render.Sphere(crownJewelRadius, 10, 8)
	for i, x := range []float64{-3.2, -0.8, 0.8, 3.2} {
		m := blue
		if i%2 == 1 {
			m = red
		}
		jewel := render.NewMesh("spike-jewel", spike, m)
		jewel.Position = render.V3(x, 2.8, 0.3)
		c.mesh.Add(jewel)
		c.jewels = append(c.jewels, jewel)
	}

	small := render.Sphere(crownJewelRadius*0.8, 10, 8)
	for i, x := range []float64{-2, 0, 2} {
		m := red
		if i%2 == 1 {
			m = blue
		}
		jewel := render.NewMesh("band-jewel", small, m)
		jewel.Position = render.V3(x, -1.75, 0.4)
		c.group.Add(jewel)
	}
	return nil
}

// Update implements Visualizer.
func (c *Crown) Update(t float64, snap domain.FrequencySnapshot) {
	level := intensity(snap)

	c.mesh.Rotation[1] = math.Sin(t) * 0.2 * level
	c.group.Position[1] = math.Sin(t*3) * 1.3 * level
	c.mesh.Rotation[2] = math.Sin(t*2) * 0.7 * level

	for i, jewel := range c.jewels {
		pulse := 1 + 0.3*math.Sin(t*4+float64(i)*0.5)*level
		jewel.Scale = render.V3(pulse, pulse, pulse)
	}

	blend := (math.Sin(t) + 1) / 2
	color := crownGold.Lerp(crownAlt, blend)
	c.material.Color = color
	c.band.Color = color

	// halo
	c.material.Emissive = color
	c.material.EmissiveIntensity = (math.Sin(t*2) + 1) / 4
}
