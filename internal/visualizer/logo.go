package visualizer

import (
	"math"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/render"
)

// Logo is the "IUT" mark built from blocks, framed close up and glowing on
// loud passages.
type Logo struct {
	base
	mark     *render.Node
	material *render.Material
}

// NewLogo creates the Logo variant.
func NewLogo() *Logo {
	return &Logo{base: base{id: domain.VisualizerLogo, distance: 5}}
}

// logoBlocks are (x, y, w, h) rectangles spelling IUT.
var logoBlocks = [][4]float64{
	// I
	{-1.3, 0, 0.3, 1.6},
	// U
	{-0.6, 0.1, 0.3, 1.4},
	{0.2, 0.1, 0.3, 1.4},
	{-0.2, -0.65, 1.1, 0.3},
	// T
	{1.15, 0.65, 1.1, 0.3},
	{1.15, -0.15, 0.3, 1.3},
}

// Init implements Visualizer.
func (l *Logo) Init() error {
	l.material = &render.Material{
		Color:    render.Hex(0x00a1e4),
		Emissive: render.Hex(0x00a1e4),
	}
	l.mark = render.NewGroup("logo-mark")
	for _, b := range logoBlocks {
		block := render.NewMesh("block", render.Box(b[2], b[3], 0.3), l.material)
		block.Position = render.V3(b[0], b[1], 0)
		l.mark.Add(block)
	}

	l.group = render.NewGroup("logo")
	l.group.Add(l.mark)
	l.Update(0, domain.NewFrequencySnapshot())
	return nil
}

// Update implements Visualizer.
func (l *Logo) Update(t float64, snap domain.FrequencySnapshot) {
	level := intensity(snap)

	s := 1 + 0.2*level
	l.mark.Scale = render.V3(s, s, s)
	l.mark.Rotation[1] = math.Sin(t*0.5) * 0.4
	l.material.EmissiveIntensity = 0.2 + 2*level
}
