package visualizer

import (
	"math"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/render"
)

const (
	lineSegments = 128
	lineRadius   = 50.0
	lineReach    = 45.0
)

// Line is a closed ring whose radius follows the spectrum.
type Line struct {
	base
	ring     *render.Node
	geometry *render.Geometry
	material *render.Material
}

// NewLine creates the Line variant.
func NewLine() *Line {
	return &Line{base: base{id: domain.VisualizerLine, distance: 200}}
}

// Init implements Visualizer.
func (l *Line) Init() error {
	l.geometry = &render.Geometry{
		Primitive: render.LineLoop,
		Vertices:  make([]render.Vec3, lineSegments),
	}
	l.material = &render.Material{
		Color:             render.Hex(0x66ccff),
		Emissive:          render.Hex(0x66ccff),
		EmissiveIntensity: 0.3,
		Unlit:             true,
	}
	l.ring = render.NewMesh("line", l.geometry, l.material)

	l.group = render.NewGroup("line-group")
	l.group.Add(l.ring)
	l.Update(0, domain.NewFrequencySnapshot())
	return nil
}

// Update implements Visualizer.
func (l *Line) Update(t float64, snap domain.FrequencySnapshot) {
	// mirror the lower half of the spectrum so the ring is symmetric
	half := lineSegments / 2
	for i := 0; i < lineSegments; i++ {
		k := i
		if k >= half {
			k = lineSegments - 1 - i
		}
		bin := snap.Bin(k * 4)
		r := lineRadius + float64(bin)/255*lineReach
		angle := 2*math.Pi*float64(i)/lineSegments + math.Pi/2
		l.geometry.Vertices[i] = render.V3(r*math.Cos(angle), r*math.Sin(angle), 0)
	}

	level := intensity(snap)
	l.ring.Rotation[2] = t * 0.1
	l.material.Color = render.HSL(math.Mod(t*0.05, 1), 0.8, 0.6)
	l.material.Emissive = l.material.Color
	l.material.EmissiveIntensity = 0.3 + level
}
