package visualizer

import (
	"math"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/render"
)

const (
	boardSize      = 12
	boardSpacing   = 1.0
	boardMaxHeight = 6.0
)

// Board is a grid of columns rising with the spectrum, lower bins in the
// center spreading outward.
type Board struct {
	base
	cells     []*render.Node
	materials []*render.Material
	bins      []int
}

// NewBoard creates the Board variant.
func NewBoard() *Board {
	return &Board{base: base{id: domain.VisualizerBoard, distance: 20}}
}

// Init implements Visualizer.
func (b *Board) Init() error {
	b.group = render.NewGroup("board")
	b.group.Rotation[0] = 0.6

	box := render.Box(boardSpacing*0.85, 1, boardSpacing*0.85)
	center := float64(boardSize-1) / 2
	maxDist := math.Hypot(center, center)

	for row := 0; row < boardSize; row++ {
		for col := 0; col < boardSize; col++ {
			m := &render.Material{Color: render.Hex(0x3050ff)}
			cell := render.NewMesh("cell", box, m)
			cell.Position = render.V3(
				(float64(col)-center)*boardSpacing,
				0,
				(float64(row)-center)*boardSpacing,
			)

			dist := math.Hypot(float64(col)-center, float64(row)-center)
			b.bins = append(b.bins, int(dist/maxDist*127))
			b.cells = append(b.cells, cell)
			b.materials = append(b.materials, m)
			b.group.Add(cell)
		}
	}

	b.Update(0, domain.NewFrequencySnapshot())
	return nil
}

// Update implements Visualizer.
func (b *Board) Update(t float64, snap domain.FrequencySnapshot) {
	for i, cell := range b.cells {
		level := float64(snap.Bin(b.bins[i])) / 255
		height := 0.1 + level*boardMaxHeight

		cell.Scale[1] = height
		cell.Position[1] = height / 2

		hue := math.Mod(0.62-level*0.55+t*0.01, 1)
		b.materials[i].Color = render.HSL(hue, 0.9, 0.35+level*0.3)
		b.materials[i].Emissive = b.materials[i].Color
		b.materials[i].EmissiveIntensity = level * 0.8
	}
	b.group.Rotation[1] = t * 0.1
}
