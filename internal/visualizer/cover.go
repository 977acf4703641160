package visualizer

import (
	"image"
	"math"
	"sync"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/render"
)

const (
	coverWidth    = 12.0
	coverGrid     = 64
	coverWaveAmp  = 2.5
	pointSizeUnit = 0.05 // world units per uSize step
)

// Cover is the track artwork rendered as a point cloud rippling with the
// lowest frequency bin.
type Cover struct {
	base

	points   *render.Node
	geometry *render.Geometry
	material *render.Material
	rest     []render.Vec3

	mu        sync.Mutex
	pointSize float64
	texture   image.Image
	dirty     bool

	// shader-like inputs of the last Update
	time      float64
	frequency float64
}

// NewCover creates the Cover variant.
func NewCover() *Cover {
	return &Cover{
		base:      base{id: domain.VisualizerCover, distance: 20},
		pointSize: domain.DefaultSettings(domain.VisualizerCover).Cover.PointSize,
		texture:   Placeholder(),
		dirty:     true,
	}
}

// Init implements Visualizer.
func (c *Cover) Init() error {
	c.geometry = render.PointGrid(coverWidth, coverWidth, coverGrid, coverGrid)
	c.rest = append([]render.Vec3(nil), c.geometry.Vertices...)
	c.material = &render.Material{Color: render.Color{R: 1, G: 1, B: 1}, Unlit: true}
	c.points = render.NewMesh("cover-points", c.geometry, c.material)

	c.group = render.NewGroup("cover")
	c.group.Add(c.points)
	c.Update(0, domain.NewFrequencySnapshot())
	return nil
}

// SetPointSize sets the uSize parameter.
func (c *Cover) SetPointSize(size float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pointSize = size
}

// PointSize returns the uSize parameter.
func (c *Cover) PointSize() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pointSize
}

// SetCover replaces the artwork. A nil image selects the placeholder.
// The new colors are applied on the next Update.
func (c *Cover) SetCover(img image.Image) {
	if img == nil {
		img = Placeholder()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texture = img
	c.dirty = true
}

// Texture returns the current artwork.
func (c *Cover) Texture() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.texture
}

// Uniforms returns the time and audio frequency of the last Update.
func (c *Cover) Uniforms() (t, frequency float64) {
	return c.time, c.frequency
}

// Update implements Visualizer.
func (c *Cover) Update(t float64, snap domain.FrequencySnapshot) {
	c.time = t
	c.frequency = float64(snap.Bin(0))

	c.mu.Lock()
	size := c.pointSize
	tex, dirty := c.texture, c.dirty
	c.dirty = false
	c.mu.Unlock()

	c.material.PointSize = size * pointSizeUnit
	if dirty {
		c.sampleTexture(tex)
	}

	amp := c.frequency / 255 * coverWaveAmp
	for i, p := range c.rest {
		dist := math.Hypot(p.X(), p.Y())
		c.geometry.Vertices[i] = render.V3(p.X(), p.Y(), math.Sin(dist*1.2-t*3)*amp)
	}
}

// sampleTexture maps the artwork onto the grid, nearest neighbor.
func (c *Cover) sampleTexture(img image.Image) {
	b := img.Bounds()
	for j := 0; j < coverGrid; j++ {
		for i := 0; i < coverGrid; i++ {
			x := b.Min.X + i*(b.Dx()-1)/(coverGrid-1)
			y := b.Min.Y + j*(b.Dy()-1)/(coverGrid-1)
			r, g, bl, _ := img.At(x, y).RGBA()
			c.geometry.Colors[j*coverGrid+i] = render.Color{
				R: float64(r) / 0xffff,
				G: float64(g) / 0xffff,
				B: float64(bl) / 0xffff,
			}
		}
	}
}
