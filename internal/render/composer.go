package render

import (
	"image"
	"math"
	"sync"
)

// Pass is one stage of the post-processing chain. Passes read and write the
// composer's frame in place.
type Pass interface {
	Apply(f *Frame)
}

// RenderPass draws a scene into the frame.
type RenderPass struct {
	Scene  *Scene
	Camera *Camera

	raster Rasterizer
}

// NewRenderPass creates a pass drawing scene from camera.
func NewRenderPass(scene *Scene, camera *Camera) *RenderPass {
	return &RenderPass{Scene: scene, Camera: camera}
}

// Apply implements Pass.
func (p *RenderPass) Apply(f *Frame) {
	p.raster.Draw(f, p.Scene, p.Camera)
}

// bloomMips is the number of blur levels, each half the previous resolution.
const bloomMips = 3

var (
	bloomKernels = [bloomMips]int{3, 5, 7}
	bloomFactors = [bloomMips]float64{1.0, 0.8, 0.6}
)

// BloomPass adds a blurred copy of the frame's bright areas back onto it.
// Threshold is the luminance above which pixels glow, Strength scales the
// glow and Radius shifts weight toward the wider blur levels.
type BloomPass struct {
	mu        sync.RWMutex
	threshold float64
	strength  float64
	radius    float64

	mips [bloomMips]*Frame
	tmp  [bloomMips]*Frame
}

// NewBloomPass creates a bloom pass.
func NewBloomPass(threshold, strength, radius float64) *BloomPass {
	return &BloomPass{threshold: threshold, strength: strength, radius: radius}
}

// SetParams replaces all three parameters.
func (b *BloomPass) SetParams(threshold, strength, radius float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.threshold, b.strength, b.radius = threshold, strength, radius
}

// Params returns the current parameters.
func (b *BloomPass) Params() (threshold, strength, radius float64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.threshold, b.strength, b.radius
}

// Apply implements Pass.
func (b *BloomPass) Apply(f *Frame) {
	threshold, strength, radius := b.Params()
	if strength <= 0 {
		return
	}

	w, h := f.Width, f.Height
	for i := 0; i < bloomMips; i++ {
		w, h = max(1, w/2), max(1, h/2)
		if b.mips[i] == nil {
			b.mips[i], b.tmp[i] = NewFrame(w, h), NewFrame(w, h)
		}
		b.mips[i].Resize(w, h)
		b.tmp[i].Resize(w, h)
	}

	// high pass into the first level, downsampled 2x
	extractBright(f, b.mips[0], threshold)
	blur(b.mips[0], b.tmp[0], bloomKernels[0])
	for i := 1; i < bloomMips; i++ {
		downsample(b.mips[i-1], b.mips[i])
		blur(b.mips[i], b.tmp[i], bloomKernels[i])
	}

	var weights [bloomMips]float64
	for i, factor := range bloomFactors {
		weights[i] = strength * (factor + (1.2-2*factor)*radius)
	}

	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			var glow Color
			for i, m := range b.mips {
				scale := float64(int(1) << (i + 1))
				glow = glow.Add(m.sample(float64(x)/scale, float64(y)/scale).Scale(weights[i]))
			}
			k := (y*f.Width + x) * 3
			f.Pix[k] += glow.R
			f.Pix[k+1] += glow.G
			f.Pix[k+2] += glow.B
		}
	}
}

func smoothstep(e0, e1, x float64) float64 {
	t := clamp01((x - e0) / (e1 - e0))
	return t * t * (3 - 2*t)
}

// extractBright keeps pixels above threshold, averaging 2x2 blocks of src.
func extractBright(src, dst *Frame, threshold float64) {
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			var sum Color
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					sx, sy := min(src.Width-1, x*2+dx), min(src.Height-1, y*2+dy)
					c := src.At(sx, sy)
					sum = sum.Add(c.Scale(smoothstep(threshold, threshold+0.01, c.Luminance())))
				}
			}
			dst.set(x, y, sum.Scale(0.25))
		}
	}
}

func downsample(src, dst *Frame) {
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			var sum Color
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					sum = sum.Add(src.At(min(src.Width-1, x*2+dx), min(src.Height-1, y*2+dy)))
				}
			}
			dst.set(x, y, sum.Scale(0.25))
		}
	}
}

// blur is a separable gaussian with the given kernel radius; tmp is scratch.
func blur(f, tmp *Frame, radius int) {
	sigma := float64(radius) / 2
	weights := make([]float64, radius+1)
	var total float64
	for i := range weights {
		weights[i] = math.Exp(-float64(i*i) / (2 * sigma * sigma))
		if i == 0 {
			total += weights[i]
		} else {
			total += 2 * weights[i]
		}
	}
	for i := range weights {
		weights[i] /= total
	}

	pass := func(src, dst *Frame, dx, dy int) {
		for y := 0; y < src.Height; y++ {
			for x := 0; x < src.Width; x++ {
				sum := src.At(x, y).Scale(weights[0])
				for i := 1; i <= radius; i++ {
					ax, ay := clampInt(x-i*dx, src.Width), clampInt(y-i*dy, src.Height)
					bx, by := clampInt(x+i*dx, src.Width), clampInt(y+i*dy, src.Height)
					sum = sum.Add(src.At(ax, ay).Add(src.At(bx, by)).Scale(weights[i]))
				}
				dst.set(x, y, sum)
			}
		}
	}
	pass(f, tmp, 1, 0)
	pass(tmp, f, 0, 1)
}

func clampInt(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

func (f *Frame) set(x, y int, c Color) {
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = c.R, c.G, c.B
}

// sample reads f bilinearly at fractional coordinates.
func (f *Frame) sample(x, y float64) Color {
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	tx, ty := x-float64(x0), y-float64(y0)
	x1, y1 := clampInt(x0+1, f.Width), clampInt(y0+1, f.Height)
	x0, y0 = clampInt(x0, f.Width), clampInt(y0, f.Height)

	top := f.At(x0, y0).Lerp(f.At(x1, y0), tx)
	bottom := f.At(x0, y1).Lerp(f.At(x1, y1), tx)
	return top.Lerp(bottom, ty)
}

// Composer runs passes over a shared frame and tone maps the result.
type Composer struct {
	frame  *Frame
	passes []Pass
	out    *image.RGBA
}

// NewComposer creates a composer for a width x height output.
func NewComposer(width, height int) *Composer {
	return &Composer{frame: NewFrame(width, height)}
}

// AddPass appends a pass to the chain.
func (c *Composer) AddPass(p Pass) {
	c.passes = append(c.passes, p)
}

// Passes returns the pass chain in order.
func (c *Composer) Passes() []Pass {
	return c.passes
}

// SetSize resizes the frame.
func (c *Composer) SetSize(width, height int) {
	c.frame.Resize(width, height)
}

// Size returns the frame size.
func (c *Composer) Size() (width, height int) {
	return c.frame.Width, c.frame.Height
}

// Render runs every pass and returns the composed image. The returned image
// is reused by the next Render call.
func (c *Composer) Render() *image.RGBA {
	for _, p := range c.passes {
		p.Apply(c.frame)
	}
	c.out = c.frame.ToRGBA(c.out)
	return c.out
}

// Frame returns the HDR frame of the last Render.
func (c *Composer) Frame() *Frame {
	return c.frame
}
