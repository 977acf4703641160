package visualizer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/logger"
	"github.com/tejashwikalptaru/tunescape/internal/render"
)

func fullSnapshot(level uint8) domain.FrequencySnapshot {
	snap := domain.NewFrequencySnapshot()
	for i := range snap {
		snap[i] = level
	}
	return snap
}

func newInitializedRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(logger.NewTestLogger())
	require.NoError(t, r.InitAll())
	return r
}

func TestRegistry_OrderAndDistances(t *testing.T) {
	r := NewRegistry(logger.NewTestLogger())

	want := map[domain.VisualizerID]float64{
		domain.VisualizerLine:  200,
		domain.VisualizerBoard: 20,
		domain.VisualizerLogo:  5,
		domain.VisualizerCover: 20,
		domain.VisualizerHeart: 20,
		domain.VisualizerStar:  20,
		domain.VisualizerCrown: 16,
	}

	all := r.All()
	require.Len(t, all, len(want))
	for i, v := range all {
		assert.Equal(t, domain.VisualizerID(i), v.ID())
		assert.Equal(t, want[v.ID()], v.CameraDistance(), v.ID().String())
		assert.Nil(t, v.Group(), "no geometry before Init")
	}

	assert.Nil(t, r.Get(domain.VisualizerID(42)))
	assert.Same(t, r.Cover(), r.Get(domain.VisualizerCover))
}

func TestRegistry_InitAllDoesNotAttach(t *testing.T) {
	r := newInitializedRegistry(t)
	scene := render.NewScene()

	for _, v := range r.All() {
		require.NotNil(t, v.Group(), v.ID().String())
		assert.False(t, scene.Contains(v.Group()))
	}

	heart := r.Get(domain.VisualizerHeart)
	heart.Attach(scene)
	assert.True(t, scene.Contains(heart.Group()))
	heart.Detach(scene)
	assert.Zero(t, scene.Len())
}

func TestHeart_PulseAndColor(t *testing.T) {
	h := NewHeart()
	require.NoError(t, h.Init())

	h.Update(0, fullSnapshot(255))
	assert.InDelta(t, 1.2*1.25, h.mesh.Scale.X(), 1e-9)
	assert.InDelta(t, 1.0, h.mesh.Scale.Z(), 1e-9)
	// sin(0) = 0 puts the blend halfway
	assert.Equal(t, heartBase.Lerp(heartAlt, 0.5), h.material.Color)

	h.Update(math.Pi/2, domain.NewFrequencySnapshot())
	assert.InDelta(t, 1.2, h.mesh.Scale.X(), 1e-9)
	assert.InDelta(t, heartAlt.R, h.material.Color.R, 1e-9)
	assert.InDelta(t, heartAlt.G, h.material.Color.G, 1e-9)
	assert.InDelta(t, heartAlt.B, h.material.Color.B, 1e-9)
}

func TestStar_SpinAccumulatesAndGlowFollowsLevel(t *testing.T) {
	s := NewStar()
	require.NoError(t, s.Init())

	s.Update(1, domain.NewFrequencySnapshot())
	assert.InDelta(t, starMinEmissive, s.material.EmissiveIntensity, 1e-9)
	assert.InDelta(t, 1.1, s.mesh.Scale.X(), 1e-9)

	s.Update(1, fullSnapshot(255))
	assert.InDelta(t, starMaxEmissive, s.material.EmissiveIntensity, 1e-9)
	assert.InDelta(t, 1.1*2.5, s.mesh.Scale.X(), 1e-9)

	assert.InDelta(t, 2*starSpin, s.Spin(), 1e-12)
	assert.InDelta(t, 2*starSpin, s.mesh.Rotation.Y(), 1e-12)
}

func TestCrown_MotionScalesWithLevel(t *testing.T) {
	c := NewCrown()
	require.NoError(t, c.Init())
	require.Len(t, c.jewels, 4)

	c.Update(math.Pi/6, domain.NewFrequencySnapshot())
	assert.Zero(t, c.group.Position.Y())
	assert.Zero(t, c.mesh.Rotation.Z())
	assert.Equal(t, render.V3(1, 1, 1), c.jewels[0].Scale)

	// sin(3 * pi/6) = 1
	c.Update(math.Pi/6, fullSnapshot(255))
	assert.InDelta(t, 1.3, c.group.Position.Y(), 1e-9)
	assert.InDelta(t, math.Sin(math.Pi/3)*0.7, c.mesh.Rotation.Z(), 1e-9)
	assert.InDelta(t, math.Sin(math.Pi/6)*0.2, c.mesh.Rotation.Y(), 1e-9)
	assert.Equal(t, c.material.Color, c.band.Color)
}

func TestUpdate_IsDeterministic(t *testing.T) {
	r := newInitializedRegistry(t)
	snap := fullSnapshot(128)

	for _, v := range r.All() {
		if v.ID() == domain.VisualizerStar {
			continue
		}
		v.Update(2.5, snap)
		first := v.Group().Children()[0].Scale
		v.Update(2.5, snap)
		assert.Equal(t, first, v.Group().Children()[0].Scale, v.ID().String())
	}
}

func TestCover_UniformsAndPointSize(t *testing.T) {
	c := NewCover()
	require.NoError(t, c.Init())
	assert.Equal(t, 4.0, c.PointSize())

	snap := domain.NewFrequencySnapshot()
	snap[0] = 200
	c.SetPointSize(8)
	c.Update(3, snap)

	tm, freq := c.Uniforms()
	assert.Equal(t, 3.0, tm)
	assert.Equal(t, 200.0, freq)
	assert.InDelta(t, 8*pointSizeUnit, c.material.PointSize, 1e-12)

	// silence flattens the plane
	c.Update(3, domain.NewFrequencySnapshot())
	for _, p := range c.geometry.Vertices {
		assert.Zero(t, p.Z())
	}
}

func TestCover_SetCoverSamplesTexture(t *testing.T) {
	c := NewCover()
	require.NoError(t, c.Init())

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	c.SetCover(img)
	c.Update(0, domain.NewFrequencySnapshot())
	assert.Equal(t, render.Color{R: 1, G: 1, B: 1}, c.geometry.Colors[0])

	c.SetCover(nil)
	assert.Equal(t, Placeholder().Bounds(), c.Texture().Bounds())
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoadImage_Sources(t *testing.T) {
	data := pngBytes(t)

	img, err := LoadImage(context.Background(), nil, DataURI("image/png", data))
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())

	path := filepath.Join(t.TempDir(), "cover.png")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	img, err = LoadImage(context.Background(), nil, path)
	require.NoError(t, err)
	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)

	_, err = LoadImage(context.Background(), nil, filepath.Join(t.TempDir(), "none.png"))
	assert.ErrorIs(t, err, domain.ErrFileNotFound)

	_, err = LoadImage(context.Background(), nil, "data:text/plain,hello")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}
