package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunescape/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunescape/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/logger"
	"github.com/tejashwikalptaru/tunescape/internal/testutil"
	"github.com/tejashwikalptaru/tunescape/internal/visualizer"
)

type sceneFixture struct {
	scene    *SceneService
	registry *visualizer.Registry
	settings *SettingsService
	library  *LibraryService
	bus      *eventbus.SyncEventBus
}

func newSceneFixture(t *testing.T) *sceneFixture {
	t.Helper()
	lib, _, bus, prefs := newTestLibrary(t)
	return newSceneFixtureWith(t, lib, bus, NewSettingsService(logger.NewTestLogger(), memory.NewSettingsRepository(prefs)))
}

func newSceneFixtureWith(t *testing.T, lib *LibraryService, bus *eventbus.SyncEventBus, settings *SettingsService) *sceneFixture {
	t.Helper()
	registry := visualizer.NewRegistry(logger.NewTestLogger())
	scene := NewSceneService(logger.NewTestLogger(), registry, settings, lib, bus, http.DefaultClient)
	t.Cleanup(func() { _ = scene.Shutdown() })
	return &sceneFixture{scene: scene, registry: registry, settings: settings, library: lib, bus: bus}
}

func (f *sceneFixture) ready(t *testing.T) {
	t.Helper()
	require.NoError(t, f.scene.SetupInitial(64, 48))
	require.NoError(t, f.scene.CompleteSetup())
}

func (f *sceneFixture) bloomParams() (threshold, strength, radius float64) {
	f.scene.mu.Lock()
	defer f.scene.mu.Unlock()
	return f.scene.bloom.Params()
}

func pngDataURI(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return visualizer.DataURI("image/png", buf.Bytes())
}

func TestSceneService_SetupInitialTwice(t *testing.T) {
	f := newSceneFixture(t)

	require.NoError(t, f.scene.SetupInitial(64, 48))
	assert.ErrorIs(t, f.scene.SetupInitial(64, 48), domain.ErrAlreadyInitialized)
	assert.False(t, f.scene.IsReady())

	// every variant is built but none is shown yet
	for _, v := range f.registry.All() {
		assert.NotNil(t, v.Group(), v.ID().String())
	}
	assert.Zero(t, f.scene.scene.Len())
}

func TestSceneService_CompleteBeforeSetup(t *testing.T) {
	f := newSceneFixture(t)

	assert.ErrorIs(t, f.scene.CompleteSetup(), domain.ErrNotInitialized)
	assert.ErrorIs(t, f.scene.SwitchVisualizer(domain.VisualizerStar), domain.ErrNotInitialized)
	assert.Nil(t, f.scene.Tick(0, domain.NewFrequencySnapshot()))
}

func TestSceneService_CompleteSetupDefaults(t *testing.T) {
	f := newSceneFixture(t)
	rec := recordEvents(f.bus, domain.EventSceneReady, domain.EventVisualizerChanged)

	f.ready(t)

	assert.True(t, f.scene.IsReady())
	assert.Equal(t, domain.DefaultVisualizer, f.scene.Current())
	assert.Equal(t, []domain.EventType{domain.EventVisualizerChanged, domain.EventSceneReady}, rec.types())
	assert.True(t, f.scene.scene.Contains(f.registry.Get(domain.DefaultVisualizer).Group()))
	assert.Equal(t, 1, f.scene.scene.Len())
}

func TestSceneService_CompleteSetupRestores(t *testing.T) {
	lib, _, bus, prefs := newTestLibrary(t)
	require.NoError(t, lib.SaveCurrentVisualizer(domain.VisualizerCrown))

	f := newSceneFixtureWith(t, lib, bus, NewSettingsService(logger.NewTestLogger(), memory.NewSettingsRepository(prefs)))
	f.ready(t)

	assert.Equal(t, domain.VisualizerCrown, f.scene.Current())
	threshold, _, _ := f.bloomParams()
	assert.Equal(t, 0.34, threshold)
	assert.Equal(t, 16.0, f.scene.controls.Distance())
}

func TestSceneService_SwitchVisualizer(t *testing.T) {
	f := newSceneFixture(t)
	f.ready(t)
	rec := recordEvents(f.bus, domain.EventVisualizerChanged)

	require.NoError(t, f.scene.SwitchVisualizer(domain.VisualizerLine))

	assert.Equal(t, domain.VisualizerLine, f.scene.Current())
	assert.True(t, f.scene.scene.Contains(f.registry.Get(domain.VisualizerLine).Group()))
	assert.False(t, f.scene.scene.Contains(f.registry.Get(domain.VisualizerBoard).Group()))
	assert.Equal(t, 200.0, f.scene.controls.Distance())

	id, ok := f.library.CurrentVisualizer()
	assert.True(t, ok)
	assert.Equal(t, domain.VisualizerLine, id)

	changed := rec.last(domain.EventVisualizerChanged).(domain.VisualizerChangedEvent)
	assert.Equal(t, domain.VisualizerLine, changed.Visualizer)
	assert.Equal(t, domain.DefaultSettings(domain.VisualizerLine), changed.Settings)
}

func TestSceneService_SwitchUnknown(t *testing.T) {
	f := newSceneFixture(t)
	f.ready(t)

	assert.ErrorIs(t, f.scene.SwitchVisualizer(domain.VisualizerID(42)), domain.ErrUnknownVisualizer)
	assert.Equal(t, domain.DefaultVisualizer, f.scene.Current())
}

func TestSceneService_SettingsDoNotLeakBetweenVisualizers(t *testing.T) {
	f := newSceneFixture(t)
	f.ready(t)

	require.NoError(t, f.scene.SwitchVisualizer(domain.VisualizerHeart))
	require.NoError(t, f.scene.SetBloomParam(domain.KeyStrength, 2.5))
	require.NoError(t, f.scene.SetBloomParam(domain.KeyThreshold, 0.9))

	threshold, strength, radius := f.bloomParams()
	assert.Equal(t, 0.9, threshold)
	assert.Equal(t, 2.5, strength)
	assert.Equal(t, 1.0, radius)

	require.NoError(t, f.scene.SwitchVisualizer(domain.VisualizerStar))
	threshold, strength, _ = f.bloomParams()
	assert.Equal(t, 0.2, threshold)
	assert.Equal(t, 0.6, strength)
	assert.Equal(t, domain.DefaultSettings(domain.VisualizerStar), f.scene.Settings())

	require.NoError(t, f.scene.SwitchVisualizer(domain.VisualizerHeart))
	threshold, strength, _ = f.bloomParams()
	assert.Equal(t, 0.9, threshold)
	assert.Equal(t, 2.5, strength)
}

func TestSceneService_SetBloomParamValidates(t *testing.T) {
	f := newSceneFixture(t)
	assert.ErrorIs(t, f.scene.SetBloomParam(domain.KeyRadius, 0.5), domain.ErrNotInitialized)

	f.ready(t)

	var vErr *domain.ValidationError
	assert.ErrorAs(t, f.scene.SetBloomParam(domain.KeyRadius, 5), &vErr)
	assert.ErrorAs(t, f.scene.SetBloomParam("exposure", 1), &vErr)

	_, _, radius := f.bloomParams()
	assert.Equal(t, 1.0, radius)
}

func TestSceneService_CoverPointSize(t *testing.T) {
	f := newSceneFixture(t)
	f.ready(t)

	require.NoError(t, f.scene.SetCoverPointSize(7))
	assert.Equal(t, 7.0, f.registry.Cover().PointSize())

	// switching away and back keeps the persisted size
	require.NoError(t, f.scene.SwitchVisualizer(domain.VisualizerCover))
	assert.Equal(t, 7.0, f.registry.Cover().PointSize())
	assert.Equal(t, 7.0, f.scene.Settings().Cover.PointSize)

	var vErr *domain.ValidationError
	assert.ErrorAs(t, f.scene.SetCoverPointSize(11), &vErr)
	assert.Equal(t, 7.0, f.registry.Cover().PointSize())
}

func TestSceneService_ResetSettings(t *testing.T) {
	f := newSceneFixture(t)
	f.ready(t)

	require.NoError(t, f.scene.SwitchVisualizer(domain.VisualizerCover))
	require.NoError(t, f.scene.SetBloomParam(domain.KeyRadius, 0.3))
	require.NoError(t, f.scene.SetCoverPointSize(9))

	rec := recordEvents(f.bus, domain.EventVisualizerChanged)
	settings, err := f.scene.ResetSettings()
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultSettings(domain.VisualizerCover), settings)
	assert.Equal(t, 4.0, f.registry.Cover().PointSize())
	_, _, radius := f.bloomParams()
	assert.Equal(t, 1.0, radius)
	assert.Equal(t, 1, rec.count(domain.EventVisualizerChanged))
}

func TestSceneService_SetCover(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreFyneGoroutines()...)

	f := newSceneFixture(t)
	f.ready(t)
	cover := f.registry.Cover()
	placeholder := cover.Texture().Bounds()

	f.scene.SetCover(pngDataURI(t, 3, 2, color.RGBA{R: 255, A: 255}))
	require.Eventually(t, func() bool { return cover.Texture().Bounds().Dx() == 3 }, waitFor, tick)

	f.scene.SetCover("data:image/png;base64,!!!")
	require.Eventually(t, func() bool { return cover.Texture().Bounds() == placeholder }, waitFor, tick)

	f.scene.SetCover(pngDataURI(t, 3, 2, color.RGBA{G: 255, A: 255}))
	require.Eventually(t, func() bool { return cover.Texture().Bounds().Dx() == 3 }, waitFor, tick)

	f.scene.SetCover(domain.DefaultCover)
	assert.Equal(t, placeholder, cover.Texture().Bounds())

	require.NoError(t, f.scene.Shutdown())
}

func TestSceneService_SetCoverFromURL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 5, 5))))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	f := newSceneFixture(t)
	f.ready(t)

	// track changes drive the artwork
	track := createTestTrack("1", "Remote", "/remote.mp3")
	track.Cover = server.URL + "/cover.png"
	f.bus.Publish(domain.NewTrackChangedEvent(track, 0))

	require.Eventually(t, func() bool { return f.registry.Cover().Texture().Bounds().Dx() == 5 }, waitFor, tick)
}

func TestSceneService_SetCoverLatestWins(t *testing.T) {
	f := newSceneFixture(t)
	f.ready(t)

	f.scene.SetCover(pngDataURI(t, 3, 3, color.White))
	f.scene.SetCover(pngDataURI(t, 6, 6, color.White))

	require.Eventually(t, func() bool { return f.registry.Cover().Texture().Bounds().Dx() == 6 }, waitFor, tick)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 6, f.registry.Cover().Texture().Bounds().Dx())
}

func TestSceneService_Tick(t *testing.T) {
	f := newSceneFixture(t)
	f.ready(t)
	require.NoError(t, f.scene.SwitchVisualizer(domain.VisualizerCover))

	frame := f.scene.Tick(0.5, nil)
	require.NotNil(t, frame)
	assert.Equal(t, image.Rect(0, 0, 64, 48), frame.Bounds())

	// without a snapshot the animation is left untouched
	ts, _ := f.registry.Cover().Uniforms()
	assert.Zero(t, ts)

	snap := domain.NewFrequencySnapshot()
	for i := range snap {
		snap[i] = 200
	}
	f.scene.Tick(1.25, snap)
	ts, freq := f.registry.Cover().Uniforms()
	assert.Equal(t, 1.25, ts)
	assert.Positive(t, freq)
}

func TestSceneService_Resize(t *testing.T) {
	f := newSceneFixture(t)
	f.scene.Resize(10, 10)

	f.ready(t)
	f.scene.Resize(32, 16)
	f.scene.Resize(0, 16)

	frame := f.scene.Tick(0, nil)
	require.NotNil(t, frame)
	assert.Equal(t, image.Rect(0, 0, 32, 16), frame.Bounds())
	assert.InDelta(t, 2.0, f.scene.camera.Aspect, 1e-9)
}

func TestSceneService_OrbitAndZoom(t *testing.T) {
	f := newSceneFixture(t)
	f.scene.Orbit(0.1, 0.1)
	f.scene.Zoom(2)

	f.ready(t)
	before := f.scene.controls.Distance()
	f.scene.Zoom(2)
	for i := 0; i < 50; i++ {
		f.scene.Tick(float64(i), nil)
	}
	assert.Greater(t, f.scene.controls.Distance(), before)
}
