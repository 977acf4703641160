package app

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunescape/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	config := DefaultConfig()
	config.UseMockAudio = true
	config.TestFyneApp = test.NewApp()
	config.LoadingMinimum = 0
	config.FrameRate = 100
	config.Width = 64
	config.Height = 48
	config.LogLevel = slog.LevelWarn
	return config
}

func TestNewApplication(t *testing.T) {
	app, err := NewApplication(testConfig(t))
	require.NoError(t, err)
	require.NotNil(t, app)

	// Verify all services were created
	playback, library, scene := app.GetServices()
	assert.NotNil(t, playback)
	assert.NotNil(t, library)
	assert.NotNil(t, scene)

	assert.NotNil(t, app.GetEventBus())
	assert.NotNil(t, app.GetFyneApp())
	assert.NotNil(t, app.GetMainWindow())

	assert.NoError(t, app.Shutdown())
}

func TestNewApplication_InvalidConfig(t *testing.T) {
	config := testConfig(t)
	config.SettingsBackend = "redis"

	_, err := NewApplication(config)
	assert.Error(t, err)
}

func TestApplicationLifecycle(t *testing.T) {
	app, err := NewApplication(testConfig(t))
	require.NoError(t, err)

	app.Start()
	app.Start()

	_, _, scene := app.GetServices()
	require.Eventually(t, scene.IsReady, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.DefaultVisualizer, scene.Current())

	assert.NoError(t, app.Shutdown())

	// Shutdown again should not panic
	assert.NoError(t, app.Shutdown())
}

func TestApplication_SQLiteSettings(t *testing.T) {
	config := testConfig(t)
	config.SettingsBackend = SettingsBackendSQLite
	config.SettingsDB = filepath.Join(t.TempDir(), "settings.db")

	app, err := NewApplication(config)
	require.NoError(t, err)

	app.Start()
	_, _, scene := app.GetServices()
	require.Eventually(t, scene.IsReady, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, scene.SwitchVisualizer(domain.VisualizerHeart))
	require.NoError(t, scene.SetBloomParam(domain.KeyStrength, 2.5))
	require.NoError(t, app.Shutdown())

	// Settings survive a restart, the session lives in preferences
	config.TestFyneApp = test.NewApp()
	restarted, err := NewApplication(config)
	require.NoError(t, err)
	defer restarted.Shutdown()

	restarted.Start()
	_, _, scene = restarted.GetServices()
	require.Eventually(t, scene.IsReady, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, scene.SwitchVisualizer(domain.VisualizerHeart))
	assert.InDelta(t, 2.5, scene.Settings().Bloom.Strength, 1e-9)
}

func TestApplication_QueuedEventBus(t *testing.T) {
	config := testConfig(t)
	config.EventBus = EventBusQueued
	config.EventQueueSize = 1

	app, err := NewApplication(config)
	require.NoError(t, err)
	assert.IsType(t, &eventbus.QueuedEventBus{}, app.GetEventBus())

	app.Start()
	playback, _, scene := app.GetServices()
	require.Eventually(t, scene.IsReady, 2*time.Second, 5*time.Millisecond)

	// the play request is handled on the dispatcher, which publishes in turn
	track := domain.Track{ID: "q1", Title: "Queued", Source: "/queued.mp3"}
	app.GetEventBus().Publish(domain.NewPlayTrackEvent(track))
	require.Eventually(t, playback.IsPlaying, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "q1", playback.GetState().CurrentTrack.ID)

	assert.NoError(t, app.Shutdown())
}

func TestApplicationWithServices(t *testing.T) {
	app, err := NewApplication(testConfig(t))
	require.NoError(t, err)
	defer app.Shutdown()

	playback, library, _ := app.GetServices()

	assert.InDelta(t, 0.8, playback.GetState().Volume, 1e-9)
	assert.True(t, library.IsFormatSupported("song.mp3"))
	assert.False(t, library.IsFormatSupported("notes.txt"))
}
