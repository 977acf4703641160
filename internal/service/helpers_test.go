package service

import (
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunescape/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/tunescape/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunescape/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/logger"
)

// Helper to create an in-memory preferences backend
func newTestPreferences() fyne.Preferences {
	return test.NewApp().Preferences()
}

// Helper to create a library over fresh preferences
func newTestLibrary(t *testing.T) (*LibraryService, *mock.MetadataReader, *eventbus.SyncEventBus, fyne.Preferences) {
	t.Helper()
	prefs := newTestPreferences()
	meta := mock.NewMetadataReader()
	bus := eventbus.NewSyncEventBus()
	lib := NewLibraryService(logger.NewTestLogger(), memory.NewSessionRepository(prefs), meta, bus)
	return lib, meta, bus, prefs
}

// Helper to create a test track
func createTestTrack(id, title, source string) domain.Track {
	track, err := domain.NewTrack(domain.TrackInput{
		ID:       id,
		Title:    title,
		Artist:   "Test Artist",
		Source:   source,
		Duration: 3 * time.Minute,
	})
	if err != nil {
		panic(err)
	}
	return track
}

// fastPlaybackConfig keeps retry and progress timing short for tests
func fastPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		RetryDelay:     20 * time.Millisecond,
		UpdateInterval: 10 * time.Millisecond,
		Volume:         0.8,
	}
}

// eventRecorder collects published events of the given types.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func recordEvents(bus *eventbus.SyncEventBus, types ...domain.EventType) *eventRecorder {
	r := &eventRecorder{}
	for _, et := range types {
		bus.Subscribe(et, func(e domain.Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
		})
	}
	return r
}

func (r *eventRecorder) count(et domain.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type() == et {
			n++
		}
	}
	return n
}

func (r *eventRecorder) last(et domain.EventType) domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type() == et {
			return r.events[i]
		}
	}
	return nil
}

func (r *eventRecorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type()
	}
	return out
}

// playbackFixture wires a playback service to a mock engine.
type playbackFixture struct {
	service *PlaybackService
	engine  *mock.Engine
	library *LibraryService
	bus     *eventbus.SyncEventBus
	prefs   fyne.Preferences
}

func newTestPlaybackService(t *testing.T) *playbackFixture {
	t.Helper()
	lib, _, bus, prefs := newTestLibrary(t)
	return newPlaybackFixture(t, lib, bus, prefs)
}

func newPlaybackFixture(t *testing.T, lib *LibraryService, bus *eventbus.SyncEventBus, prefs fyne.Preferences) *playbackFixture {
	t.Helper()
	engine := mock.NewEngine()
	require.NoError(t, engine.Initialize(44100))

	service := NewPlaybackService(logger.NewTestLogger(), engine, lib, bus, fastPlaybackConfig())
	return &playbackFixture{service: service, engine: engine, library: lib, bus: bus, prefs: prefs}
}

func (f *playbackFixture) handle() domain.TrackHandle {
	f.service.mu.RLock()
	defer f.service.mu.RUnlock()
	return f.service.currentHandle
}
