// Package mock provides in-memory implementations of the audio ports.
// They are used for testing services and for running without an output device.
package mock

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
)

// DefaultDuration is the simulated length of every loaded source.
const DefaultDuration = 3 * time.Minute

// toneFrequency is the pitch of the synthetic signal exposed while playing.
const toneFrequency = 440.0

// Engine simulates audio playback in memory without producing sound.
// While a source is playing, Samples returns a volume-scaled sine tone so
// the analysis pipeline sees a live signal.
//
// Thread-safety: This implementation is thread-safe.
type Engine struct {
	logger *slog.Logger

	initialized bool
	sampleRate  int

	tracks     map[domain.TrackHandle]*mockTrack
	nextHandle domain.TrackHandle
	durations  map[string]time.Duration
	phase      float64
	mu         sync.RWMutex

	// Behavior configuration (for testing error scenarios)
	failInitialize bool
	failLoad       bool
	failPlay       bool
	failPlayNext   int
	playCalls      int
}

// mockTrack represents a loaded source in the mock engine.
type mockTrack struct {
	handle   domain.TrackHandle
	source   string
	duration time.Duration
	position time.Duration
	volume   float64
	status   domain.PlaybackStatus
}

// NewEngine creates a new mock audio engine.
func NewEngine() *Engine {
	return &Engine{
		tracks:     make(map[domain.TrackHandle]*mockTrack),
		durations:  make(map[string]time.Duration),
		nextHandle: 1,
		sampleRate: 44100,
	}
}

// SetLogger sets the logger for this engine.
func (m *Engine) SetLogger(logger *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

// SetFailInitialize configures the mock to fail initialization.
func (m *Engine) SetFailInitialize(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failInitialize = fail
}

// SetFailLoad configures the mock to fail loading sources.
func (m *Engine) SetFailLoad(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLoad = fail
}

// SetFailPlay configures the mock to reject every Play call.
func (m *Engine) SetFailPlay(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPlay = fail
}

// FailNextPlays makes the next n Play calls fail, then recovers.
func (m *Engine) FailNextPlays(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPlayNext = n
}

// PlayCalls returns how many times Play was called.
func (m *Engine) PlayCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playCalls
}

// SetDuration overrides the simulated duration of a source.
func (m *Engine) SetDuration(source string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[source] = d
}

// Initialize initializes the mock audio engine.
func (m *Engine) Initialize(sampleRate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failInitialize {
		return domain.NewAudioEngineError("initialize", "", -1, "mock initialization failed", nil)
	}
	if m.initialized {
		return domain.ErrAlreadyInitialized
	}
	if sampleRate > 0 {
		m.sampleRate = sampleRate
	}
	m.initialized = true
	return nil
}

// Shutdown shuts down the mock audio engine.
func (m *Engine) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return domain.ErrNotInitialized
	}
	m.initialized = false
	m.tracks = make(map[domain.TrackHandle]*mockTrack)
	return nil
}

// IsInitialized returns true if the engine is initialized.
func (m *Engine) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// Load registers a source and returns a handle.
func (m *Engine) Load(source string) (domain.TrackHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return domain.InvalidTrackHandle, domain.ErrNotInitialized
	}
	if m.failLoad {
		return domain.InvalidTrackHandle, domain.NewAudioEngineError("load", source, -1, "mock load failed", nil)
	}
	if source == "" {
		return domain.InvalidTrackHandle, domain.ErrInvalidFilePath
	}

	duration, ok := m.durations[source]
	if !ok {
		duration = DefaultDuration
	}

	handle := m.nextHandle
	m.nextHandle++
	m.tracks[handle] = &mockTrack{
		handle:   handle,
		source:   source,
		duration: duration,
		volume:   1.0,
		status:   domain.StatusIdle,
	}
	return handle, nil
}

// lookup returns the track for handle. Caller holds the lock.
func (m *Engine) lookup(handle domain.TrackHandle) (*mockTrack, error) {
	if !m.initialized {
		return nil, domain.ErrNotInitialized
	}
	track, exists := m.tracks[handle]
	if !exists {
		return nil, domain.ErrInvalidTrackHandle
	}
	return track, nil
}

// Unload unloads a previously loaded source.
func (m *Engine) Unload(handle domain.TrackHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.lookup(handle); err != nil {
		return err
	}
	delete(m.tracks, handle)
	return nil
}

// Play starts or resumes playback. A source that ended restarts from zero.
func (m *Engine) Play(handle domain.TrackHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.playCalls++

	track, err := m.lookup(handle)
	if err != nil {
		return err
	}

	if m.failPlay || m.failPlayNext > 0 {
		if m.failPlayNext > 0 {
			m.failPlayNext--
		}
		return domain.NewAudioEngineError("play", track.source, -1, "mock playback rejected", domain.ErrPlaybackFailed)
	}

	if track.status == domain.StatusEnded {
		track.position = 0
	}
	track.status = domain.StatusPlaying
	return nil
}

// Pause pauses playback.
func (m *Engine) Pause(handle domain.TrackHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	track, err := m.lookup(handle)
	if err != nil {
		return err
	}
	if track.status == domain.StatusPlaying {
		track.status = domain.StatusPaused
	}
	return nil
}

// Stop stops playback and unloads the source.
func (m *Engine) Stop(handle domain.TrackHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.lookup(handle); err != nil {
		return err
	}
	delete(m.tracks, handle)
	return nil
}

// Status returns the playback status.
func (m *Engine) Status(handle domain.TrackHandle) (domain.PlaybackStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	track, err := m.lookup(handle)
	if err != nil {
		return domain.StatusIdle, err
	}
	return track.status, nil
}

// Position returns the current playback position.
func (m *Engine) Position(handle domain.TrackHandle) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	track, err := m.lookup(handle)
	if err != nil {
		return 0, err
	}
	return track.position, nil
}

// Duration returns the total duration.
func (m *Engine) Duration(handle domain.TrackHandle) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	track, err := m.lookup(handle)
	if err != nil {
		return 0, err
	}
	return track.duration, nil
}

// Seek sets the playback position.
func (m *Engine) Seek(handle domain.TrackHandle, position time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	track, err := m.lookup(handle)
	if err != nil {
		return err
	}
	if position < 0 || position > track.duration {
		return domain.NewValidationError("position", position, "outside track")
	}
	track.position = position
	if track.status == domain.StatusEnded {
		track.status = domain.StatusPaused
	}
	return nil
}

// SetVolume sets the playback volume.
func (m *Engine) SetVolume(handle domain.TrackHandle, volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	track, err := m.lookup(handle)
	if err != nil {
		return err
	}
	if volume < 0.0 || volume > 1.0 {
		return domain.ErrInvalidVolume
	}
	track.volume = volume
	return nil
}

// Volume returns the volume of a source (for testing).
func (m *Engine) Volume(handle domain.TrackHandle) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	track, err := m.lookup(handle)
	if err != nil {
		return 0, err
	}
	return track.volume, nil
}

// SampleRate returns the configured output rate.
func (m *Engine) SampleRate() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sampleRate
}

// Samples fills dst with a sine tone while a source plays, zeros otherwise.
func (m *Engine) Samples(dst []float64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var playing *mockTrack
	for _, t := range m.tracks {
		if t.status == domain.StatusPlaying {
			playing = t
			break
		}
	}
	if playing == nil {
		for i := range dst {
			dst[i] = 0
		}
		return len(dst)
	}

	step := 2 * math.Pi * toneFrequency / float64(m.sampleRate)
	for i := range dst {
		dst[i] = 0.5 * playing.volume * math.Sin(m.phase)
		m.phase += step
	}
	m.phase = math.Mod(m.phase, 2*math.Pi)
	return len(dst)
}

// GetLoadedTracks returns the number of currently loaded sources (for testing).
func (m *Engine) GetLoadedTracks() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tracks)
}

// Source returns the source of a handle (for testing).
func (m *Engine) Source(handle domain.TrackHandle) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tracks[handle]; ok {
		return t.source
	}
	return ""
}

// SimulateProgress advances a playing source. Reaching the duration ends it.
func (m *Engine) SimulateProgress(handle domain.TrackHandle, delta time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	track, exists := m.tracks[handle]
	if !exists {
		return domain.ErrInvalidTrackHandle
	}
	if track.status != domain.StatusPlaying {
		return fmt.Errorf("track is not playing")
	}

	track.position += delta
	if track.position >= track.duration {
		track.position = track.duration
		track.status = domain.StatusEnded
	}
	return nil
}

// SimulateEnd makes a playing source reach its natural end.
func (m *Engine) SimulateEnd(handle domain.TrackHandle) error {
	m.mu.RLock()
	track, exists := m.tracks[handle]
	var remaining time.Duration
	if exists {
		remaining = track.duration - track.position
	}
	m.mu.RUnlock()

	if !exists {
		return domain.ErrInvalidTrackHandle
	}
	return m.SimulateProgress(handle, remaining)
}

// Verify that Engine implements the AudioEngine interface
var _ ports.AudioEngine = (*Engine)(nil)
