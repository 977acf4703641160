package service

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunescape/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
)

// PlaybackConfig tunes the playback controller.
type PlaybackConfig struct {
	// RetryDelay is the wait before the single retry of a rejected start.
	RetryDelay time.Duration

	// UpdateInterval is the period of progress events and end detection.
	UpdateInterval time.Duration

	// Volume is the initial volume (0.0 to 1.0).
	Volume float64
}

// DefaultPlaybackConfig returns the production playback settings.
func DefaultPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		RetryDelay:     500 * time.Millisecond,
		UpdateInterval: 250 * time.Millisecond,
		Volume:         0.8,
	}
}

// PlaybackService is the only owner of the audio engine. It keeps the
// playback state machine, records plays in the library, navigates the
// history-scoped play context and reacts to track requests on the bus.
// All operations are thread-safe via sync.RWMutex.
type PlaybackService struct {
	// Dependencies (injected)
	logger  *slog.Logger
	engine  ports.AudioEngine
	library *LibraryService
	bus     ports.EventBus
	cfg     PlaybackConfig

	// State
	currentTrack  *domain.Track
	currentHandle domain.TrackHandle
	currentIndex  int
	duration      time.Duration
	status        domain.PlaybackStatus
	volume        float64
	isLooping     bool
	bpm           float64
	subs          []domain.SubscriptionID
	closed        bool

	// Retry of a rejected start; playGen invalidates retries of older requests
	retry   *time.Timer
	playGen uint64

	// Concurrency control
	mu            sync.RWMutex
	stopUpdate    chan struct{}
	updateRunning bool
	updateWg      sync.WaitGroup // waits for the update goroutine to exit
	retryWg       sync.WaitGroup // waits for a fired retry to finish
}

// NewPlaybackService creates a playback service, subscribes it to the inbound
// track requests and starts the progress routine.
func NewPlaybackService(
	logger *slog.Logger,
	engine ports.AudioEngine,
	library *LibraryService,
	bus ports.EventBus,
	cfg PlaybackConfig,
) *PlaybackService {
	s := &PlaybackService{
		logger:        logger,
		engine:        engine,
		library:       library,
		bus:           bus,
		cfg:           cfg,
		currentHandle: domain.InvalidTrackHandle,
		currentIndex:  -1,
		volume:        cfg.Volume,
		stopUpdate:    make(chan struct{}),
	}

	play := func(track domain.Track) {
		if err := s.PlayTrack(track); err != nil {
			s.logger.Warn("requested track not played", slog.String("track", track.Title), slog.Any("error", err))
		}
	}
	s.subs = []domain.SubscriptionID{
		eventbus.On(bus, domain.EventTrackSelected, func(e domain.TrackSelectedEvent) { play(e.Track) }),
		eventbus.On(bus, domain.EventPlayTrack, func(e domain.PlayTrackEvent) { play(e.Track) }),
		eventbus.On(bus, domain.EventTrackUploaded, func(e domain.TrackUploadedEvent) { play(e.Track) }),
		eventbus.On(bus, domain.EventTempoEstimate, s.onTempoEstimated),
	}

	logger.Debug("playback service initialized")

	s.startUpdateRoutine()

	return s
}

// PlayTrack plays track at its position in the play context.
func (s *PlaybackService) PlayTrack(track domain.Track) error {
	return s.Play(track, -1)
}

// Play loads and starts track. index is its position in the play context;
// a negative index is looked up after the play was recorded.
//
// A rejected start is retried once after RetryDelay. A second rejection
// publishes playback.failed and leaves the controller idle. Either way the
// request itself succeeds: the track became current and was recorded.
func (s *PlaybackService) Play(track domain.Track, index int) error {
	if strings.TrimSpace(track.Source) == "" {
		return domain.ErrNoSource
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrNotInitialized
	}

	s.logger.Debug("play requested", slog.String("source", track.Source))

	s.stopInternal()
	s.currentTrack = &track
	s.currentIndex = index
	s.status = domain.StatusLoading
	s.bpm = 0

	events, err := s.startLocked(track)
	if err != nil {
		s.logger.Warn("playback rejected, retrying",
			slog.String("source", track.Source),
			slog.Duration("delay", s.cfg.RetryDelay),
			slog.Any("error", err))
		s.scheduleRetryLocked(track, func() ([]domain.Event, error) { return s.startLocked(track) })
	}
	s.mu.Unlock()

	if err := s.library.RecordPlay(track); err != nil {
		s.logger.Warn("failed to record play", slog.Any("error", err))
	}
	if err := s.library.SaveCurrentTrack(&track); err != nil {
		s.logger.Warn("failed to persist current track", slog.Any("error", err))
	}

	if index < 0 {
		index = domain.IndexOfTrack(s.library.PlayContext(), track)
		s.mu.Lock()
		if s.currentTrack != nil && domain.SameTrack(*s.currentTrack, track) {
			s.currentIndex = index
		}
		s.mu.Unlock()
	}

	s.bus.Publish(domain.NewTrackChangedEvent(track, index))
	s.publish(events)
	return nil
}

// startLocked loads track into the engine and starts it.
// Expects write lock held. On failure nothing stays loaded.
func (s *PlaybackService) startLocked(track domain.Track) ([]domain.Event, error) {
	handle, duration, err := s.loadLocked(track)
	if err != nil {
		return nil, err
	}

	if err := s.engine.Play(handle); err != nil {
		s.unloadLocked()
		return nil, err
	}
	s.status = domain.StatusPlaying

	s.logger.Info("playback started", slog.String("track", track.Title))

	return []domain.Event{
		domain.NewTrackLoadedEvent(track, handle, duration, s.currentIndex),
		domain.NewTrackStartedEvent(track),
	}, nil
}

// loadLocked loads track without starting it. Expects write lock held.
func (s *PlaybackService) loadLocked(track domain.Track) (domain.TrackHandle, time.Duration, error) {
	handle, err := s.engine.Load(track.Source)
	if err != nil {
		return domain.InvalidTrackHandle, 0, err
	}

	if err := s.engine.SetVolume(handle, s.volume); err != nil {
		s.unloadHandle(handle)
		return domain.InvalidTrackHandle, 0, err
	}

	duration, err := s.engine.Duration(handle)
	if err != nil {
		s.unloadHandle(handle)
		return domain.InvalidTrackHandle, 0, err
	}
	if duration == 0 {
		duration = track.Duration
	}

	s.unloadLocked()
	s.currentHandle = handle
	s.duration = duration
	return handle, duration, nil
}

func (s *PlaybackService) unloadHandle(handle domain.TrackHandle) {
	if err := s.engine.Unload(handle); err != nil {
		s.logger.Warn("failed to unload track", slog.Any("error", err))
	}
}

// unloadLocked releases the current engine source. Expects write lock held.
func (s *PlaybackService) unloadLocked() {
	if s.currentHandle == domain.InvalidTrackHandle {
		return
	}
	s.unloadHandle(s.currentHandle)
	s.currentHandle = domain.InvalidTrackHandle
}

// scheduleRetryLocked runs attempt once after RetryDelay unless a newer
// request or Shutdown came first. Expects write lock held.
func (s *PlaybackService) scheduleRetryLocked(track domain.Track, attempt func() ([]domain.Event, error)) {
	gen := s.playGen
	s.retryWg.Add(1)
	s.retry = time.AfterFunc(s.cfg.RetryDelay, func() {
		defer s.retryWg.Done()

		s.mu.Lock()
		if s.closed || gen != s.playGen {
			s.mu.Unlock()
			return
		}
		s.retry = nil

		events, err := attempt()
		if err != nil {
			s.status = domain.StatusIdle
			s.mu.Unlock()

			s.logger.Error("playback failed after retry", slog.String("source", track.Source), slog.Any("error", err))
			s.bus.Publish(domain.NewPlaybackFailedEvent(track, err))
			return
		}
		s.mu.Unlock()

		s.publish(events)
	})
}

// cancelRetryLocked drops a pending retry, including one whose timer already
// fired and is waiting for the lock. Expects write lock held.
func (s *PlaybackService) cancelRetryLocked() {
	s.playGen++
	if s.retry == nil {
		return
	}
	if s.retry.Stop() {
		s.retryWg.Done()
	}
	s.retry = nil
}

// Pause pauses playback. Pausing while not playing is a no-op apart from
// loading the current track's source when it has none, so a restored or
// stopped track is ready at its position.
func (s *PlaybackService) Pause() error {
	s.mu.Lock()

	switch s.status {
	case domain.StatusPlaying:
	case domain.StatusLoading:
		// a start is pending a retry; keep the track but do not start it
		s.cancelRetryLocked()
		s.status = domain.StatusPaused
		events := s.reconcileLocked()
		s.mu.Unlock()

		s.publish(events)
		return nil
	default:
		events := s.reconcileLocked()
		s.mu.Unlock()

		s.publish(events)
		return nil
	}

	if err := s.engine.Pause(s.currentHandle); err != nil {
		s.mu.Unlock()
		return err
	}
	s.status = domain.StatusPaused

	position, _ := s.engine.Position(s.currentHandle)
	track := *s.currentTrack
	s.mu.Unlock()

	s.bus.Publish(domain.NewTrackPausedEvent(track, position))
	return nil
}

// reconcileLocked loads the current track when no source is loaded.
// A load failure is logged; Resume tries again. Expects write lock held.
func (s *PlaybackService) reconcileLocked() []domain.Event {
	if s.currentTrack == nil || s.currentHandle != domain.InvalidTrackHandle {
		return nil
	}
	track := *s.currentTrack
	handle, duration, err := s.loadLocked(track)
	if err != nil {
		s.logger.Warn("failed to load current track", slog.String("source", track.Source), slog.Any("error", err))
		return nil
	}
	return []domain.Event{domain.NewTrackLoadedEvent(track, handle, duration, s.currentIndex)}
}

// Resume continues playback of the current track. A track that was restored
// or stopped is loaded into the engine first. Resuming while playing is a no-op.
func (s *PlaybackService) Resume() error {
	s.mu.Lock()

	if s.status == domain.StatusPlaying {
		s.mu.Unlock()
		return nil
	}
	if s.currentTrack == nil {
		s.mu.Unlock()
		return domain.ErrNoTrackLoaded
	}

	s.cancelRetryLocked()
	track := *s.currentTrack

	var events []domain.Event
	if s.currentHandle == domain.InvalidTrackHandle {
		handle, duration, err := s.loadLocked(track)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		events = append(events, domain.NewTrackLoadedEvent(track, handle, duration, s.currentIndex))
	}

	if err := s.engine.Play(s.currentHandle); err != nil {
		s.logger.Warn("resume rejected, retrying", slog.Any("error", err))
		s.status = domain.StatusLoading
		handle := s.currentHandle
		s.scheduleRetryLocked(track, func() ([]domain.Event, error) {
			if err := s.engine.Play(handle); err != nil {
				return nil, err
			}
			s.status = domain.StatusPlaying
			return []domain.Event{domain.NewTrackStartedEvent(track)}, nil
		})
		s.mu.Unlock()

		s.publish(events)
		return nil
	}
	s.status = domain.StatusPlaying
	s.mu.Unlock()

	s.publish(append(events, domain.NewTrackStartedEvent(track)))
	return nil
}

// TogglePlayPause pauses when playing and resumes otherwise.
// Returns whether playback is running afterwards.
func (s *PlaybackService) TogglePlayPause() (bool, error) {
	s.mu.RLock()
	playing := s.status == domain.StatusPlaying
	s.mu.RUnlock()

	if playing {
		return false, s.Pause()
	}
	if err := s.Resume(); err != nil {
		return false, err
	}
	return s.IsPlaying(), nil
}

// IsPlaying reports whether playback is running.
func (s *PlaybackService) IsPlaying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status == domain.StatusPlaying
}

// Stop stops playback and releases the engine source. The current track is
// kept so Resume starts it again from the beginning.
func (s *PlaybackService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopInternal()
	return nil
}

// stopInternal stops the current source. Expects write lock held.
func (s *PlaybackService) stopInternal() {
	s.cancelRetryLocked()

	if s.currentHandle != domain.InvalidTrackHandle {
		if err := s.engine.Stop(s.currentHandle); err != nil {
			s.logger.Warn("failed to stop track", slog.Any("error", err))
		}
		s.currentHandle = domain.InvalidTrackHandle
	}
	s.status = domain.StatusIdle
}

// Seek moves the playback position, clamped to the track, and publishes
// track.progress.
func (s *PlaybackService) Seek(position time.Duration) error {
	s.mu.Lock()

	if s.currentTrack == nil {
		s.mu.Unlock()
		return domain.ErrNoTrackLoaded
	}

	var events []domain.Event
	if s.currentHandle == domain.InvalidTrackHandle {
		// a pending start would reload from zero over the seek
		s.cancelRetryLocked()
		handle, duration, err := s.loadLocked(*s.currentTrack)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.status = domain.StatusPaused
		events = append(events, domain.NewTrackLoadedEvent(*s.currentTrack, handle, duration, s.currentIndex))
	}

	position = max(0, min(position, s.duration))
	if err := s.engine.Seek(s.currentHandle, position); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.status == domain.StatusEnded {
		s.status = domain.StatusPaused
	}
	duration := s.duration
	s.mu.Unlock()

	s.publish(events)
	s.bus.Publish(domain.NewTrackProgressEvent(position, duration))
	return nil
}

// NextTrack plays the track after the current one in the play context,
// wrapping to the first. Returns domain.ErrHistoryEmpty when nothing was played yet.
func (s *PlaybackService) NextTrack() error {
	return s.step(1)
}

// PreviousTrack plays the track before the current one in the play context,
// wrapping to the last. Returns domain.ErrHistoryEmpty when nothing was played yet.
func (s *PlaybackService) PreviousTrack() error {
	return s.step(-1)
}

func (s *PlaybackService) step(delta int) error {
	tracks := s.library.PlayContext()
	if len(tracks) == 0 {
		return domain.ErrHistoryEmpty
	}

	s.mu.RLock()
	current := -1
	if s.currentTrack != nil {
		current = domain.IndexOfTrack(tracks, *s.currentTrack)
	}
	s.mu.RUnlock()

	n := len(tracks)
	var next int
	switch {
	case current < 0 && delta < 0:
		next = n - 1
	case current < 0:
		next = 0
	default:
		next = ((current+delta)%n + n) % n
	}
	return s.Play(tracks[next], next)
}

// RestoreLastTrack makes the persisted current track current again without
// playing it: the controller ends up paused at the start so Resume works.
// Returns false when nothing was persisted.
func (s *PlaybackService) RestoreLastTrack() (bool, error) {
	track := s.library.CurrentTrack()
	if track == nil {
		return false, nil
	}
	index := domain.IndexOfTrack(s.library.PlayContext(), *track)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, domain.ErrNotInitialized
	}

	s.stopInternal()
	s.currentTrack = track
	s.currentIndex = index
	s.status = domain.StatusPaused

	var events []domain.Event
	handle, duration, err := s.loadLocked(*track)
	if err != nil {
		// Resume loads it again
		s.logger.Warn("failed to preload restored track", slog.String("source", track.Source), slog.Any("error", err))
	} else {
		events = append(events, domain.NewTrackLoadedEvent(*track, handle, duration, index))
	}
	s.mu.Unlock()

	s.logger.Info("restored last track", slog.String("track", track.Title))

	s.bus.Publish(domain.NewTrackChangedEvent(*track, index))
	s.publish(events)
	return true, nil
}

// SetVolume sets the volume (0.0 to 1.0) and publishes volume.changed.
func (s *PlaybackService) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return domain.ErrInvalidVolume
	}

	s.mu.Lock()
	if s.currentHandle != domain.InvalidTrackHandle {
		if err := s.engine.SetVolume(s.currentHandle, volume); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.volume = volume
	s.mu.Unlock()

	s.bus.Publish(domain.NewVolumeChangedEvent(volume))
	return nil
}

// GetVolume returns the current volume.
func (s *PlaybackService) GetVolume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// SetLoop enables or disables replaying the current track when it ends.
func (s *PlaybackService) SetLoop(loop bool) {
	s.mu.Lock()
	changed := s.isLooping != loop
	s.isLooping = loop
	s.mu.Unlock()

	if changed {
		s.bus.Publish(domain.NewLoopToggledEvent(loop))
	}
}

// ToggleLoop flips loop mode and returns the new state.
func (s *PlaybackService) ToggleLoop() bool {
	s.mu.Lock()
	s.isLooping = !s.isLooping
	loop := s.isLooping
	s.mu.Unlock()

	s.bus.Publish(domain.NewLoopToggledEvent(loop))
	return loop
}

// IsLooping returns whether loop mode is enabled.
func (s *PlaybackService) IsLooping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLooping
}

// GetState returns a snapshot of the playback state.
func (s *PlaybackService) GetState() domain.PlaybackState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := domain.PlaybackState{
		CurrentIndex: s.currentIndex,
		Status:       s.status,
		Duration:     s.duration,
		Volume:       s.volume,
		IsLooping:    s.isLooping,
		BPM:          s.bpm,
	}

	if s.currentTrack != nil {
		track := *s.currentTrack
		state.CurrentTrack = &track
	}

	if s.currentHandle != domain.InvalidTrackHandle {
		if position, err := s.engine.Position(s.currentHandle); err == nil {
			state.Position = position
		}
	}

	return state
}

func (s *PlaybackService) onTempoEstimated(e domain.TempoEstimatedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentTrack != nil && domain.SameTrack(*s.currentTrack, e.Track) {
		s.bpm = e.BPM
	}
}

func (s *PlaybackService) publish(events []domain.Event) {
	for _, e := range events {
		s.bus.Publish(e)
	}
}

// Shutdown stops playback and cleans up resources.
func (s *PlaybackService) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	// Stop update routine
	if s.updateRunning {
		close(s.stopUpdate)
		s.updateRunning = false
	}
	s.cancelRetryLocked()

	// Release lock before waiting for goroutines to exit (to avoid deadlock)
	s.mu.Unlock()

	s.updateWg.Wait()
	s.retryWg.Wait()

	for _, id := range s.subs {
		s.bus.Unsubscribe(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopInternal()
	s.currentTrack = nil
	s.currentIndex = -1
	return nil
}

// startUpdateRoutine starts a goroutine that periodically publishes progress events.
func (s *PlaybackService) startUpdateRoutine() {
	s.mu.Lock()
	if s.updateRunning {
		s.mu.Unlock()
		return
	}
	s.updateRunning = true
	s.updateWg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.updateWg.Done()
		ticker := time.NewTicker(s.cfg.UpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopUpdate:
				return

			case <-ticker.C:
				s.publishProgressUpdate()
			}
		}
	}()
}

// publishProgressUpdate publishes a progress event while playing and detects
// the natural end of the track.
func (s *PlaybackService) publishProgressUpdate() {
	s.mu.RLock()

	if s.status != domain.StatusPlaying || s.currentHandle == domain.InvalidTrackHandle {
		s.mu.RUnlock()
		return
	}

	status, err := s.engine.Status(s.currentHandle)
	if err != nil {
		s.mu.RUnlock()
		return
	}

	position, err := s.engine.Position(s.currentHandle)
	if err != nil {
		s.mu.RUnlock()
		return
	}

	duration := s.duration
	handle := s.currentHandle
	s.mu.RUnlock()

	s.bus.Publish(domain.NewTrackProgressEvent(position, duration))

	if status == domain.StatusEnded {
		s.mu.Lock()
		s.handleTrackFinishedWithLock(handle) // releases the lock
	}
}

// handleTrackFinishedWithLock is called when a track finishes playing naturally.
// Expects write lock held on entry. ALWAYS releases lock before returning.
func (s *PlaybackService) handleTrackFinishedWithLock(handle domain.TrackHandle) {
	// A newer request replaced the source since the end was observed
	if s.currentTrack == nil || s.currentHandle != handle || s.status != domain.StatusPlaying {
		s.mu.Unlock()
		return
	}

	track := *s.currentTrack
	s.status = domain.StatusEnded

	if s.isLooping {
		if err := s.engine.Play(handle); err != nil {
			s.logger.Warn("failed to loop track", slog.Any("error", err))
			s.mu.Unlock()
			s.bus.Publish(domain.NewTrackEndedEvent(track))
			return
		}
		s.status = domain.StatusPlaying
		s.mu.Unlock()

		s.bus.Publish(domain.NewTrackEndedEvent(track))
		s.bus.Publish(domain.NewTrackStartedEvent(track))
		return
	}

	s.mu.Unlock()

	s.bus.Publish(domain.NewTrackEndedEvent(track))

	if err := s.NextTrack(); err != nil && !errors.Is(err, domain.ErrHistoryEmpty) {
		s.logger.Warn("failed to advance to next track", slog.Any("error", err))
	}
}

// Verify that PlaybackService implements the expected interface patterns
var _ interface {
	Play(domain.Track, int) error
	PlayTrack(domain.Track) error
	Pause() error
	Resume() error
	TogglePlayPause() (bool, error)
	Stop() error
	Seek(time.Duration) error
	NextTrack() error
	PreviousTrack() error
	RestoreLastTrack() (bool, error)
	SetVolume(float64) error
	SetLoop(bool)
	ToggleLoop() bool
	GetState() domain.PlaybackState
	Shutdown() error
} = (*PlaybackService)(nil)
