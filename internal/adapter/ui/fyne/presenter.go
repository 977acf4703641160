// Package fyne provides the Fyne desktop window for tunescape.
// The window is a dumb view; the Presenter maps bus events onto it and
// turns user input into service calls.
package fyne

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunescape/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
	"github.com/tejashwikalptaru/tunescape/internal/service"
)

// UIView defines the interface for UI updates.
// Implementations must be safe to call from any goroutine.
type UIView interface {
	// Playback state updates
	SetPlayState(playing bool)
	SetLoopState(enabled bool)
	SetVolume(volume float64)
	SetTempo(bpm float64)

	// Track information updates
	SetTrackInfo(title, artist string)
	SetCurrentTime(seconds float64)
	SetTotalTime(seconds float64)
	SetProgress(position, duration float64)

	// Scene updates
	SetVisualizer(id domain.VisualizerID, settings domain.VisualizerSettings)
	HideLoading()

	// Library updates
	RefreshLibrary()

	// Notifications
	ShowNotification(title, message string)
}

// Orbit and zoom sensitivity for pointer gestures.
const (
	orbitPerPixel = 0.01
	zoomPerStep   = 0.1
)

// Presenter coordinates the services and the window (MVP).
//
// Thread-safety: event handlers run on the publishing goroutine and only
// forward to the view, which marshals onto the UI thread.
type Presenter struct {
	// Dependencies
	logger *slog.Logger

	// Services (injected)
	playback *service.PlaybackService
	library  *service.LibraryService
	scene    *service.SceneService

	// EventBus is exported for the library window.
	EventBus ports.EventBus

	// UI view
	view UIView

	subscriptions []domain.SubscriptionID

	// Startup
	loadCancel context.CancelFunc
	loadWg     sync.WaitGroup
	loaded     bool

	// Concurrency control
	mu           sync.Mutex
	shutdownOnce sync.Once
}

// NewPresenter creates a presenter and syncs the view with the current state.
func NewPresenter(
	logger *slog.Logger,
	playback *service.PlaybackService,
	library *service.LibraryService,
	scene *service.SceneService,
	eventBus ports.EventBus,
	view UIView,
) *Presenter {
	p := &Presenter{
		logger:   logger,
		playback: playback,
		library:  library,
		scene:    scene,
		EventBus: eventBus,
		view:     view,
	}

	p.subscribeToEvents()
	p.syncInitialState()

	return p
}

// subscribeToEvents subscribes to all relevant events from the event bus.
func (p *Presenter) subscribeToEvents() {
	bus := p.EventBus
	p.subscriptions = []domain.SubscriptionID{
		// Playback events
		eventbus.On(bus, domain.EventTrackChanged, p.onTrackChanged),
		eventbus.On(bus, domain.EventTrackLoaded, p.onTrackLoaded),
		eventbus.On(bus, domain.EventTrackStarted, func(domain.TrackStartedEvent) { p.view.SetPlayState(true) }),
		eventbus.On(bus, domain.EventTrackPaused, func(domain.TrackPausedEvent) { p.view.SetPlayState(false) }),
		eventbus.On(bus, domain.EventTrackEnded, func(domain.TrackEndedEvent) { p.view.SetPlayState(false) }),
		eventbus.On(bus, domain.EventTrackProgress, p.onTrackProgress),
		eventbus.On(bus, domain.EventPlaybackFail, p.onPlaybackFailed),
		eventbus.On(bus, domain.EventTempoEstimate, func(e domain.TempoEstimatedEvent) { p.view.SetTempo(e.BPM) }),

		// Transport settings
		eventbus.On(bus, domain.EventVolumeChanged, func(e domain.VolumeChangedEvent) { p.view.SetVolume(e.Volume) }),
		eventbus.On(bus, domain.EventLoopToggled, func(e domain.LoopToggledEvent) { p.view.SetLoopState(e.Enabled) }),

		// Scene
		eventbus.On(bus, domain.EventVisualizerChanged, func(e domain.VisualizerChangedEvent) {
			p.view.SetVisualizer(e.Visualizer, e.Settings)
		}),

		// Library
		eventbus.On(bus, domain.EventPlayHistoryUpdated, func(domain.PlayHistoryUpdatedEvent) { p.view.RefreshLibrary() }),
		eventbus.On(bus, domain.EventTrackUploaded, func(domain.TrackUploadedEvent) { p.view.RefreshLibrary() }),
	}
}

// syncInitialState pushes the current service state into the view.
func (p *Presenter) syncInitialState() {
	state := p.playback.GetState()

	p.view.SetVolume(state.Volume)
	p.view.SetLoopState(state.IsLooping)
	p.view.SetPlayState(state.Status == domain.StatusPlaying)

	if state.CurrentTrack != nil {
		p.view.SetTrackInfo(state.CurrentTrack.Title, strings.Join(state.CurrentTrack.Artists, ", "))
	}
	if state.Duration > 0 {
		p.view.SetTotalTime(state.Duration.Seconds())
		p.view.SetProgress(state.Position.Seconds(), state.Duration.Seconds())
		p.view.SetCurrentTime(state.Position.Seconds())
	}
}

// Event handlers

func (p *Presenter) onTrackChanged(e domain.TrackChangedEvent) {
	p.view.SetTrackInfo(e.Track.Title, strings.Join(e.Track.Artists, ", "))
	p.view.SetTempo(0)
	p.view.SetCurrentTime(0)
	if e.Track.Duration > 0 {
		p.view.SetTotalTime(e.Track.Duration.Seconds())
	}
	p.view.RefreshLibrary()
}

func (p *Presenter) onTrackLoaded(e domain.TrackLoadedEvent) {
	if e.Duration > 0 {
		p.view.SetTotalTime(e.Duration.Seconds())
	}
}

func (p *Presenter) onTrackProgress(e domain.TrackProgressEvent) {
	if e.Duration <= 0 {
		return
	}
	p.view.SetCurrentTime(e.Position.Seconds())
	p.view.SetProgress(e.Position.Seconds(), e.Duration.Seconds())
}

func (p *Presenter) onPlaybackFailed(e domain.PlaybackFailedEvent) {
	p.view.SetPlayState(false)
	p.view.ShowNotification("Playback Error", fmt.Sprintf("Could not play %s", e.Track.Title))
}

// Startup

// StartLoading runs setup in the background while the loading overlay is
// shown, then signals readiness once setup finished and at least minimum
// has passed since the call.
func (p *Presenter) StartLoading(minimum time.Duration, setup func() error) {
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	p.loadCancel = cancel
	p.mu.Unlock()

	start := time.Now()
	p.loadWg.Add(1)
	go func() {
		defer p.loadWg.Done()

		if err := setup(); err != nil {
			p.logger.Error("scene setup failed", slog.Any("error", err))
			p.view.ShowNotification("Startup Error", err.Error())
			return
		}

		timer := time.NewTimer(minimum - time.Since(start))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		p.LoadingComplete()
	}()
}

// LoadingComplete is the ready signal: it reveals the restored visualizer,
// restores the last track without playing it and hides the overlay.
// Only the first call has an effect.
func (p *Presenter) LoadingComplete() {
	p.mu.Lock()
	if p.loaded {
		p.mu.Unlock()
		return
	}
	p.loaded = true
	p.mu.Unlock()

	if err := p.scene.CompleteSetup(); err != nil {
		p.logger.Error("failed to complete scene setup", slog.Any("error", err))
	}

	if _, err := p.playback.RestoreLastTrack(); err != nil {
		p.logger.Warn("failed to restore last track", slog.Any("error", err))
	}

	p.view.HideLoading()
}

// UI Command handlers (called by UI)

// OnPlayClicked toggles between playing and paused.
func (p *Presenter) OnPlayClicked() {
	if _, err := p.playback.TogglePlayPause(); err != nil {
		if errors.Is(err, domain.ErrNoTrackLoaded) {
			p.view.ShowNotification("Nothing to play", "Open a file to start")
			return
		}
		p.logger.Error("play/pause failed", slog.Any("error", err))
		p.view.ShowNotification("Playback Error", fmt.Sprintf("Failed to start playback: %v", err))
	}
}

// OnStopClicked handles the stop button click.
func (p *Presenter) OnStopClicked() {
	if err := p.playback.Stop(); err != nil {
		p.logger.Error("stop failed", slog.Any("error", err))
		return
	}
	p.view.SetPlayState(false)
	p.view.SetCurrentTime(0)
	p.view.SetProgress(0, 1)
}

// OnNextClicked plays the next track of the history.
func (p *Presenter) OnNextClicked() {
	p.step(p.playback.NextTrack)
}

// OnPreviousClicked plays the previous track of the history.
func (p *Presenter) OnPreviousClicked() {
	p.step(p.playback.PreviousTrack)
}

func (p *Presenter) step(fn func() error) {
	err := fn()
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrHistoryEmpty):
		p.view.ShowNotification("History is empty", "Play a track first")
	default:
		p.logger.Error("track change failed", slog.Any("error", err))
		p.view.ShowNotification("Playback Error", err.Error())
	}
}

// OnVolumeChanged handles volume slider changes (0 to 100).
func (p *Presenter) OnVolumeChanged(volume float64) {
	if err := p.playback.SetVolume(volume / 100.0); err != nil {
		p.logger.Error("volume change failed", slog.Any("error", err))
	}
}

// OnLoopClicked flips loop mode.
func (p *Presenter) OnLoopClicked() {
	p.playback.ToggleLoop()
}

// OnSeekRequested handles seek requests from the progress slider.
func (p *Presenter) OnSeekRequested(seconds float64) {
	position := time.Duration(seconds * float64(time.Second))
	if err := p.playback.Seek(position); err != nil && !errors.Is(err, domain.ErrNoTrackLoaded) {
		p.logger.Error("seek failed", slog.Any("error", err))
	}
}

// OnFilesOpened imports files into the library. The first new track starts
// playing through track-uploaded.
func (p *Presenter) OnFilesOpened(paths ...string) {
	imported, err := p.library.Import(context.Background(), paths)
	if err != nil {
		p.logger.Warn("import finished with errors", slog.Any("error", err))
		p.view.ShowNotification("Import", importMessage(len(imported), err))
		return
	}
	if len(imported) == 0 {
		p.view.ShowNotification("Import", "Already in the library")
	}
}

// OnFolderOpened imports every supported file directly inside folder.
func (p *Presenter) OnFolderOpened(folder string) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		p.view.ShowNotification("Import", fmt.Sprintf("Failed to read folder: %v", err))
		return
	}

	var paths []string
	for _, entry := range entries {
		path := filepath.Join(folder, entry.Name())
		if !entry.IsDir() && p.library.IsFormatSupported(path) {
			paths = append(paths, path)
		}
	}
	if len(paths) == 0 {
		p.view.ShowNotification("Import", "No supported files found")
		return
	}
	p.OnFilesOpened(paths...)
}

func importMessage(imported int, err error) string {
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return fmt.Sprintf("Imported %d, some files are not supported", imported)
	case errors.Is(err, domain.ErrFileNotFound):
		return fmt.Sprintf("Imported %d, some files were not found", imported)
	default:
		return fmt.Sprintf("Imported %d: %v", imported, err)
	}
}

// OnLibraryTrackSelected plays a library track.
func (p *Presenter) OnLibraryTrackSelected(track domain.Track) {
	p.EventBus.Publish(domain.NewTrackSelectedEvent(track))
}

// OnFavoriteToggled flips the favorite flag of track.
func (p *Presenter) OnFavoriteToggled(track domain.Track) {
	var err error
	if p.library.IsFavorite(track) {
		err = p.library.RemoveFavorite(track)
	} else {
		err = p.library.AddFavorite(track)
	}
	if err != nil {
		p.logger.Warn("failed to update favorites", slog.Any("error", err))
	}
	p.view.RefreshLibrary()
}

// OnClearUnplayed drops library tracks that were never played.
func (p *Presenter) OnClearUnplayed() {
	removed, err := p.library.ClearUnplayed()
	if err != nil {
		p.logger.Warn("failed to clear library", slog.Any("error", err))
		return
	}
	p.view.ShowNotification("Library", fmt.Sprintf("Removed %d unplayed tracks", removed))
	p.view.RefreshLibrary()
}

// Library returns the library tracks with favorites flagged and the current
// track marked.
func (p *Presenter) Library() (tracks []domain.Track, favorite []bool, current int) {
	tracks = p.library.Tracks()
	favorite = make([]bool, len(tracks))
	current = -1

	var playing *domain.Track
	if state := p.playback.GetState(); state.CurrentTrack != nil {
		playing = state.CurrentTrack
	}
	for i, track := range tracks {
		favorite[i] = p.library.IsFavorite(track)
		if playing != nil && domain.SameTrack(*playing, track) {
			current = i
		}
	}
	return tracks, favorite, current
}

// Scene commands

// OnVisualizerSelected switches the visualizer.
func (p *Presenter) OnVisualizerSelected(id domain.VisualizerID) {
	if err := p.scene.SwitchVisualizer(id); err != nil {
		p.logger.Warn("visualizer switch failed", slog.String("visualizer", id.String()), slog.Any("error", err))
	}
}

// OnBloomChanged sets one bloom parameter of the active visualizer.
func (p *Presenter) OnBloomChanged(key string, value float64) {
	if err := p.scene.SetBloomParam(key, value); err != nil {
		p.logger.Warn("bloom change rejected", slog.String("key", key), slog.Any("error", err))
	}
}

// OnPointSizeChanged sets the Cover variant's point size.
func (p *Presenter) OnPointSizeChanged(size float64) {
	if err := p.scene.SetCoverPointSize(size); err != nil {
		p.logger.Warn("point size rejected", slog.Any("error", err))
	}
}

// OnResetSettings restores the active visualizer's defaults.
func (p *Presenter) OnResetSettings() {
	if _, err := p.scene.ResetSettings(); err != nil {
		p.logger.Warn("reset failed", slog.Any("error", err))
	}
}

// OnDrag orbits the camera.
func (p *Presenter) OnDrag(dx, dy float32) {
	p.scene.Orbit(float64(dx)*orbitPerPixel, float64(dy)*orbitPerPixel)
}

// OnScroll zooms the camera; scrolling up moves closer.
func (p *Presenter) OnScroll(dy float32) {
	switch {
	case dy > 0:
		p.scene.Zoom(1 - zoomPerStep)
	case dy < 0:
		p.scene.Zoom(1 + zoomPerStep)
	}
}

// OnResize adapts the render size to the view.
func (p *Presenter) OnResize(width, height int) {
	p.scene.Resize(width, height)
}

// Shutdown cleans up resources.
// It's safe to call multiple times (idempotent).
func (p *Presenter) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		if p.loadCancel != nil {
			p.loadCancel()
		}
		p.mu.Unlock()
		p.loadWg.Wait()

		for _, id := range p.subscriptions {
			p.EventBus.Unsubscribe(id)
		}
	})
}
