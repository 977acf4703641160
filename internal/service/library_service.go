// Package service provides business logic for the tunescape visual engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
	"github.com/tejashwikalptaru/tunescape/internal/visualizer"
)

// LibraryService owns the known tracks, favorites and play history.
// Every mutation is written through to the session repository; the last write wins.
// All operations are thread-safe via sync.RWMutex.
type LibraryService struct {
	// Dependencies (injected)
	logger   *slog.Logger
	repo     ports.SessionRepository
	metadata ports.MetadataReader
	bus      ports.EventBus
	now      func() time.Time

	// State
	tracks        []domain.Track
	favorites     []domain.Track
	history       []domain.PlayHistoryEntry // newest first
	supportedExts []string

	// Concurrency control
	mu sync.RWMutex
}

// NewLibraryService creates a library service and loads the persisted session.
// Unreadable session data is logged and replaced by an empty library.
func NewLibraryService(
	logger *slog.Logger,
	repo ports.SessionRepository,
	metadata ports.MetadataReader,
	bus ports.EventBus,
) *LibraryService {
	s := &LibraryService{
		logger:        logger,
		repo:          repo,
		metadata:      metadata,
		bus:           bus,
		now:           time.Now,
		supportedExts: []string{".mp3"},
	}

	var err error
	if s.tracks, err = repo.LoadTracks(); err != nil {
		logger.Warn("failed to load tracks, starting empty", slog.Any("error", err))
	}
	if s.favorites, err = repo.LoadFavorites(); err != nil {
		logger.Warn("failed to load favorites, starting empty", slog.Any("error", err))
	}
	if s.history, err = repo.LoadHistory(); err != nil {
		logger.Warn("failed to load play history, starting empty", slog.Any("error", err))
	}

	logger.Debug("library service initialized",
		slog.Int("tracks", len(s.tracks)),
		slog.Int("favorites", len(s.favorites)),
		slog.Int("history", len(s.history)))
	return s
}

// AddTracks appends the tracks that are not yet known and returns how many were added.
func (s *LibraryService) AddTracks(tracks ...domain.Track) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, t := range tracks {
		if domain.IndexOfTrack(s.tracks, t) >= 0 {
			continue
		}
		s.tracks = append(s.tracks, t)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, s.repo.SaveTracks(s.tracks)
}

// Tracks returns a copy of the library in insertion order.
func (s *LibraryService) Tracks() []domain.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tracks)
}

// AddFavorite marks a track as favorite. Adding a favorite twice is a no-op.
func (s *LibraryService) AddFavorite(track domain.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if domain.IndexOfTrack(s.favorites, track) >= 0 {
		return nil
	}
	s.favorites = append(s.favorites, track)
	return s.repo.SaveFavorites(s.favorites)
}

// RemoveFavorite unmarks a track.
func (s *LibraryService) RemoveFavorite(track domain.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := slices.DeleteFunc(slices.Clone(s.favorites), func(f domain.Track) bool {
		return domain.SameTrack(f, track)
	})
	if len(kept) == len(s.favorites) {
		return nil
	}
	s.favorites = kept
	return s.repo.SaveFavorites(s.favorites)
}

// IsFavorite reports whether track is a favorite.
func (s *LibraryService) IsFavorite(track domain.Track) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.IndexOfTrack(s.favorites, track) >= 0
}

// Favorites returns a copy of the favorites.
func (s *LibraryService) Favorites() []domain.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.favorites)
}

// RecordPlay moves track to the front of the play history and publishes
// play-history-updated.
func (s *LibraryService) RecordPlay(track domain.Track) error {
	s.mu.Lock()
	history := make([]domain.PlayHistoryEntry, 0, len(s.history)+1)
	history = append(history, domain.PlayHistoryEntry{Track: track, LastPlayed: s.now()})
	for _, e := range s.history {
		if !domain.SameTrack(e.Track, track) {
			history = append(history, e)
		}
	}
	s.history = history
	err := s.repo.SaveHistory(history)
	s.mu.Unlock()

	s.bus.Publish(domain.NewPlayHistoryUpdatedEvent(track))
	return err
}

// History returns the play history, most recent first.
func (s *LibraryService) History() []domain.PlayHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// InHistory reports whether track was ever played.
func (s *LibraryService) InHistory(track domain.Track) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inHistoryLocked(track)
}

func (s *LibraryService) inHistoryLocked(track domain.Track) bool {
	for _, e := range s.history {
		if domain.SameTrack(e.Track, track) {
			return true
		}
	}
	return false
}

// PlayContext returns the tracks eligible for next/previous navigation:
// library tracks that were played, in library order, followed by played
// tracks the library does not know, oldest first.
func (s *LibraryService) PlayContext() []domain.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Track
	for _, t := range s.tracks {
		if s.inHistoryLocked(t) {
			out = append(out, t)
		}
	}
	for i := len(s.history) - 1; i >= 0; i-- {
		t := s.history[i].Track
		if domain.IndexOfTrack(s.tracks, t) < 0 {
			out = append(out, t)
		}
	}
	return out
}

// ClearUnplayed drops cached tracks that are neither favorites, played, nor built in.
// Returns the number of tracks removed.
func (s *LibraryService) ClearUnplayed() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]domain.Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		if t.Builtin || domain.IndexOfTrack(s.favorites, t) >= 0 || s.inHistoryLocked(t) {
			kept = append(kept, t)
		}
	}

	removed := len(s.tracks) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	s.tracks = kept
	s.logger.Info("cleared unplayed tracks", slog.Int("removed", removed))
	return removed, s.repo.SaveTracks(s.tracks)
}

// IsFormatSupported checks if a file format can be imported.
func (s *LibraryService) IsFormatSupported(filePath string) bool {
	return slices.Contains(s.supportedExts, strings.ToLower(filepath.Ext(filePath)))
}

// Import reads tags from local files and adds them to the library.
// Files already in the library are skipped. The first new track is announced
// with track-uploaded so playback can start it. Per-file failures are joined
// into the returned error; the successfully imported tracks are still returned.
func (s *LibraryService) Import(ctx context.Context, paths []string) ([]domain.Track, error) {
	var (
		imported []domain.Track
		errs     []error
	)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !s.IsFormatSupported(path) {
			errs = append(errs, fmt.Errorf("%s: %w", path, domain.ErrUnsupportedFormat))
			continue
		}
		if s.knownSource(path) {
			s.logger.Debug("skipping known file", slog.String("path", path))
			continue
		}

		track, err := s.trackFromFile(path)
		if err != nil {
			s.logger.Warn("failed to import file", slog.String("path", path), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		imported = append(imported, track)
	}

	if len(imported) > 0 {
		if _, err := s.AddTracks(imported...); err != nil {
			errs = append(errs, err)
		}
		s.logger.Info("imported tracks", slog.Int("count", len(imported)))
		s.bus.Publish(domain.NewTrackUploadedEvent(imported[0]))
	}

	return imported, errors.Join(errs...)
}

func (s *LibraryService) knownSource(source string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.ContainsFunc(s.tracks, func(t domain.Track) bool { return t.Source == source })
}

func (s *LibraryService) trackFromFile(path string) (domain.Track, error) {
	md, err := s.metadata.ReadMetadata(path)
	if err != nil {
		return domain.Track{}, err
	}

	var cover string
	if len(md.Cover) > 0 {
		cover = visualizer.DataURI(md.CoverMIME, md.Cover)
	}

	return domain.NewTrack(domain.TrackInput{
		ID:       uuid.NewString(),
		Title:    md.Title,
		Artist:   md.Artist,
		Album:    md.Album,
		Cover:    cover,
		Duration: md.Duration,
		Source:   path,
	})
}

// CurrentTrack returns the last played track, or nil.
func (s *LibraryService) CurrentTrack() *domain.Track {
	track, err := s.repo.LoadCurrentTrack()
	if err != nil {
		s.logger.Warn("failed to load current track", slog.Any("error", err))
		return nil
	}
	return track
}

// SaveCurrentTrack persists the last played track.
func (s *LibraryService) SaveCurrentTrack(track *domain.Track) error {
	return s.repo.SaveCurrentTrack(track)
}

// CurrentVisualizer returns the persisted visualizer and whether one was stored.
func (s *LibraryService) CurrentVisualizer() (domain.VisualizerID, bool) {
	id, err := s.repo.LoadCurrentVisualizer()
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("failed to load current visualizer", slog.Any("error", err))
		}
		return domain.DefaultVisualizer, false
	}
	return id, true
}

// SaveCurrentVisualizer persists the active visualizer.
func (s *LibraryService) SaveCurrentVisualizer(id domain.VisualizerID) error {
	if !id.Valid() {
		return domain.ErrUnknownVisualizer
	}
	return s.repo.SaveCurrentVisualizer(id)
}
