package ports

import (
	"github.com/tejashwikalptaru/tunescape/internal/domain"
)

// SessionRepository persists the library and session state: known tracks,
// favorites, play history, the last played track and the last visualizer.
// Writes are not transactional; the last write wins.
type SessionRepository interface {
	SaveTracks(tracks []domain.Track) error
	LoadTracks() ([]domain.Track, error)

	SaveFavorites(tracks []domain.Track) error
	LoadFavorites() ([]domain.Track, error)

	SaveHistory(entries []domain.PlayHistoryEntry) error
	LoadHistory() ([]domain.PlayHistoryEntry, error)

	// SaveCurrentTrack stores the last played track; nil clears it.
	SaveCurrentTrack(track *domain.Track) error
	// LoadCurrentTrack returns nil when nothing was stored.
	LoadCurrentTrack() (*domain.Track, error)

	SaveCurrentVisualizer(id domain.VisualizerID) error
	// LoadCurrentVisualizer returns domain.ErrNotFound when nothing was stored.
	LoadCurrentVisualizer() (domain.VisualizerID, error)

	Clear() error
}

// SettingsRepository persists per-visualizer overrides keyed by the
// visualizer's settings-store key.
type SettingsRepository interface {
	// Load returns the stored overrides for key; an empty bag when nothing is stored.
	Load(key string) (domain.SettingsOverrides, error)

	// SaveField writes a single field, leaving the rest of the bag untouched.
	SaveField(key, group, name string, value float64) error

	// Replace overwrites the whole bag for key.
	Replace(key string, overrides domain.SettingsOverrides) error

	// Clear removes every stored bag.
	Clear() error
}
