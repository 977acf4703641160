// Package memory provides repository implementations backed by Fyne preferences.
package memory

import (
	"encoding/json"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
)

// SessionNamespace prefixes every session key.
const SessionNamespace = "iut-visualizer-storage"

// sessionVersion is written alongside the data so a future layout can migrate it.
const sessionVersion = 1

const (
	keyVersion    = SessionNamespace + ".version"
	keyTracks     = SessionNamespace + ".tracks"
	keyFavorites  = SessionNamespace + ".favorites"
	keyHistory    = SessionNamespace + ".history"
	keyCurrent    = SessionNamespace + ".currentTrack"
	keyVisualizer = SessionNamespace + ".currentVisualizer"
)

// SessionRepository implements ports.SessionRepository using Fyne preferences.
//
// Fyne preferences automatically use OS-specific app data directories:
// - macOS: ~/Library/Preferences/<app id>.plist
// - Linux: ~/.config/fyne/<app id>/
// - Windows: %APPDATA%\fyne\<app id>\
//
// Thread-safe: All operations protected by sync.RWMutex.
type SessionRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewSessionRepository creates a new session repository.
// The preferences parameter should be obtained from fyne.CurrentApp().Preferences().
func NewSessionRepository(prefs fyne.Preferences) *SessionRepository {
	return &SessionRepository{prefs: prefs}
}

func (r *SessionRepository) save(op, key string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return domain.NewRepositoryError(op, "session", "failed to marshal", err)
	}

	r.prefs.SetInt(keyVersion, sessionVersion)
	r.prefs.SetString(key, string(data))
	return nil
}

// load decodes key into v. Returns false when nothing was stored.
func (r *SessionRepository) load(op, key string, v any) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data := r.prefs.String(key)
	if data == "" {
		return false, nil
	}

	if err := json.Unmarshal([]byte(data), v); err != nil {
		return false, domain.NewRepositoryError(op, "session", "failed to unmarshal", err)
	}
	return true, nil
}

// SaveTracks persists the library.
func (r *SessionRepository) SaveTracks(tracks []domain.Track) error {
	return r.save("SaveTracks", keyTracks, tracks)
}

// LoadTracks retrieves the library.
func (r *SessionRepository) LoadTracks() ([]domain.Track, error) {
	tracks := []domain.Track{}
	if _, err := r.load("LoadTracks", keyTracks, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// SaveFavorites persists the favorite list.
func (r *SessionRepository) SaveFavorites(tracks []domain.Track) error {
	return r.save("SaveFavorites", keyFavorites, tracks)
}

// LoadFavorites retrieves the favorite list.
func (r *SessionRepository) LoadFavorites() ([]domain.Track, error) {
	tracks := []domain.Track{}
	if _, err := r.load("LoadFavorites", keyFavorites, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// SaveHistory persists the play history.
func (r *SessionRepository) SaveHistory(entries []domain.PlayHistoryEntry) error {
	return r.save("SaveHistory", keyHistory, entries)
}

// LoadHistory retrieves the play history.
func (r *SessionRepository) LoadHistory() ([]domain.PlayHistoryEntry, error) {
	entries := []domain.PlayHistoryEntry{}
	if _, err := r.load("LoadHistory", keyHistory, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveCurrentTrack persists the last played track. A nil track clears it.
func (r *SessionRepository) SaveCurrentTrack(track *domain.Track) error {
	if track == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.prefs.RemoveValue(keyCurrent)
		return nil
	}
	return r.save("SaveCurrentTrack", keyCurrent, track)
}

// LoadCurrentTrack retrieves the last played track, or nil.
func (r *SessionRepository) LoadCurrentTrack() (*domain.Track, error) {
	var track domain.Track
	found, err := r.load("LoadCurrentTrack", keyCurrent, &track)
	if err != nil || !found {
		return nil, err
	}
	return &track, nil
}

// SaveCurrentVisualizer persists the selected visualizer.
func (r *SessionRepository) SaveCurrentVisualizer(id domain.VisualizerID) error {
	if !id.Valid() {
		return domain.ErrUnknownVisualizer
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// stored shifted by one so the zero value means "never saved"
	r.prefs.SetInt(keyVisualizer, int(id)+1)
	return nil
}

// LoadCurrentVisualizer retrieves the selected visualizer.
// Returns domain.ErrNotFound when nothing valid was saved.
func (r *SessionRepository) LoadCurrentVisualizer() (domain.VisualizerID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.prefs.IntWithFallback(keyVisualizer, 0)
	id := domain.VisualizerID(stored - 1)
	if stored == 0 || !id.Valid() {
		return domain.DefaultVisualizer, domain.ErrNotFound
	}
	return id, nil
}

// Clear removes all session data.
func (r *SessionRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range []string{keyVersion, keyTracks, keyFavorites, keyHistory, keyCurrent, keyVisualizer} {
		r.prefs.RemoveValue(key)
	}
	return nil
}

// Verify interface implementation
var _ ports.SessionRepository = (*SessionRepository)(nil)
