package memory

import (
	"encoding/json"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
)

// SettingsKey is the single preference entry holding every visualizer's overrides.
const SettingsKey = "iut-visualizer-settings"

// settingsVersion tags the document layout, as sessionVersion does for the session.
const settingsVersion = 1

const keySettingsVersion = SettingsKey + ".version"

// SettingsRepository implements ports.SettingsRepository using Fyne preferences.
// All bags live in one JSON document: visualizer key -> group -> field -> value.
//
// Thread-safe: All operations protected by sync.RWMutex.
type SettingsRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(prefs fyne.Preferences) *SettingsRepository {
	return &SettingsRepository{prefs: prefs}
}

func (r *SettingsRepository) readAll(op string) (map[string]domain.SettingsOverrides, error) {
	all := make(map[string]domain.SettingsOverrides)

	data := r.prefs.String(SettingsKey)
	if data == "" {
		return all, nil
	}
	if err := json.Unmarshal([]byte(data), &all); err != nil {
		return nil, domain.NewRepositoryError(op, "settings", "failed to unmarshal", err)
	}
	return all, nil
}

func (r *SettingsRepository) writeAll(op string, all map[string]domain.SettingsOverrides) error {
	data, err := json.Marshal(all)
	if err != nil {
		return domain.NewRepositoryError(op, "settings", "failed to marshal", err)
	}
	r.prefs.SetInt(keySettingsVersion, settingsVersion)
	r.prefs.SetString(SettingsKey, string(data))
	return nil
}

// Load returns the stored overrides for key.
func (r *SettingsRepository) Load(key string) (domain.SettingsOverrides, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all, err := r.readAll("Load")
	if err != nil {
		return nil, err
	}
	if o, ok := all[key]; ok && o != nil {
		return o, nil
	}
	return domain.SettingsOverrides{}, nil
}

// SaveField writes one field of key's bag.
func (r *SettingsRepository) SaveField(key, group, name string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll("SaveField")
	if err != nil {
		return err
	}
	if all[key] == nil {
		all[key] = domain.SettingsOverrides{}
	}
	all[key].Set(group, name, value)
	return r.writeAll("SaveField", all)
}

// Replace overwrites key's bag. An unreadable document is discarded.
func (r *SettingsRepository) Replace(key string, overrides domain.SettingsOverrides) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll("Replace")
	if err != nil {
		all = make(map[string]domain.SettingsOverrides)
	}
	all[key] = overrides
	return r.writeAll("Replace", all)
}

// Clear removes all saved settings.
func (r *SettingsRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(SettingsKey)
	r.prefs.RemoveValue(keySettingsVersion)
	return nil
}

// Verify interface implementation
var _ ports.SettingsRepository = (*SettingsRepository)(nil)
