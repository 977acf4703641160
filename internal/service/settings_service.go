package service

import (
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
)

// SettingsService reads and writes per-visualizer parameters.
// Reads always return a complete settings bag: baked defaults merged with
// whatever overrides were persisted. Writes go straight to the repository.
type SettingsService struct {
	// Dependencies (injected)
	logger     *slog.Logger
	repository ports.SettingsRepository

	// Serializes read-modify-write cycles against the repository
	mu sync.Mutex
}

// NewSettingsService creates a new settings service.
func NewSettingsService(logger *slog.Logger, repository ports.SettingsRepository) *SettingsService {
	logger.Debug("settings service initialized")
	return &SettingsService{
		logger:     logger,
		repository: repository,
	}
}

// Load returns the settings of id. Unreadable persisted data is logged and
// the defaults are returned instead.
func (s *SettingsService) Load(id domain.VisualizerID) domain.VisualizerSettings {
	defaults := domain.DefaultSettings(id)
	if !id.Valid() {
		return defaults
	}

	overrides, err := s.repository.Load(id.Key())
	if err != nil {
		s.logger.Warn("failed to load visualizer settings, using defaults",
			slog.String("visualizer", id.Key()),
			slog.Any("error", err))
		return defaults
	}
	return defaults.ApplyOverrides(overrides)
}

// Save validates and persists a single field of id's settings, leaving the
// other fields untouched.
func (s *SettingsService) Save(id domain.VisualizerID, group, key string, value float64) error {
	if err := domain.ValidateParam(id, group, key, value); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.repository.SaveField(id.Key(), group, key, value)
	if err == nil {
		return nil
	}

	// The stored bag could not be read back; start over from the defaults.
	s.logger.Warn("failed to save visualizer setting, rewriting from defaults",
		slog.String("visualizer", id.Key()),
		slog.String("field", group+"."+key),
		slog.Any("error", err))

	overrides := domain.DefaultSettings(id).Overrides()
	overrides.Set(group, key, value)
	return s.repository.Replace(id.Key(), overrides)
}

// Reset overwrites the persisted settings of id with the defaults and returns them.
func (s *SettingsService) Reset(id domain.VisualizerID) (domain.VisualizerSettings, error) {
	if !id.Valid() {
		return domain.VisualizerSettings{}, domain.ErrUnknownVisualizer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	defaults := domain.DefaultSettings(id)
	if err := s.repository.Replace(id.Key(), defaults.Overrides()); err != nil {
		return defaults, err
	}
	s.logger.Info("visualizer settings reset", slog.String("visualizer", id.Key()))
	return defaults, nil
}

// ResetAll drops every persisted override.
func (s *SettingsService) ResetAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repository.Clear(); err != nil {
		return err
	}
	s.logger.Info("all visualizer settings reset")
	return nil
}
