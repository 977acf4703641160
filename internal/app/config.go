package app

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"github.com/joho/godotenv"

	"github.com/tejashwikalptaru/tunescape/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunescape/internal/logger"
	"github.com/tejashwikalptaru/tunescape/internal/service"
)

// Settings backends.
const (
	SettingsBackendPreferences = "preferences"
	SettingsBackendSQLite      = "sqlite"
)

// Event bus kinds.
const (
	EventBusSync   = "sync"
	EventBusQueued = "queued"
)

// Config holds application configuration.
type Config struct {
	// AppID is the unique application identifier
	AppID string

	// AppName is the display name
	AppName string

	// SampleRate is the audio output sample rate
	SampleRate int

	// UseMockAudio determines whether to use a mock audio engine (for testing)
	UseMockAudio bool

	// SettingsBackend selects where visualizer settings live: "preferences" or "sqlite"
	SettingsBackend string
	// SettingsDB is the sqlite database path
	SettingsDB string

	// EventBus selects delivery: "sync" runs handlers on the publisher,
	// "queued" on one dispatcher goroutine
	EventBus string
	// EventQueueSize is the initial queue capacity of the queued bus
	EventQueueSize int

	// FrameRate is the render rate in frames per second
	FrameRate int
	// AnalysisRate is the spectrum analysis rate in Hz
	AnalysisRate int

	// LoadingMinimum is how long the loading overlay stays up at least
	LoadingMinimum time.Duration

	// Width and Height are the initial window size
	Width  int
	Height int

	// LogLevel controls logging verbosity
	LogLevel slog.Level
	// LogFormat is "text" or "json"
	LogFormat string

	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	loggerCfg := logger.DefaultConfig()
	return Config{
		AppID:           "com.tunescape.app",
		AppName:         "tunescape",
		SampleRate:      44100,
		UseMockAudio:    false,
		SettingsBackend: SettingsBackendPreferences,
		SettingsDB:      "tunescape.db",
		EventBus:        EventBusSync,
		EventQueueSize:  eventbus.DefaultQueueSize,
		FrameRate:       service.DefaultFrameRate,
		AnalysisRate:    60,
		LoadingMinimum:  2 * time.Second,
		Width:           1024,
		Height:          720,
		LogLevel:        loggerCfg.Level,
		LogFormat:       loggerCfg.Format,
	}
}

// LoadConfig loads an optional .env file and overrides the defaults with
// TUNESCAPE_* environment variables.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	cfg.LogLevel = logger.ParseLevel(os.Getenv("TUNESCAPE_LOG_LEVEL"), cfg.LogLevel)
	cfg.LogFormat = getEnvWithDefault("TUNESCAPE_LOG_FORMAT", cfg.LogFormat)
	cfg.UseMockAudio = getEnvAsBool("TUNESCAPE_USE_MOCK_AUDIO")
	cfg.SettingsBackend = getEnvWithDefault("TUNESCAPE_SETTINGS_BACKEND", cfg.SettingsBackend)
	cfg.SettingsDB = getEnvWithDefault("TUNESCAPE_SETTINGS_DB", cfg.SettingsDB)
	cfg.EventBus = getEnvWithDefault("TUNESCAPE_EVENT_BUS", cfg.EventBus)
	cfg.EventQueueSize = getEnvAsIntWithDefault("TUNESCAPE_EVENT_QUEUE_SIZE", cfg.EventQueueSize)
	cfg.FrameRate = getEnvAsIntWithDefault("TUNESCAPE_FRAME_RATE", cfg.FrameRate)
	cfg.AnalysisRate = getEnvAsIntWithDefault("TUNESCAPE_ANALYSIS_RATE", cfg.AnalysisRate)
	cfg.SampleRate = getEnvAsIntWithDefault("TUNESCAPE_SAMPLE_RATE", cfg.SampleRate)
	cfg.Width = getEnvAsIntWithDefault("TUNESCAPE_WIDTH", cfg.Width)
	cfg.Height = getEnvAsIntWithDefault("TUNESCAPE_HEIGHT", cfg.Height)

	if value, ok := os.LookupEnv("TUNESCAPE_LOADING_MIN"); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			return cfg, fmt.Errorf("TUNESCAPE_LOADING_MIN: %w", err)
		}
		cfg.LoadingMinimum = d
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SettingsBackend != SettingsBackendPreferences && c.SettingsBackend != SettingsBackendSQLite {
		return fmt.Errorf("unknown settings backend %q", c.SettingsBackend)
	}
	if c.SettingsBackend == SettingsBackendSQLite && c.SettingsDB == "" {
		return fmt.Errorf("TUNESCAPE_SETTINGS_DB is required for the sqlite backend")
	}
	if c.EventBus != EventBusSync && c.EventBus != EventBusQueued {
		return fmt.Errorf("unknown event bus %q", c.EventBus)
	}
	if c.FrameRate < 1 {
		return fmt.Errorf("frame rate must be at least 1, got %d", c.FrameRate)
	}
	if c.AnalysisRate < 1 {
		return fmt.Errorf("analysis rate must be at least 1, got %d", c.AnalysisRate)
	}
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate must be at least 8000, got %d", c.SampleRate)
	}
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("invalid window size %dx%d", c.Width, c.Height)
	}
	if c.LoadingMinimum < 0 {
		return fmt.Errorf("loading minimum must not be negative")
	}
	return nil
}

func getEnvAsIntWithDefault(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvWithDefault(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return false
}
