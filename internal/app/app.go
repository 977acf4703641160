// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	"github.com/tejashwikalptaru/tunescape/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/tunescape/internal/adapter/audio/mp3"
	"github.com/tejashwikalptaru/tunescape/internal/adapter/audio/oto"
	"github.com/tejashwikalptaru/tunescape/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunescape/internal/adapter/metadata"
	"github.com/tejashwikalptaru/tunescape/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/tunescape/internal/adapter/repository/sqlite"
	fyneui "github.com/tejashwikalptaru/tunescape/internal/adapter/ui/fyne"
	"github.com/tejashwikalptaru/tunescape/internal/analysis"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/logger"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
	"github.com/tejashwikalptaru/tunescape/internal/service"
	"github.com/tejashwikalptaru/tunescape/internal/visualizer"
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for main.go
type Application struct {
	config Config

	// Core dependencies
	logger  *slog.Logger
	fyneApp fyne.App
	client  *http.Client

	// Infrastructure
	eventBus    bus
	audioEngine ports.AudioEngine
	decoder     ports.TrackDecoder
	analyzer    *analysis.Analyzer

	// Repositories
	sessionRepo  ports.SessionRepository
	settingsRepo ports.SettingsRepository
	settingsDB   *sqlite.SettingsRepository

	// Services
	libraryService  *service.LibraryService
	playbackService *service.PlaybackService
	settingsService *service.SettingsService
	sceneService    *service.SceneService
	tempoService    *service.TempoService
	renderLoop      *service.RenderLoop

	// UI
	presenter  *fyneui.Presenter
	mainWindow *fyneui.MainWindow

	// Background loops
	cancel    context.CancelFunc
	loops     sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	closeOnce sync.Once
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(config Config) (*Application, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &Application{
		config: config,
		client: &http.Client{Timeout: 15 * time.Second},
	}

	// Step 1: Create Fyne application
	if config.TestFyneApp != nil {
		app.fyneApp = config.TestFyneApp
	} else {
		app.fyneApp = fyneapp.NewWithID(config.AppID)
	}

	// Step 1.5: Create logger
	app.logger = logger.NewLogger(logger.Config{
		Level:  config.LogLevel,
		Format: config.LogFormat,
	})
	app.logger.Info("initializing application",
		slog.String("app_id", config.AppID),
		slog.String("version", GetVersionInfo().FullString()))

	// Step 2: Create an event bus
	app.eventBus = newEventBus(config)
	app.eventBus.SetLogger(app.logger.With(
		slog.String("component", "eventbus"),
		slog.String("kind", config.EventBus)))

	// Step 3: Create an audio engine and decoder
	mp3Decoder := mp3.NewDecoder(app.logger.With(slog.String("component", "decoder")), app.client)
	if config.UseMockAudio {
		engine := mock.NewEngine()
		engine.SetLogger(app.logger.With(slog.String("engine", "mock")))
		app.audioEngine = engine
		app.decoder = mock.NewDecoder()
	} else {
		app.audioEngine = oto.NewEngine(app.logger.With(slog.String("engine", "oto")), app.client)
		app.decoder = mp3Decoder
	}
	if err := app.audioEngine.Initialize(config.SampleRate); err != nil {
		return nil, fmt.Errorf("failed to initialize audio engine: %w", err)
	}

	analyzerCfg := analysis.DefaultConfig()
	analyzerCfg.Interval = time.Second / time.Duration(config.AnalysisRate)
	analyzer, err := analysis.NewAnalyzer(app.logger.With(slog.String("component", "analyzer")), analyzerCfg)
	if err != nil {
		app.shutdownEngine()
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}
	analyzer.Attach(app.audioEngine)
	app.analyzer = analyzer

	// Step 4: Create repositories
	prefs := app.fyneApp.Preferences()
	app.sessionRepo = memory.NewSessionRepository(prefs)
	switch config.SettingsBackend {
	case SettingsBackendSQLite:
		repo, err := sqlite.NewSettingsRepository(config.SettingsDB)
		if err != nil {
			app.shutdownEngine()
			return nil, fmt.Errorf("failed to open settings database: %w", err)
		}
		if v, err := repo.Version(); err == nil {
			app.logger.Debug("settings database opened",
				slog.String("path", config.SettingsDB),
				slog.Int("settings_version", v))
		}
		app.settingsDB = repo
		app.settingsRepo = repo
	default:
		app.settingsRepo = memory.NewSettingsRepository(prefs)
	}

	// Step 5: Create services (with dependency injection)
	reader := metadata.NewReader(app.logger.With(slog.String("component", "metadata")), mp3Decoder)

	app.libraryService = service.NewLibraryService(
		app.logger.With(slog.String("service", "library")),
		app.sessionRepo,
		reader,
		app.eventBus,
	)

	app.playbackService = service.NewPlaybackService(
		app.logger.With(slog.String("service", "playback")),
		app.audioEngine,
		app.libraryService,
		app.eventBus,
		service.DefaultPlaybackConfig(),
	)

	app.tempoService = service.NewTempoService(
		app.logger.With(slog.String("service", "tempo")),
		app.decoder,
		app.eventBus,
	)

	app.settingsService = service.NewSettingsService(
		app.logger.With(slog.String("service", "settings")),
		app.settingsRepo,
	)

	app.sceneService = service.NewSceneService(
		app.logger.With(slog.String("service", "scene")),
		visualizer.NewRegistry(app.logger.With(slog.String("component", "visualizer"))),
		app.settingsService,
		app.libraryService,
		app.eventBus,
		app.client,
	)

	// Step 6: Create UI
	app.mainWindow = fyneui.NewMainWindow(app.fyneApp, app.logger.With(slog.String("component", "window")), config.Width, config.Height)
	app.mainWindow.SetVersion(GetVersionInfo().FullString())

	// Step 7: Create Presenter and wire with UI
	app.presenter = fyneui.NewPresenter(
		app.logger.With(slog.String("component", "presenter")),
		app.playbackService,
		app.libraryService,
		app.sceneService,
		app.eventBus,
		app.mainWindow,
	)
	app.mainWindow.SetPresenter(app.presenter)

	app.renderLoop = service.NewRenderLoop(
		app.logger.With(slog.String("component", "render")),
		app.sceneService,
		app.analyzer,
		app.mainWindow.FrameView(),
		config.FrameRate,
	)

	// Stop drawing before the window goes away
	app.mainWindow.SetOnBeforeClose(app.stopLoops)

	return app, nil
}

// Start begins spectrum analysis, rendering and scene setup behind the
// loading overlay. It is called by Run and is safe to call more than once.
func (a *Application) Start() {
	a.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		a.cancel = cancel

		a.runLoop(ctx, "analyzer", a.analyzer.Run)
		a.runLoop(ctx, "render", a.renderLoop.Run)

		a.presenter.StartLoading(a.config.LoadingMinimum, func() error {
			return a.sceneService.SetupInitial(a.config.Width, a.config.Height)
		})
	})
}

func (a *Application) runLoop(ctx context.Context, name string, run func(context.Context) error) {
	a.loops.Add(1)
	go func() {
		defer a.loops.Done()
		if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("loop stopped", slog.String("loop", name), slog.Any("error", err))
		}
	}()
}

// stopLoops cancels the analyzer and render loops and waits for them.
func (a *Application) stopLoops() {
	a.stopOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		a.loops.Wait()
	})
}

// Run starts the application.
// This is called from main.go after the application is created.
func (a *Application) Run() {
	a.logger.Info("tunescape started")
	a.Start()

	// Show and run UI (blocks until the window is closed)
	a.mainWindow.ShowAndRun()
}

// Shutdown gracefully shuts down the application.
// This should be called via deferring in main.go. It is idempotent.
func (a *Application) Shutdown() error {
	var errs []error
	a.closeOnce.Do(func() {
		a.logger.Info("shutting down application")

		a.stopLoops()

		// Shutdown UI and presenter
		if a.presenter != nil {
			a.presenter.Shutdown()
		}

		// Shutdown services (in reverse order of creation)
		if err := a.sceneService.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("scene service: %w", err))
		}
		if err := a.tempoService.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("tempo service: %w", err))
		}
		if err := a.playbackService.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("playback service: %w", err))
		}

		if err := a.shutdownEngine(); err != nil {
			errs = append(errs, err)
		}

		if a.settingsDB != nil {
			if err := a.settingsDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("settings database: %w", err))
			}
		}

		if err := a.eventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event bus: %w", err))
		}

		for _, err := range errs {
			a.logger.Warn("shutdown error", slog.Any("error", err))
		}
		a.logger.Info("application shutdown complete")
	})
	return errors.Join(errs...)
}

func (a *Application) shutdownEngine() error {
	if err := a.audioEngine.Shutdown(); err != nil && !errors.Is(err, domain.ErrNotInitialized) {
		return fmt.Errorf("audio engine: %w", err)
	}
	return nil
}

// bus is the event bus as the application owns it.
type bus interface {
	ports.EventBus
	SetLogger(logger *slog.Logger)
	Close() error
}

func newEventBus(config Config) bus {
	if config.EventBus == EventBusQueued {
		return eventbus.NewQueuedEventBus(config.EventQueueSize)
	}
	return eventbus.NewSyncEventBus()
}

// GetServices returns the core services (for testing).
func (a *Application) GetServices() (*service.PlaybackService, *service.LibraryService, *service.SceneService) {
	return a.playbackService, a.libraryService, a.sceneService
}

// GetEventBus returns the event bus (for testing).
func (a *Application) GetEventBus() ports.EventBus {
	return a.eventBus
}

// GetFyneApp returns the Fyne application (for testing).
func (a *Application) GetFyneApp() fyne.App {
	return a.fyneApp
}

// GetMainWindow returns the main window (for testing).
func (a *Application) GetMainWindow() *fyneui.MainWindow {
	return a.mainWindow
}
