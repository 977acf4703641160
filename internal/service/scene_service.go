package service

import (
	"context"
	"image"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/tejashwikalptaru/tunescape/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
	"github.com/tejashwikalptaru/tunescape/internal/render"
	"github.com/tejashwikalptaru/tunescape/internal/visualizer"
)

// Camera setup shared by every variant.
const (
	cameraFOV  = 75
	cameraNear = 0.1
	cameraFar  = 1000
)

// SceneService owns the render pipeline and the active visualizer.
//
// Startup has two phases: SetupInitial builds the pipeline and every variant
// while a loading screen is shown, CompleteSetup reveals the restored (or
// default) variant once the UI signals it is ready.
//
// Tick and SwitchVisualizer share one mutex, so a switch always lands between frames.
type SceneService struct {
	// Dependencies (injected)
	logger   *slog.Logger
	registry *visualizer.Registry
	settings *SettingsService
	library  *LibraryService
	bus      ports.EventBus
	client   *http.Client

	// Pipeline, built by SetupInitial
	scene    *render.Scene
	camera   *render.Camera
	controls *render.OrbitControls
	composer *render.Composer
	bloom    *render.BloomPass

	// State
	initialized bool
	ready       bool
	current     domain.VisualizerID
	active      visualizer.Visualizer
	subID       domain.SubscriptionID

	// Cover loading; coverGen drops results of superseded requests
	coverCtx    context.Context
	coverCancel context.CancelFunc
	coverGen    uint64
	coverMu     sync.Mutex
	coverWg     sync.WaitGroup

	// Concurrency control
	mu sync.Mutex
}

// NewSceneService creates a scene service. It follows track changes to keep
// the Cover variant's artwork current.
func NewSceneService(
	logger *slog.Logger,
	registry *visualizer.Registry,
	settings *SettingsService,
	library *LibraryService,
	bus ports.EventBus,
	client *http.Client,
) *SceneService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &SceneService{
		logger:      logger,
		registry:    registry,
		settings:    settings,
		library:     library,
		bus:         bus,
		client:      client,
		current:     domain.DefaultVisualizer,
		coverCtx:    ctx,
		coverCancel: cancel,
	}

	s.subID = eventbus.On(bus, domain.EventTrackChanged, func(e domain.TrackChangedEvent) {
		s.SetCover(e.Track.Cover)
	})

	logger.Debug("scene service initialized")
	return s
}

// SetupInitial builds the scene, camera, controls and post-processing chain
// and initializes every variant without showing any of them.
func (s *SceneService) SetupInitial(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return domain.ErrAlreadyInitialized
	}

	s.scene = render.NewScene()
	s.camera = render.NewCamera(cameraFOV, 1, cameraNear, cameraFar)
	s.camera.SetAspect(width, height)
	s.camera.Target = render.V3(0, 0, 0)
	s.camera.Position = render.V3(0, 0, s.registry.Get(domain.DefaultVisualizer).CameraDistance())
	s.controls = render.NewOrbitControls(s.camera)

	bloom := s.settings.Load(domain.DefaultVisualizer).Bloom
	s.bloom = render.NewBloomPass(bloom.Threshold, bloom.Strength, bloom.Radius)
	s.composer = render.NewComposer(width, height)
	s.composer.AddPass(render.NewRenderPass(s.scene, s.camera))
	s.composer.AddPass(s.bloom)

	if err := s.registry.InitAll(); err != nil {
		return domain.NewServiceError("SceneService", "SetupInitial", "failed to initialize visualizers", err)
	}

	s.initialized = true
	s.logger.Info("scene initialized", slog.Int("width", width), slog.Int("height", height))
	return nil
}

// CompleteSetup reveals the last used visualizer, or the default one when
// none was persisted, and publishes scene.ready.
func (s *SceneService) CompleteSetup() error {
	s.mu.Lock()
	initialized := s.initialized
	s.mu.Unlock()

	if !initialized {
		return domain.ErrNotInitialized
	}

	id, restored := s.library.CurrentVisualizer()
	if err := s.SwitchVisualizer(id); err != nil {
		s.logger.Warn("failed to restore visualizer, using default",
			slog.String("visualizer", id.String()),
			slog.Any("error", err))
		id = domain.DefaultVisualizer
		if err := s.SwitchVisualizer(id); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()

	s.logger.Info("scene ready", slog.String("visualizer", id.String()), slog.Bool("restored", restored))
	s.bus.Publish(domain.NewSceneReadyEvent(id))
	return nil
}

// SwitchVisualizer makes id the active variant: it persists the choice,
// applies the variant's settings to the pipeline, swaps the scene group and
// frames the camera.
func (s *SceneService) SwitchVisualizer(id domain.VisualizerID) error {
	next := s.registry.Get(id)
	if next == nil {
		return domain.ErrUnknownVisualizer
	}

	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return domain.ErrNotInitialized
	}

	settings := s.settings.Load(id)
	s.applyLocked(settings)

	if s.active != nil {
		s.active.Detach(s.scene)
	}
	next.Attach(s.scene)
	s.controls.SetDistance(next.CameraDistance())

	s.current = id
	s.active = next
	s.mu.Unlock()

	if err := s.library.SaveCurrentVisualizer(id); err != nil {
		s.logger.Warn("failed to persist visualizer", slog.Any("error", err))
	}

	s.logger.Debug("visualizer switched", slog.String("visualizer", id.String()))
	s.bus.Publish(domain.NewVisualizerChangedEvent(id, settings))
	return nil
}

// applyLocked pushes settings into the bloom pass and the Cover variant.
// Expects s.mu held.
func (s *SceneService) applyLocked(settings domain.VisualizerSettings) {
	s.bloom.SetParams(settings.Bloom.Threshold, settings.Bloom.Strength, settings.Bloom.Radius)
	if settings.Cover != nil {
		s.registry.Cover().SetPointSize(settings.Cover.PointSize)
	}
}

// Current returns the active visualizer.
func (s *SceneService) Current() domain.VisualizerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Settings returns the settings of the active visualizer.
func (s *SceneService) Settings() domain.VisualizerSettings {
	return s.settings.Load(s.Current())
}

// SetBloomParam changes one bloom parameter of the active visualizer and
// persists it.
func (s *SceneService) SetBloomParam(key string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return domain.ErrNotInitialized
	}
	if err := s.settings.Save(s.current, domain.GroupBloom, key, value); err != nil {
		return err
	}

	threshold, strength, radius := s.bloom.Params()
	switch key {
	case domain.KeyThreshold:
		threshold = value
	case domain.KeyStrength:
		strength = value
	case domain.KeyRadius:
		radius = value
	}
	s.bloom.SetParams(threshold, strength, radius)
	return nil
}

// SetCoverPointSize changes the Cover variant's point size and persists it.
func (s *SceneService) SetCoverPointSize(size float64) error {
	if err := s.settings.Save(domain.VisualizerCover, domain.GroupCover, domain.KeyPointSize, size); err != nil {
		return err
	}
	s.registry.Cover().SetPointSize(size)
	return nil
}

// ResetSettings restores the defaults of the active visualizer.
func (s *SceneService) ResetSettings() (domain.VisualizerSettings, error) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return domain.VisualizerSettings{}, domain.ErrNotInitialized
	}

	id := s.current
	settings, err := s.settings.Reset(id)
	if err != nil {
		s.mu.Unlock()
		return settings, err
	}
	s.applyLocked(settings)
	s.mu.Unlock()

	s.bus.Publish(domain.NewVisualizerChangedEvent(id, settings))
	return settings, nil
}

// SetCover loads the artwork at src (file path, URL or data URI) for the
// Cover variant in the background. The placeholder is used for an empty
// source, the default cover and any source that fails to load.
func (s *SceneService) SetCover(src string) {
	s.coverMu.Lock()
	defer s.coverMu.Unlock()

	if s.coverCtx.Err() != nil {
		return
	}
	s.coverGen++
	gen := s.coverGen

	src = strings.TrimSpace(src)
	if src == "" || src == domain.DefaultCover {
		s.registry.Cover().SetCover(nil)
		return
	}

	s.coverWg.Add(1)
	go func() {
		defer s.coverWg.Done()

		img, err := visualizer.LoadImage(s.coverCtx, s.client, src)
		if err != nil {
			s.logger.Warn("failed to load cover, using placeholder", slog.String("src", shorten(src)), slog.Any("error", err))
			img = nil
		}

		s.coverMu.Lock()
		defer s.coverMu.Unlock()
		if gen != s.coverGen || s.coverCtx.Err() != nil {
			return
		}
		s.registry.Cover().SetCover(img)
	}()
}

// shorten keeps data URIs out of the logs.
func shorten(src string) string {
	if len(src) > 64 {
		return src[:64] + "..."
	}
	return src
}

// Tick renders one frame and advances the scene: compose (base + bloom),
// update the controls, then animate the active visualizer when a snapshot
// is available. Returns nil before SetupInitial. The returned image is
// reused by the next Tick.
func (s *SceneService) Tick(t float64, snap domain.FrequencySnapshot) *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil
	}

	frame := s.composer.Render()
	s.controls.Update()
	if s.active != nil && len(snap) > 0 {
		s.active.Update(t, snap)
	}
	return frame
}

// Resize adapts the camera and the frame buffers to a new output size.
func (s *SceneService) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized || width <= 0 || height <= 0 {
		return
	}
	s.camera.SetAspect(width, height)
	s.composer.SetSize(width, height)
}

// Orbit queues a camera rotation from pointer input.
func (s *SceneService) Orbit(theta, phi float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controls != nil {
		s.controls.Rotate(theta, phi)
	}
}

// Zoom dollies the camera by scale.
func (s *SceneService) Zoom(scale float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controls != nil {
		s.controls.Dolly(scale)
	}
}

// IsReady reports whether CompleteSetup ran.
func (s *SceneService) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Shutdown stops following track changes and waits for cover loads.
func (s *SceneService) Shutdown() error {
	s.bus.Unsubscribe(s.subID)

	s.coverMu.Lock()
	s.coverCancel()
	s.coverMu.Unlock()

	s.coverWg.Wait()
	return nil
}
