package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/tunescape/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunescape/internal/analysis"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
)

// TempoService estimates the BPM of every loaded track in the background.
// Results are advisory: failures are logged at debug level and otherwise ignored.
// Only the estimate of the most recently loaded track is published.
type TempoService struct {
	// Dependencies (injected)
	logger  *slog.Logger
	decoder ports.TrackDecoder
	bus     ports.EventBus

	// State
	ctx        context.Context
	cancel     context.CancelFunc
	cancelJob  context.CancelFunc
	generation uint64
	subID      domain.SubscriptionID
	closed     bool

	// Concurrency control
	mu sync.Mutex
	wg sync.WaitGroup
}

// NewTempoService creates a tempo service listening for track.loaded.
func NewTempoService(logger *slog.Logger, decoder ports.TrackDecoder, bus ports.EventBus) *TempoService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &TempoService{
		logger:  logger,
		decoder: decoder,
		bus:     bus,
		ctx:     ctx,
		cancel:  cancel,
	}

	s.subID = eventbus.On(bus, domain.EventTrackLoaded, func(e domain.TrackLoadedEvent) {
		s.Estimate(e.Track)
	})

	logger.Debug("tempo service initialized")
	return s
}

// Estimate starts an estimation for track, superseding any running one.
func (s *TempoService) Estimate(track domain.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.cancelJob != nil {
		s.cancelJob()
	}

	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelJob = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(ctx, gen, track)
	}()
}

func (s *TempoService) run(ctx context.Context, gen uint64, track domain.Track) {
	audio, err := s.decoder.Decode(ctx, track.Source)
	if err != nil {
		s.logger.Debug("tempo decode failed", slog.String("source", track.Source), slog.Any("error", err))
		return
	}

	bpm, err := analysis.EstimateTempo(audio.Samples, audio.SampleRate)
	if err != nil {
		s.logger.Debug("tempo undetected", slog.String("source", track.Source), slog.Any("error", err))
		return
	}

	s.mu.Lock()
	stale := gen != s.generation || s.closed
	s.mu.Unlock()
	if stale {
		s.logger.Debug("discarding stale tempo estimate", slog.String("source", track.Source))
		return
	}

	s.logger.Info("tempo estimated", slog.String("track", track.Title), slog.Float64("bpm", bpm))
	s.bus.Publish(domain.NewTempoEstimatedEvent(track, bpm))
}

// Shutdown cancels running estimations and waits for them to exit.
func (s *TempoService) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.bus.Unsubscribe(s.subID)
	s.cancel()
	s.wg.Wait()
	return nil
}
