package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/tejashwikalptaru/tunescape/internal/ports"
)

// DefaultFrameRate is the render rate used when none is configured.
const DefaultFrameRate = 60

// RenderLoop drives SceneService.Tick at a fixed frame rate and hands every
// composed frame to a FrameSink. The time passed to Tick is monotonic
// seconds since Run started.
type RenderLoop struct {
	logger   *slog.Logger
	scene    *SceneService
	analyzer ports.FrequencySource
	sink     ports.FrameSink
	interval time.Duration
}

// NewRenderLoop creates a render loop running at fps frames per second.
func NewRenderLoop(
	logger *slog.Logger,
	scene *SceneService,
	analyzer ports.FrequencySource,
	sink ports.FrameSink,
	fps int,
) *RenderLoop {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return &RenderLoop{
		logger:   logger,
		scene:    scene,
		analyzer: analyzer,
		sink:     sink,
		interval: time.Second / time.Duration(fps),
	}
}

// Run renders until ctx is canceled.
func (l *RenderLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	start := time.Now()
	var frames uint64

	l.logger.Debug("render loop started", slog.Duration("interval", l.interval))

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("render loop stopped", slog.Uint64("frames", frames))
			return ctx.Err()

		case <-ticker.C:
			frame := l.scene.Tick(time.Since(start).Seconds(), l.analyzer.Sample())
			if frame == nil {
				continue
			}
			l.sink.Present(frame)
			frames++
		}
	}
}
