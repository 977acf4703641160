// Package analysis turns a live audio signal into frequency snapshots and
// estimates the tempo of decoded tracks.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/madelynnblue/go-dsp/window"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
)

// Config configures the analyzer. The byte mapping follows the usual
// browser analyser: magnitudes in decibels are scaled linearly from
// [MinDecibels, MaxDecibels] onto 0..255.
type Config struct {
	// FFTSize is the transform length; the snapshot has FFTSize/2 bins.
	FFTSize int

	// Smoothing is the time constant in [0, 1) blending each frame with the previous one.
	Smoothing float64

	MinDecibels float64
	MaxDecibels float64

	// Interval is the analysis period, independent of the render rate.
	Interval time.Duration
}

// DefaultConfig returns a 1024-point analysis at 60 Hz with 0.8 smoothing.
func DefaultConfig() Config {
	return Config{
		FFTSize:     2 * domain.FrequencyBinCount,
		Smoothing:   0.8,
		MinDecibels: -100,
		MaxDecibels: -30,
		Interval:    time.Second / 60,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !isPowerOfTwo(c.FFTSize) {
		return domain.NewValidationError("fft_size", c.FFTSize, "must be a power of two")
	}
	if c.Smoothing < 0 || c.Smoothing >= 1 {
		return domain.NewValidationError("smoothing", c.Smoothing, "must be within [0, 1)")
	}
	if c.MinDecibels >= c.MaxDecibels {
		return domain.NewValidationError("decibels", fmt.Sprintf("%g..%g", c.MinDecibels, c.MaxDecibels), "min must be below max")
	}
	if c.Interval <= 0 {
		return domain.NewValidationError("interval", c.Interval, "must be positive")
	}
	return nil
}

type sourceRef struct {
	src ports.SampleSource
}

// Analyzer produces FrequencySnapshots from an attached SampleSource.
//
// One goroutine (Run, or a caller of Analyze) writes; any number of readers
// call Sample. Each analysis publishes a fresh buffer through an atomic
// pointer, so a reader never observes a partially written snapshot.
type Analyzer struct {
	logger *slog.Logger
	cfg    Config

	source atomic.Pointer[sourceRef]
	latest atomic.Pointer[domain.FrequencySnapshot]
	frames atomic.Uint64

	// writer state, guarded by writeMu
	writeMu  sync.Mutex
	window   []float64
	samples  []float64
	mags     []float64
	smoothed []float64
}

// NewAnalyzer creates an analyzer. Sample returns zeros until the first analysis.
func NewAnalyzer(logger *slog.Logger, cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := cfg.FFTSize
	a := &Analyzer{
		logger:   logger,
		cfg:      cfg,
		window:   window.Blackman(n),
		samples:  make([]float64, n),
		mags:     make([]float64, n/2),
		smoothed: make([]float64, n/2),
	}

	zero := make(domain.FrequencySnapshot, n/2)
	a.latest.Store(&zero)

	return a, nil
}

// Attach wires the live signal. Attaching nil detaches.
func (a *Analyzer) Attach(src ports.SampleSource) {
	if src == nil {
		a.source.Store(nil)
		return
	}
	a.source.Store(&sourceRef{src: src})
}

// Sample returns the most recently published snapshot without blocking.
// The returned slice must not be modified.
func (a *Analyzer) Sample() domain.FrequencySnapshot {
	return *a.latest.Load()
}

// Frames returns how many snapshots were published.
func (a *Analyzer) Frames() uint64 {
	return a.frames.Load()
}

// Analyze runs one analysis step and publishes its snapshot.
// Without an attached source it publishes nothing.
func (a *Analyzer) Analyze() bool {
	ref := a.source.Load()
	if ref == nil {
		return false
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	for i := range a.samples {
		a.samples[i] = 0
	}
	ref.src.Samples(a.samples)

	for i := range a.samples {
		a.samples[i] *= a.window[i]
	}
	magnitudes(a.samples, a.mags)

	n := float64(a.cfg.FFTSize)
	tau := a.cfg.Smoothing
	span := a.cfg.MaxDecibels - a.cfg.MinDecibels

	out := make(domain.FrequencySnapshot, len(a.smoothed))
	for k := range a.smoothed {
		mag := a.mags[k] / n
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*mag

		db := a.cfg.MinDecibels
		if a.smoothed[k] > 0 {
			db = 20 * math.Log10(a.smoothed[k])
		}
		scaled := 255 * (db - a.cfg.MinDecibels) / span
		out[k] = uint8(math.Max(0, math.Min(255, scaled)))
	}

	a.latest.Store(&out)
	a.frames.Add(1)
	return true
}

// Reset clears smoothing history and publishes zeros.
func (a *Analyzer) Reset() {
	a.writeMu.Lock()
	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
	a.writeMu.Unlock()

	zero := make(domain.FrequencySnapshot, a.cfg.FFTSize/2)
	a.latest.Store(&zero)
}

// Run analyzes at the configured interval until ctx is canceled.
func (a *Analyzer) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	a.logger.Debug("analyzer started",
		slog.Int("fft_size", a.cfg.FFTSize),
		slog.Duration("interval", a.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			a.logger.Debug("analyzer stopped", slog.Uint64("frames", a.frames.Load()))
			return ctx.Err()
		case <-ticker.C:
			a.Analyze()
		}
	}
}
