// Package oto implements the AudioEngine port on top of oto/v2 with go-mp3
// decoding. One output context exists per process; sources are mixed by oto.
package oto

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hajimehoshi/oto/v2"
	"github.com/tejashwikalptaru/tunescape/internal/adapter/audio/mp3"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
)

const (
	channelCount  = 2
	bytesPerFrame = mp3.BytesPerFrame

	// readyTimeout bounds the wait for the output device.
	readyTimeout = 5 * time.Second

	// tapSize keeps a little more than two analysis windows.
	tapSize = 4096
)

var (
	sharedMu   sync.Mutex
	sharedCtx  *oto.Context
	sharedRate int
)

// outputContext returns the process-wide oto context, creating it on first use.
func outputContext(sampleRate int) (*oto.Context, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedCtx != nil {
		if sharedRate != sampleRate {
			return nil, fmt.Errorf("output already opened at %d Hz", sharedRate)
		}
		return sharedCtx, nil
	}

	ctx, ready, err := oto.NewContext(sampleRate, channelCount, oto.FormatSignedInt16LE)
	if err != nil {
		return nil, err
	}

	select {
	case <-ready:
	case <-time.After(readyTimeout):
		return nil, fmt.Errorf("output device not ready after %s", readyTimeout)
	}

	sharedCtx, sharedRate = ctx, sampleRate
	return ctx, nil
}

// Engine plays one or more mp3 sources through the default output device.
//
// Thread-safety: This implementation is thread-safe.
type Engine struct {
	logger *slog.Logger
	client *http.Client

	ctx         *oto.Context
	sampleRate  int
	initialized bool

	tracks     map[domain.TrackHandle]*stream
	nextHandle domain.TrackHandle
	tap        *tap
	mu         sync.Mutex
}

// stream is one loaded source and its player.
type stream struct {
	in       *mp3.Stream
	resample *resampler
	reader   *tapReader
	player   oto.Player
	duration time.Duration
	volume   float64
	paused   bool
	started  bool
}

// NewEngine creates an engine. A nil client uses mp3.DefaultClient.
func NewEngine(logger *slog.Logger, client *http.Client) *Engine {
	return &Engine{
		logger:     logger,
		client:     client,
		tracks:     make(map[domain.TrackHandle]*stream),
		nextHandle: 1,
		tap:        newTap(tapSize),
	}
}

// Initialize opens the output device.
func (e *Engine) Initialize(sampleRate int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return domain.ErrAlreadyInitialized
	}

	ctx, err := outputContext(sampleRate)
	if err != nil {
		return domain.NewAudioEngineError("initialize", "", -1, "cannot open output device", err)
	}

	e.ctx = ctx
	e.sampleRate = sampleRate
	e.initialized = true

	e.logger.Info("audio output ready", slog.Int("sample_rate", sampleRate))
	return nil
}

// Shutdown closes every player. The process-wide context stays open.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return domain.ErrNotInitialized
	}

	for h, s := range e.tracks {
		e.closeStream(s)
		delete(e.tracks, h)
	}
	e.initialized = false
	return nil
}

// IsInitialized returns true if the engine is initialized.
func (e *Engine) IsInitialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// Load opens and decodes the header of source; playback is not started.
func (e *Engine) Load(source string) (domain.TrackHandle, error) {
	e.mu.Lock()
	initialized, rate := e.initialized, e.sampleRate
	e.mu.Unlock()

	if !initialized {
		return domain.InvalidTrackHandle, domain.ErrNotInitialized
	}

	// open without holding the lock; remote sources take a while
	in, err := mp3.Open(context.Background(), e.client, source)
	if err != nil {
		return domain.InvalidTrackHandle, err
	}

	s := &stream{
		in:       in,
		duration: in.Duration(),
		volume:   1.0,
	}
	s.resample, err = newResampler(in, in.SampleRate(), rate)
	if err != nil {
		_ = in.Close()
		return domain.InvalidTrackHandle, domain.NewAudioEngineError("load", source, -1, "resampler setup failed", err)
	}
	s.reader = &tapReader{src: s.resample, tap: e.tap}

	e.mu.Lock()
	defer e.mu.Unlock()

	s.player = e.ctx.NewPlayer(s.reader)
	handle := e.nextHandle
	e.nextHandle++
	e.tracks[handle] = s

	e.logger.Debug("source loaded",
		slog.String("source", source),
		slog.Int("source_rate", in.SampleRate()),
		slog.Duration("duration", s.duration))

	return handle, nil
}

func (e *Engine) lookup(handle domain.TrackHandle) (*stream, error) {
	if !e.initialized {
		return nil, domain.ErrNotInitialized
	}
	s, ok := e.tracks[handle]
	if !ok {
		return nil, domain.ErrInvalidTrackHandle
	}
	return s, nil
}

func (e *Engine) closeStream(s *stream) {
	if err := s.player.Close(); err != nil {
		e.logger.Debug("player close failed", slog.Any("error", err))
	}
	if err := s.in.Close(); err != nil {
		e.logger.Debug("source close failed", slog.Any("error", err))
	}
	if err := s.resample.close(); err != nil {
		e.logger.Debug("resampler close failed", slog.Any("error", err))
	}
}

// Unload releases a loaded source.
func (e *Engine) Unload(handle domain.TrackHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.lookup(handle)
	if err != nil {
		return err
	}
	e.closeStream(s)
	delete(e.tracks, handle)
	return nil
}

// Play starts or resumes playback. An ended source restarts from the beginning.
func (e *Engine) Play(handle domain.TrackHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.lookup(handle)
	if err != nil {
		return err
	}

	if e.ended(s) {
		if err := e.seekLocked(s, 0); err != nil {
			return err
		}
	}

	s.player.Play()
	if err := s.player.Err(); err != nil {
		return domain.NewAudioEngineError("play", s.in.Source, -1, "player rejected start", err)
	}
	s.paused = false
	s.started = true
	return nil
}

// Pause pauses playback.
func (e *Engine) Pause(handle domain.TrackHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.lookup(handle)
	if err != nil {
		return err
	}
	if s.player.IsPlaying() {
		s.player.Pause()
		s.paused = true
	}
	return nil
}

// Stop stops playback and unloads the source.
func (e *Engine) Stop(handle domain.TrackHandle) error {
	return e.Unload(handle)
}

func (e *Engine) ended(s *stream) bool {
	_, eof := s.reader.state()
	return s.started && eof && !s.player.IsPlaying() && !s.paused
}

// Status returns the playback status.
func (e *Engine) Status(handle domain.TrackHandle) (domain.PlaybackStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.lookup(handle)
	if err != nil {
		return domain.StatusIdle, err
	}

	switch {
	case s.player.IsPlaying():
		return domain.StatusPlaying, nil
	case e.ended(s):
		return domain.StatusEnded, nil
	case s.paused:
		return domain.StatusPaused, nil
	default:
		return domain.StatusIdle, nil
	}
}

// Position returns the current playback position.
func (e *Engine) Position(handle domain.TrackHandle) (time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.lookup(handle)
	if err != nil {
		return 0, err
	}
	return e.positionLocked(s), nil
}

func (e *Engine) positionLocked(s *stream) time.Duration {
	read, _ := s.reader.state()
	played := read - int64(s.player.UnplayedBufferSize())
	if played < 0 {
		played = 0
	}
	pos := mp3.FramesToDuration(played/bytesPerFrame, e.sampleRate)
	if s.duration > 0 && pos > s.duration {
		pos = s.duration
	}
	return pos
}

// Duration returns the total track duration.
func (e *Engine) Duration(handle domain.TrackHandle) (time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.lookup(handle)
	if err != nil {
		return 0, err
	}
	return s.duration, nil
}

// Seek repositions the source. The player is recreated so no stale audio
// buffered before the seek is heard.
func (e *Engine) Seek(handle domain.TrackHandle, position time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.lookup(handle)
	if err != nil {
		return err
	}
	return e.seekLocked(s, position)
}

func (e *Engine) seekLocked(s *stream, position time.Duration) error {
	srcRate := s.in.SampleRate()
	srcFrame := int64(position.Seconds() * float64(srcRate))
	if _, err := s.in.Seek(srcFrame*bytesPerFrame, io.SeekStart); err != nil {
		return domain.NewAudioEngineError("seek", s.in.Source, -1, "seek failed", err)
	}

	wasPlaying := s.player.IsPlaying()
	if err := s.player.Close(); err != nil {
		e.logger.Debug("player close failed", slog.Any("error", err))
	}

	if err := s.resample.reset(s.in); err != nil {
		return domain.NewAudioEngineError("seek", s.in.Source, -1, "resampler reset failed", err)
	}
	dstFrame := int64(position.Seconds() * float64(e.sampleRate))
	s.reader.rewind(dstFrame * bytesPerFrame)
	e.tap.reset()

	s.player = e.ctx.NewPlayer(s.reader)
	s.player.SetVolume(s.volume)
	if wasPlaying {
		s.player.Play()
	} else if s.started {
		s.paused = true
	}
	return nil
}

// SetVolume sets the playback volume.
func (e *Engine) SetVolume(handle domain.TrackHandle, volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return domain.ErrInvalidVolume
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.lookup(handle)
	if err != nil {
		return err
	}
	s.volume = volume
	s.player.SetVolume(volume)
	return nil
}

// SampleRate returns the output rate.
func (e *Engine) SampleRate() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sampleRate
}

// Samples returns the latest samples handed to the output.
func (e *Engine) Samples(dst []float64) int {
	return e.tap.read(dst)
}

var _ ports.AudioEngine = (*Engine)(nil)
