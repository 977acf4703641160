// Package ports defines interfaces (ports) for external dependencies.
// These interfaces allow the core business logic to remain independent of infrastructure.
package ports

import (
	"context"
	"time"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
)

// AudioEngine is the interface for playing a single audio source at a time.
// Implementations wrap an output library (oto) or simulate one (mock).
//
// Every engine also exposes its live output as a SampleSource so the
// frequency analyzer can tap it without knowing the engine.
//
// Thread-safety: Implementations must be safe for concurrent use.
type AudioEngine interface {
	SampleSource

	// Initialize prepares the output device at the given sample rate.
	// Returns domain.ErrAlreadyInitialized when called twice.
	Initialize(sampleRate int) error

	// Shutdown releases the output device and all loaded sources.
	Shutdown() error

	// IsInitialized reports whether Initialize succeeded.
	IsInitialized() bool

	// Load opens a source (file path or http(s) URL) and returns its handle.
	// The source is ready to play but not started.
	Load(source string) (domain.TrackHandle, error)

	// Unload releases a loaded source.
	Unload(handle domain.TrackHandle) error

	// Play starts or resumes playback.
	Play(handle domain.TrackHandle) error

	// Pause pauses playback, keeping the position.
	Pause(handle domain.TrackHandle) error

	// Stop stops playback and unloads the source.
	Stop(handle domain.TrackHandle) error

	// Status returns Idle, Playing, Paused or Ended (natural end reached).
	Status(handle domain.TrackHandle) (domain.PlaybackStatus, error)

	// Position returns the current playback position.
	Position(handle domain.TrackHandle) (time.Duration, error)

	// Duration returns the length of the source (0 if unknown).
	Duration(handle domain.TrackHandle) (time.Duration, error)

	// Seek moves the playback position. Callers clamp to [0, duration].
	Seek(handle domain.TrackHandle, position time.Duration) error

	// SetVolume sets the volume for a source (0.0 to 1.0).
	SetVolume(handle domain.TrackHandle, volume float64) error
}

// SampleSource exposes the most recent output samples of a live signal.
type SampleSource interface {
	// Samples fills dst with the latest len(dst) mono samples in [-1, 1],
	// oldest first, and returns the count written. Missing samples are zero.
	Samples(dst []float64) int

	// SampleRate returns the rate of the signal in Hz.
	SampleRate() int
}

// DecodedAudio is a fully decoded mono signal.
type DecodedAudio struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the length of the decoded signal.
func (d DecodedAudio) Duration() time.Duration {
	if d.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(d.Samples)) / float64(d.SampleRate) * float64(time.Second))
}

// TrackDecoder decodes a whole source offline, independent of playback.
type TrackDecoder interface {
	Decode(ctx context.Context, source string) (DecodedAudio, error)
}

// TrackMetadata is what a MetadataReader can tell about a local file.
type TrackMetadata struct {
	Title     string
	Artist    string
	Album     string
	Duration  time.Duration
	Cover     []byte
	CoverMIME string
}

// MetadataReader extracts tags from local audio files.
type MetadataReader interface {
	ReadMetadata(path string) (TrackMetadata, error)
}
