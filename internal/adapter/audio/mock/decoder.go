package mock

import (
	"context"
	"sync"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
)

// Decoder is a TrackDecoder that synthesizes a click track instead of
// reading the source.
type Decoder struct {
	mu         sync.Mutex
	bpm        map[string]float64
	fail       bool
	gate       chan struct{}
	calls      []string
	sampleRate int
	seconds    float64
}

// NewDecoder creates a decoder producing 8 kHz, 12 second click tracks.
func NewDecoder() *Decoder {
	return &Decoder{
		bpm:        make(map[string]float64),
		sampleRate: 8000,
		seconds:    12,
	}
}

// SetTempo sets the click tempo produced for a source. Sources without a
// tempo decode to silence.
func (d *Decoder) SetTempo(source string, bpm float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bpm[source] = bpm
}

// SetFail makes Decode return an error.
func (d *Decoder) SetFail(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = fail
}

// Hold makes Decode block until Release is called or its context ends.
func (d *Decoder) Hold() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gate = make(chan struct{})
}

// Release unblocks held Decode calls.
func (d *Decoder) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gate != nil {
		close(d.gate)
		d.gate = nil
	}
}

// Calls returns the sources Decode was asked for.
func (d *Decoder) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// Decode returns a synthetic click track for source.
func (d *Decoder) Decode(ctx context.Context, source string) (ports.DecodedAudio, error) {
	d.mu.Lock()
	d.calls = append(d.calls, source)
	gate := d.gate
	fail := d.fail
	bpm := d.bpm[source]
	rate := d.sampleRate
	seconds := d.seconds
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ports.DecodedAudio{}, ctx.Err()
		}
	}

	if fail {
		return ports.DecodedAudio{}, domain.NewAudioEngineError("decode", source, -1, "mock decode failed", domain.ErrUnsupportedFormat)
	}

	return ports.DecodedAudio{Samples: ClickTrack(bpm, rate, seconds), SampleRate: rate}, nil
}

// ClickTrack renders short square bursts at bpm. A bpm of 0 yields silence.
func ClickTrack(bpm float64, rate int, seconds float64) []float64 {
	samples := make([]float64, int(seconds*float64(rate)))
	if bpm <= 0 {
		return samples
	}

	period := int(60 / bpm * float64(rate))
	click := rate / 40
	for start := 0; start < len(samples); start += period {
		for i := 0; i < click && start+i < len(samples); i++ {
			v := 0.9
			if i%2 == 1 {
				v = -0.9
			}
			samples[start+i] = v
		}
	}
	return samples
}

var _ ports.TrackDecoder = (*Decoder)(nil)
