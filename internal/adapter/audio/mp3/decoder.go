package mp3

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
)

// Decoder decodes whole sources to mono PCM for offline analysis.
// Output is decimated to roughly TargetRate to keep analysis cheap.
type Decoder struct {
	logger     *slog.Logger
	client     *http.Client
	TargetRate int
}

// NewDecoder creates an offline decoder. A nil client uses DefaultClient.
func NewDecoder(logger *slog.Logger, client *http.Client) *Decoder {
	return &Decoder{logger: logger, client: client, TargetRate: 11025}
}

// Decode reads source to the end and returns its mono signal.
func (d *Decoder) Decode(ctx context.Context, source string) (ports.DecodedAudio, error) {
	stream, err := Open(ctx, d.client, source)
	if err != nil {
		return ports.DecodedAudio{}, err
	}
	defer stream.Close()

	rate := stream.SampleRate()
	step := 1
	if d.TargetRate > 0 && rate > d.TargetRate {
		step = rate / d.TargetRate
	}

	var samples []float64
	if n := stream.Length(); n > 0 {
		samples = make([]float64, 0, int(n/BytesPerFrame)/step+1)
	}

	buf := make([]byte, 4096*BytesPerFrame)
	var frame int
	var acc float64
	for {
		if err := ctx.Err(); err != nil {
			return ports.DecodedAudio{}, err
		}

		n, err := stream.Read(buf)
		for i := 0; i+BytesPerFrame <= n; i += BytesPerFrame {
			l := int16(binary.LittleEndian.Uint16(buf[i:]))
			r := int16(binary.LittleEndian.Uint16(buf[i+2:]))
			acc += (float64(l) + float64(r)) / 65536
			frame++
			if frame%step == 0 {
				samples = append(samples, acc/float64(step))
				acc = 0
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return ports.DecodedAudio{}, domain.NewAudioEngineError("decode", source, -1, "read failed", err)
		}
	}

	d.logger.Debug("source decoded",
		slog.String("source", source),
		slog.Int("samples", len(samples)),
		slog.Int("rate", rate/step))

	return ports.DecodedAudio{Samples: samples, SampleRate: rate / step}, nil
}

// Probe returns the duration of a local or remote source without keeping it open.
func (d *Decoder) Probe(ctx context.Context, source string) (time.Duration, error) {
	stream, err := Open(ctx, d.client, source)
	if err != nil {
		return 0, err
	}
	defer stream.Close()
	return stream.Duration(), nil
}

var _ ports.TrackDecoder = (*Decoder)(nil)
