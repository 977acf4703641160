// Package mp3 opens and decodes MP3 sources from local files or http(s) URLs
// using go-mp3. Decoded PCM is always 16-bit little-endian stereo.
package mp3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
)

// BytesPerFrame is the size of one decoded stereo 16-bit frame.
const BytesPerFrame = 4

// maxRemoteSize bounds downloads of remote sources.
const maxRemoteSize = 64 << 20

// DefaultClient fetches remote sources.
var DefaultClient = &http.Client{Timeout: 60 * time.Second}

// Stream is an opened, decodable source.
type Stream struct {
	*gomp3.Decoder
	closer io.Closer
	Source string
}

// Close releases the underlying file.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Duration returns the decoded length, or 0 when unknown.
func (s *Stream) Duration() time.Duration {
	return FramesToDuration(s.Length()/BytesPerFrame, s.SampleRate())
}

// FramesToDuration converts a frame count at rate to a duration.
func FramesToDuration(frames int64, rate int) time.Duration {
	if frames <= 0 || rate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(rate)
}

// IsRemote reports whether source is an http(s) URL.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Open opens source for decoding. Remote sources are downloaded into memory
// so the stream is seekable and its length known.
func Open(ctx context.Context, client *http.Client, source string) (*Stream, error) {
	if source == "" {
		return nil, domain.ErrInvalidFilePath
	}
	if client == nil {
		client = DefaultClient
	}

	var (
		r      io.Reader
		closer io.Closer
	)

	if IsRemote(source) {
		data, err := fetch(ctx, client, source)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	} else {
		f, err := os.Open(source)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, domain.NewAudioEngineError("open", source, -1, "file not found", domain.ErrFileNotFound)
			}
			return nil, domain.NewAudioEngineError("open", source, -1, err.Error(), err)
		}
		r, closer = f, f
	}

	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, domain.NewAudioEngineError("decode", source, -1, "not a decodable mp3 stream", fmt.Errorf("%w: %v", domain.ErrUnsupportedFormat, err))
	}

	return &Stream{Decoder: dec, closer: closer, Source: source}, nil
}

func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewAudioEngineError("fetch", url, -1, "invalid url", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, domain.NewAudioEngineError("fetch", url, -1, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewAudioEngineError("fetch", url, resp.StatusCode, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize))
	if err != nil {
		return nil, domain.NewAudioEngineError("fetch", url, -1, "read failed", err)
	}
	return data, nil
}
