package visualizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // decoders
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
)

// maxCoverSize bounds downloaded artwork.
const maxCoverSize = 16 << 20

// CoverClient fetches remote artwork.
var CoverClient = &http.Client{Timeout: 15 * time.Second}

// LoadImage decodes artwork from an http(s) URL, a data: URI or a file path.
func LoadImage(ctx context.Context, client *http.Client, src string) (image.Image, error) {
	data, err := readImageSource(ctx, client, src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedFormat, err)
	}
	return img, nil
}

func readImageSource(ctx context.Context, client *http.Client, src string) ([]byte, error) {
	switch {
	case src == "":
		return nil, domain.ErrInvalidFilePath

	case strings.HasPrefix(src, "data:"):
		comma := strings.IndexByte(src, ',')
		if comma < 0 || !strings.HasSuffix(src[:comma], ";base64") {
			return nil, fmt.Errorf("%w: only base64 data URIs are supported", domain.ErrUnsupportedFormat)
		}
		return base64.StdEncoding.DecodeString(src[comma+1:])

	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		if client == nil {
			client = CoverClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: unexpected status %d", src, resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxCoverSize))

	default:
		data, err := os.ReadFile(src)
		if os.IsNotExist(err) {
			return nil, domain.ErrFileNotFound
		}
		return data, err
	}
}

// DataURI encodes raw image bytes as a data: URI usable as a track cover.
func DataURI(mime string, data []byte) string {
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Placeholder returns the artwork shown when none could be loaded: a diagonal
// gradient between the app's two accent colors.
func Placeholder() image.Image {
	const size = 64
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	from := color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff}
	to := color.RGBA{R: 0xe9, G: 0x45, B: 0x60, A: 0xff}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			t := float64(x+y) / float64(2*(size-1))
			img.SetRGBA(x, y, color.RGBA{
				R: lerp8(from.R, to.R, t),
				G: lerp8(from.G, to.G, t),
				B: lerp8(from.B, to.B, t),
				A: 0xff,
			})
		}
	}
	return img
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}
