// Package metadata extracts track tags from local audio files.
package metadata

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
)

// DurationProber measures a source's length.
type DurationProber interface {
	Probe(ctx context.Context, source string) (time.Duration, error)
}

// Reader reads ID3/MP4/FLAC/OGG tags with dhowden/tag.
// The duration comes from the optional prober since tags rarely carry it.
type Reader struct {
	logger *slog.Logger
	prober DurationProber
}

// NewReader creates a Reader. prober may be nil.
func NewReader(logger *slog.Logger, prober DurationProber) *Reader {
	return &Reader{logger: logger, prober: prober}
}

// ReadMetadata returns what is known about path. A file without tags still
// yields a title derived from its name.
func (r *Reader) ReadMetadata(path string) (ports.TrackMetadata, error) {
	if path == "" {
		return ports.TrackMetadata{}, domain.ErrInvalidFilePath
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ports.TrackMetadata{}, domain.ErrFileNotFound
		}
		return ports.TrackMetadata{}, domain.NewRepositoryError("read", "metadata", path, err)
	}
	defer file.Close()

	base := filepath.Base(path)
	md := ports.TrackMetadata{Title: strings.TrimSuffix(base, filepath.Ext(base))}

	tags, err := tag.ReadFrom(file)
	if err != nil || tags == nil {
		r.logger.Debug("no readable tags", slog.String("path", path), slog.Any("error", err))
	} else {
		if title := strings.TrimSpace(tags.Title()); title != "" {
			md.Title = title
		}
		md.Artist = strings.TrimSpace(tags.Artist())
		if md.Artist == "" {
			md.Artist = strings.TrimSpace(tags.AlbumArtist())
		}
		md.Album = strings.TrimSpace(tags.Album())

		if picture := tags.Picture(); picture != nil && len(picture.Data) > 0 {
			md.Cover = picture.Data
			md.CoverMIME = picture.MIMEType
		}
	}

	if r.prober != nil {
		d, err := r.prober.Probe(context.Background(), path)
		if err != nil {
			r.logger.Debug("duration probe failed", slog.String("path", path), slog.Any("error", err))
		} else {
			md.Duration = d
		}
	}

	return md, nil
}

var _ ports.MetadataReader = (*Reader)(nil)
