package mock

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
)

// MetadataReader returns canned metadata per path. Unknown paths get a title
// derived from the file name.
type MetadataReader struct {
	mu      sync.RWMutex
	entries map[string]ports.TrackMetadata
	missing map[string]bool
}

// NewMetadataReader creates an empty reader.
func NewMetadataReader() *MetadataReader {
	return &MetadataReader{
		entries: make(map[string]ports.TrackMetadata),
		missing: make(map[string]bool),
	}
}

// Set registers metadata for a path.
func (r *MetadataReader) Set(path string, md ports.TrackMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[path] = md
}

// SetMissing makes path behave like a file that does not exist.
func (r *MetadataReader) SetMissing(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.missing[path] = true
}

// ReadMetadata implements ports.MetadataReader.
func (r *MetadataReader) ReadMetadata(path string) (ports.TrackMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if path == "" {
		return ports.TrackMetadata{}, domain.ErrInvalidFilePath
	}
	if r.missing[path] {
		return ports.TrackMetadata{}, domain.ErrFileNotFound
	}
	if md, ok := r.entries[path]; ok {
		return md, nil
	}

	base := filepath.Base(path)
	return ports.TrackMetadata{
		Title:    strings.TrimSuffix(base, filepath.Ext(base)),
		Artist:   "Mock Artist",
		Album:    "Mock Album",
		Duration: DefaultDuration,
	}, nil
}

var _ ports.MetadataReader = (*MetadataReader)(nil)
