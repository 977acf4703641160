package ports

import (
	"image"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
)

// FrameSink receives composed frames from the render loop.
// Present must not retain frame after returning; the buffer is reused.
type FrameSink interface {
	Present(frame *image.RGBA)
}

// FrequencySource hands out the latest frequency snapshot without blocking.
type FrequencySource interface {
	Sample() domain.FrequencySnapshot
}
