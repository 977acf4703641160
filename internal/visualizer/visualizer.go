// Package visualizer provides the seven audio-reactive scene variants.
// Each variant owns a fixed scene-graph group and animates it from the
// elapsed time and the latest frequency snapshot.
package visualizer

import (
	"fmt"
	"log/slog"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/render"
)

// Visualizer defines the interface that all variants must implement.
// Methods are called from the render goroutine only.
type Visualizer interface {
	// ID returns the variant identity.
	ID() domain.VisualizerID

	// Init builds the variant's geometry. Group is nil before Init.
	Init() error

	// Group returns the root node attached to the scene.
	Group() *render.Node

	// CameraDistance is the camera distance this variant is framed for.
	CameraDistance() float64

	// Attach adds the group to scene; Detach removes it.
	Attach(scene *render.Scene)
	Detach(scene *render.Scene)

	// Update animates the group. t is seconds since the render loop started.
	Update(t float64, snap domain.FrequencySnapshot)
}

// base carries what every variant shares.
type base struct {
	id       domain.VisualizerID
	distance float64
	group    *render.Node
}

func (b *base) ID() domain.VisualizerID { return b.id }
func (b *base) Group() *render.Node { return b.group }
func (b *base) CameraDistance() float64 { return b.distance }

func (b *base) Attach(scene *render.Scene) {
	if b.group != nil {
		scene.Add(b.group)
	}
}

func (b *base) Detach(scene *render.Scene) {
	if b.group != nil {
		scene.Remove(b.group)
	}
}

// intensity is the mean magnitude normalized to 0..1.
func intensity(snap domain.FrequencySnapshot) float64 {
	return snap.Average() / 255
}

// Registry holds one instance of every variant, in index order.
type Registry struct {
	logger *slog.Logger
	items  []Visualizer
	cover  *Cover
}

// NewRegistry constructs all variants. Geometry is built by InitAll.
func NewRegistry(logger *slog.Logger) *Registry {
	cover := NewCover()
	return &Registry{
		logger: logger,
		cover:  cover,
		items: []Visualizer{
			NewLine(),
			NewBoard(),
			NewLogo(),
			cover,
			NewHeart(),
			NewStar(),
			NewCrown(),
		},
	}
}

// InitAll initializes every variant without attaching any.
func (r *Registry) InitAll() error {
	for _, v := range r.items {
		if err := v.Init(); err != nil {
			return fmt.Errorf("init %s: %w", v.ID(), err)
		}
		r.logger.Debug("visualizer initialized", slog.String("visualizer", v.ID().String()))
	}
	return nil
}

// Get returns the variant for id, or nil for unknown ids.
func (r *Registry) Get(id domain.VisualizerID) Visualizer {
	if !id.Valid() || int(id) >= len(r.items) {
		return nil
	}
	return r.items[id]
}

// All returns the variants in index order.
func (r *Registry) All() []Visualizer {
	out := make([]Visualizer, len(r.items))
	copy(out, r.items)
	return out
}

// Cover returns the Cover variant, which takes extra parameters.
func (r *Registry) Cover() *Cover {
	return r.cover
}
