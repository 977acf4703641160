package domain

import (
	"fmt"
	"math"
)

// VisualizerID enumerates the visual variants. The numeric value is the
// picker index and is what gets persisted as the current visualizer.
type VisualizerID int

const (
	VisualizerLine VisualizerID = iota
	VisualizerBoard
	VisualizerLogo
	VisualizerCover
	VisualizerHeart
	VisualizerStar
	VisualizerCrown

	visualizerCount
)

// DefaultVisualizer is shown when nothing was persisted.
const DefaultVisualizer = VisualizerBoard

// VisualizerInfo describes a variant for selection surfaces.
type VisualizerInfo struct {
	ID   VisualizerID
	Key  string // settings-store key
	Name string
	Icon string
}

var visualizerInfos = [visualizerCount]VisualizerInfo{
	{VisualizerLine, "line", "Line", "┃"},
	{VisualizerBoard, "board", "Board", "▢"},
	{VisualizerLogo, "logoIut", "Logo Iut", "◈"},
	{VisualizerCover, "cover", "Cover", "◉"},
	{VisualizerHeart, "heart", "Heart", "♥"},
	{VisualizerStar, "star", "Star", "★"},
	{VisualizerCrown, "crown", "Crown", "♔"},
}

// Valid reports whether id names a known variant.
func (id VisualizerID) Valid() bool {
	return id >= 0 && id < visualizerCount
}

// Info returns the descriptor of id. Unknown ids get an empty descriptor.
func (id VisualizerID) Info() VisualizerInfo {
	if !id.Valid() {
		return VisualizerInfo{ID: id}
	}
	return visualizerInfos[id]
}

// Key returns the settings-store key of id.
func (id VisualizerID) Key() string {
	return id.Info().Key
}

func (id VisualizerID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("visualizer(%d)", int(id))
	}
	return visualizerInfos[id].Key
}

// Visualizers returns the ordered descriptors of all variants.
func Visualizers() []VisualizerInfo {
	out := make([]VisualizerInfo, len(visualizerInfos))
	copy(out, visualizerInfos[:])
	return out
}

// ParseVisualizerKey maps a settings-store key back to its id.
func ParseVisualizerKey(key string) (VisualizerID, error) {
	for _, info := range visualizerInfos {
		if info.Key == key {
			return info.ID, nil
		}
	}
	return 0, ErrUnknownVisualizer
}

// Settings groups and keys as persisted.
const (
	GroupBloom = "bloom"
	GroupCover = "cover"

	KeyThreshold = "threshold"
	KeyStrength  = "strength"
	KeyRadius    = "radius"
	KeyPointSize = "uSize"
)

// BloomParams configures the bloom post-processing pass.
type BloomParams struct {
	Threshold float64 `json:"threshold"`
	Strength  float64 `json:"strength"`
	Radius    float64 `json:"radius"`
}

// CoverParams holds the Cover variant's point-cloud parameters.
type CoverParams struct {
	PointSize float64 `json:"uSize"`
}

// VisualizerSettings is the complete settings bag of one variant.
// Cover is nil for variants without cover parameters.
type VisualizerSettings struct {
	Bloom BloomParams
	Cover *CoverParams
}

// SettingsOverrides is the persisted, possibly partial form of VisualizerSettings:
// group -> key -> value.
type SettingsOverrides map[string]map[string]float64

// Set records a single field override.
func (o SettingsOverrides) Set(group, key string, value float64) {
	if o[group] == nil {
		o[group] = make(map[string]float64)
	}
	o[group][key] = value
}

// ParamRange is the accepted interval of an editable parameter.
type ParamRange struct {
	Min, Max, Step float64
}

var paramRanges = map[string]map[string]ParamRange{
	GroupBloom: {
		KeyThreshold: {0, 1, 0.01},
		KeyStrength:  {0, 3, 0.01},
		KeyRadius:    {0, 1, 0.01},
	},
	GroupCover: {
		KeyPointSize: {0, 10, 0.1},
	},
}

// RangeOf returns the accepted range of group.key.
func RangeOf(group, key string) (ParamRange, bool) {
	r, ok := paramRanges[group][key]
	return r, ok
}

// DefaultSettings returns the baked defaults of id.
func DefaultSettings(id VisualizerID) VisualizerSettings {
	s := VisualizerSettings{
		Bloom: BloomParams{Threshold: 0, Strength: 0.6, Radius: 1},
	}

	switch id {
	case VisualizerLogo:
		s.Bloom.Threshold = 0.6
	case VisualizerCover:
		s.Bloom.Threshold = 0.6
		s.Cover = &CoverParams{PointSize: 4}
	case VisualizerHeart, VisualizerStar:
		s.Bloom.Threshold = 0.2
	case VisualizerCrown:
		s.Bloom.Threshold = 0.34
	}
	return s
}

// ValidateParam checks that group.key is an editable parameter of id and that
// value lies within its range.
func ValidateParam(id VisualizerID, group, key string, value float64) error {
	if !id.Valid() {
		return ErrUnknownVisualizer
	}
	if group == GroupCover && id != VisualizerCover {
		return NewValidationError(group+"."+key, value, "parameter not supported by "+id.String())
	}
	r, ok := RangeOf(group, key)
	if !ok {
		return NewValidationError(group+"."+key, value, "unknown parameter")
	}
	if math.IsNaN(value) || value < r.Min || value > r.Max {
		return NewValidationError(group+"."+key, value, fmt.Sprintf("must be within [%g, %g]", r.Min, r.Max))
	}
	return nil
}

// ApplyOverrides merges persisted overrides field by field over s and returns the result.
// Unknown groups or keys are ignored.
func (s VisualizerSettings) ApplyOverrides(o SettingsOverrides) VisualizerSettings {
	out := s
	if s.Cover != nil {
		c := *s.Cover
		out.Cover = &c
	}

	for key, v := range o[GroupBloom] {
		switch key {
		case KeyThreshold:
			out.Bloom.Threshold = v
		case KeyStrength:
			out.Bloom.Strength = v
		case KeyRadius:
			out.Bloom.Radius = v
		}
	}

	if out.Cover != nil {
		if v, ok := o[GroupCover][KeyPointSize]; ok {
			out.Cover.PointSize = v
		}
	}
	return out
}

// Overrides returns the full persisted form of s.
func (s VisualizerSettings) Overrides() SettingsOverrides {
	o := SettingsOverrides{}
	o.Set(GroupBloom, KeyThreshold, s.Bloom.Threshold)
	o.Set(GroupBloom, KeyStrength, s.Bloom.Strength)
	o.Set(GroupBloom, KeyRadius, s.Bloom.Radius)
	if s.Cover != nil {
		o.Set(GroupCover, KeyPointSize, s.Cover.PointSize)
	}
	return o
}
