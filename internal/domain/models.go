// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the tunescape visual engine.
package domain

import (
	"strings"
	"time"
)

// Fallback values applied when a track arrives with missing fields.
const (
	// UnknownTitle replaces a missing track title.
	UnknownTitle = "Unknown Track"

	// UnknownArtist replaces a missing artist list.
	UnknownArtist = "Unknown Artist"

	// DefaultCover is the placeholder artwork used when a track has no cover.
	DefaultCover = "https://placehold.co/400x400/1a1a2e/e94560?text=%E2%99%AA"
)

// Track represents a single playable audio track.
// Tracks are immutable values; build them with NewTrack so every field is normalized.
type Track struct {
	// ID is the stable identifier. Falls back to "<title>-<source>" when the producer has none.
	ID string `json:"id"`

	// Title is the song title
	Title string `json:"title"`

	// Artists is the ordered list of performing artists
	Artists []string `json:"artists"`

	// Album is the album name (optional)
	Album string `json:"album,omitempty"`

	// Cover is a URL or file path of the artwork
	Cover string `json:"cover"`

	// Duration is the total length of the track (0 if unknown)
	Duration time.Duration `json:"duration"`

	// Source is the playable URL or file path
	Source string `json:"source"`

	// Builtin marks tracks shipped with the application; they survive ClearUnplayed.
	Builtin bool `json:"builtin,omitempty"`
}

// TrackInput is the loosely shaped track description accepted from collaborators
// (catalog search, file import, drag and drop).
type TrackInput struct {
	ID       string
	Title    string
	Artist   string // comma separated, used when Artists is empty
	Artists  []string
	Album    string
	Cover    string
	Duration time.Duration
	Source   string
	Builtin  bool
}

// NewTrack normalizes a TrackInput into a Track.
// A track without a playable source is refused with ErrNoSource.
func NewTrack(in TrackInput) (Track, error) {
	source := strings.TrimSpace(in.Source)
	if source == "" {
		return Track{}, ErrNoSource
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = UnknownTitle
	}

	artists := normalizeArtists(in.Artists, in.Artist)

	cover := strings.TrimSpace(in.Cover)
	if cover == "" {
		cover = DefaultCover
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = title + "-" + source
	}

	duration := in.Duration
	if duration < 0 {
		duration = 0
	}

	return Track{
		ID:       id,
		Title:    title,
		Artists:  artists,
		Album:    strings.TrimSpace(in.Album),
		Cover:    cover,
		Duration: duration,
		Source:   source,
		Builtin:  in.Builtin,
	}, nil
}

func normalizeArtists(list []string, joined string) []string {
	if len(list) == 0 && joined != "" {
		list = strings.Split(joined, ",")
	}

	artists := make([]string, 0, len(list))
	for _, a := range list {
		if a = strings.TrimSpace(a); a != "" {
			artists = append(artists, a)
		}
	}
	if len(artists) == 0 {
		artists = []string{UnknownArtist}
	}
	return artists
}

// ArtistLine returns the artists joined for display.
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// Key returns the identity key picked by the same chain SameTrack uses:
// ID, then source, then title.
func (t Track) Key() string {
	switch {
	case t.ID != "":
		return "id:" + t.ID
	case t.Source != "":
		return "src:" + t.Source
	case t.Title != "":
		return "title:" + t.Title
	default:
		return ""
	}
}

// SameTrack reports whether a and b denote the same track.
// Comparison order: IDs when both present, else sources, else titles.
// This is the only identity rule; favorites, history and navigation all use it.
func SameTrack(a, b Track) bool {
	switch {
	case a.ID != "" && b.ID != "":
		return a.ID == b.ID
	case a.Source != "" && b.Source != "":
		return a.Source == b.Source
	case a.Title != "" && b.Title != "":
		return a.Title == b.Title
	default:
		return false
	}
}

// IndexOfTrack returns the index of the first track in tracks matching t, or -1.
func IndexOfTrack(tracks []Track, t Track) int {
	for i := range tracks {
		if SameTrack(tracks[i], t) {
			return i
		}
	}
	return -1
}

// PlayHistoryEntry records when a track was last played.
type PlayHistoryEntry struct {
	Track      Track     `json:"track"`
	LastPlayed time.Time `json:"lastPlayed"`
}

// PlaybackState represents the current state of the playback controller.
type PlaybackState struct {
	// CurrentTrack is the currently loaded track (nil if none)
	CurrentTrack *Track

	// CurrentIndex is the index in the history-scoped play context (-1 if none)
	CurrentIndex int

	// Status is the current playback status
	Status PlaybackStatus

	// Position is the current playback position within the track
	Position time.Duration

	// Duration is the length of the loaded track
	Duration time.Duration

	// Volume is the current volume level (0.0 to 1.0)
	Volume float64

	// IsLooping indicates if the current track should loop
	IsLooping bool

	// BPM is the advisory tempo estimate (0 if unknown)
	BPM float64
}

// PlaybackStatus represents the playback state machine.
//
//	Idle -> Loading -> Playing <-> Paused -> Ended -> Loading (next) | Playing (loop)
type PlaybackStatus int

const (
	// StatusIdle indicates nothing is loaded or playback was stopped
	StatusIdle PlaybackStatus = iota

	// StatusLoading indicates a source is being loaded
	StatusLoading

	// StatusPlaying indicates playback is active
	StatusPlaying

	// StatusPaused indicates playback is paused
	StatusPaused

	// StatusEnded indicates the track reached its natural end
	StatusEnded
)

// String returns a human-readable representation of the playback status.
func (s PlaybackStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// TransportState is the coarse state shown to the user.
type TransportState string

const (
	TransportStopped TransportState = "stopped"
	TransportPlaying TransportState = "playing"
	TransportPaused  TransportState = "paused"
)

// Transport folds the detailed status into stopped, playing or paused.
func (s PlaybackStatus) Transport() TransportState {
	switch s {
	case StatusPlaying:
		return TransportPlaying
	case StatusPaused:
		return TransportPaused
	default:
		return TransportStopped
	}
}

// TrackHandle represents a handle to an audio track in the audio engine.
// This is an opaque identifier used by the audio engine to reference loaded tracks.
type TrackHandle int64

const (
	// InvalidTrackHandle represents an invalid or uninitialized track handle
	InvalidTrackHandle TrackHandle = 0
)

// FrequencyBinCount is the number of magnitude bins in a FrequencySnapshot
// (half of the 1024-point transform).
const FrequencyBinCount = 512

// FrequencySnapshot is one frame of byte-scaled frequency magnitudes (0..255).
// Snapshots are never mutated after publication; the latest value wins.
type FrequencySnapshot []uint8

// NewFrequencySnapshot returns an all-zero snapshot.
func NewFrequencySnapshot() FrequencySnapshot {
	return make(FrequencySnapshot, FrequencyBinCount)
}

// Average returns the mean magnitude over all bins.
func (f FrequencySnapshot) Average() float64 {
	if len(f) == 0 {
		return 0
	}
	var sum int
	for _, v := range f {
		sum += int(v)
	}
	return float64(sum) / float64(len(f))
}

// Bin returns the magnitude at index i, or 0 when out of range.
func (f FrequencySnapshot) Bin(i int) uint8 {
	if i < 0 || i >= len(f) {
		return 0
	}
	return f[i]
}
