package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrack_AppliesFallbacks(t *testing.T) {
	track, err := NewTrack(TrackInput{Source: "/music/a.mp3"})
	require.NoError(t, err)

	assert.Equal(t, UnknownTitle, track.Title)
	assert.Equal(t, []string{UnknownArtist}, track.Artists)
	assert.Equal(t, DefaultCover, track.Cover)
	assert.Equal(t, UnknownTitle+"-/music/a.mp3", track.ID)
	assert.Equal(t, time.Duration(0), track.Duration)
}

func TestNewTrack_SplitsArtistString(t *testing.T) {
	track, err := NewTrack(TrackInput{
		Title:  "Song",
		Artist: "Alice, Bob ,,",
		Source: "https://cdn.example/song.mp3",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Alice", "Bob"}, track.Artists)
	assert.Equal(t, "Alice, Bob", track.ArtistLine())
}

func TestNewTrack_RefusesMissingSource(t *testing.T) {
	_, err := NewTrack(TrackInput{ID: "1", Title: "No source", Source: "  "})
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestSameTrack_IdentityChain(t *testing.T) {
	tests := []struct {
		name string
		a, b Track
		want bool
	}{
		{"same id different source", Track{ID: "1", Source: "a"}, Track{ID: "1", Source: "b"}, true},
		{"different id same source", Track{ID: "1", Source: "a"}, Track{ID: "2", Source: "a"}, false},
		{"one id missing falls to source", Track{ID: "1", Source: "a"}, Track{Source: "a"}, true},
		{"no ids different sources", Track{Source: "a", Title: "x"}, Track{Source: "b", Title: "x"}, false},
		{"title only", Track{Title: "x"}, Track{Title: "x"}, true},
		{"title vs source", Track{Title: "x"}, Track{Source: "x"}, false},
		{"empty", Track{}, Track{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SameTrack(tt.a, tt.b))
			assert.Equal(t, tt.want, SameTrack(tt.b, tt.a))
		})
	}
}

func TestIndexOfTrack(t *testing.T) {
	tracks := []Track{{ID: "1"}, {ID: "2"}, {Source: "s"}}

	assert.Equal(t, 1, IndexOfTrack(tracks, Track{ID: "2"}))
	assert.Equal(t, 2, IndexOfTrack(tracks, Track{Source: "s"}))
	assert.Equal(t, -1, IndexOfTrack(tracks, Track{ID: "3"}))
}

func TestPlaybackStatus_Transport(t *testing.T) {
	assert.Equal(t, TransportStopped, StatusIdle.Transport())
	assert.Equal(t, TransportStopped, StatusLoading.Transport())
	assert.Equal(t, TransportPlaying, StatusPlaying.Transport())
	assert.Equal(t, TransportPaused, StatusPaused.Transport())
	assert.Equal(t, TransportStopped, StatusEnded.Transport())
}

func TestFrequencySnapshot(t *testing.T) {
	snap := NewFrequencySnapshot()
	assert.Len(t, snap, FrequencyBinCount)
	assert.Zero(t, snap.Average())

	snap[0] = 255
	snap[1] = 255
	assert.InDelta(t, 510.0/FrequencyBinCount, snap.Average(), 1e-9)
	assert.Equal(t, uint8(0), snap.Bin(-1))
	assert.Equal(t, uint8(0), snap.Bin(FrequencyBinCount))
}
