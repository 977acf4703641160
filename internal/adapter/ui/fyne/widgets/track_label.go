package widgets

import (
	"strings"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
)

// Ensure TrackLabel implements the tap interfaces
var (
	_ fyneapp.DoubleTappable    = (*TrackLabel)(nil)
	_ fyneapp.SecondaryTappable = (*TrackLabel)(nil)
)

// TrackLabel is a list cell showing one library track.
// Double-tap plays it, right-click toggles it as a favorite.
type TrackLabel struct {
	widget.Label

	index           int
	doubleTapped    func(index int)
	secondaryTapped func(index int)
}

// NewTrackLabel creates a cell reporting taps with its list index.
func NewTrackLabel(doubleTapped, secondaryTapped func(index int)) *TrackLabel {
	label := &TrackLabel{
		doubleTapped:    doubleTapped,
		secondaryTapped: secondaryTapped,
	}
	label.Truncation = fyneapp.TextTruncateEllipsis
	label.ExtendBaseWidget(label)
	return label
}

// SetTrack binds the cell to the track at index.
func (l *TrackLabel) SetTrack(index int, track domain.Track, favorite, current bool) {
	l.index = index
	l.TextStyle = fyneapp.TextStyle{Bold: current}
	l.SetText(TrackText(track, favorite))
}

// TrackText renders "★ Artist, Artist - Title" for a track.
func TrackText(track domain.Track, favorite bool) string {
	var b strings.Builder
	if favorite {
		b.WriteString("★ ")
	}
	b.WriteString(strings.Join(track.Artists, ", "))
	b.WriteString(" - ")
	b.WriteString(track.Title)
	return b.String()
}

// DoubleTapped implements fyne.DoubleTappable.
func (l *TrackLabel) DoubleTapped(*fyneapp.PointEvent) {
	if l.doubleTapped != nil {
		l.doubleTapped(l.index)
	}
}

// TappedSecondary implements fyne.SecondaryTappable.
func (l *TrackLabel) TappedSecondary(*fyneapp.PointEvent) {
	if l.secondaryTapped != nil {
		l.secondaryTapped(l.index)
	}
}
