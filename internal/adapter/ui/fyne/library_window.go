package fyne

import (
	"fmt"
	"strings"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/tejashwikalptaru/tunescape/internal/adapter/ui/fyne/widgets"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
)

// libraryRow is one track as shown in the library window.
type libraryRow struct {
	track    domain.Track
	favorite bool
	current  bool
}

// LibraryWindow lists the track library with search.
// Double-tap plays a track, right-click toggles it as a favorite.
// All methods run on the UI thread.
type LibraryWindow struct {
	window      fyneapp.Window
	list        *widget.List
	searchEntry *widget.Entry

	// Data state
	rows []libraryRow // full library
	data []libraryRow // filtered view (shown in the list)

	presenter *Presenter

	// Lifecycle
	onWindowClosed func()
	isVisible      bool
}

// NewLibraryWindow creates the library window and loads the library.
func NewLibraryWindow(app fyneapp.App, presenter *Presenter) *LibraryWindow {
	w := &LibraryWindow{presenter: presenter}

	w.window = app.NewWindow("Library")
	w.window.Resize(fyneapp.NewSize(500, 600))
	w.buildUI()

	w.window.SetOnClosed(func() {
		w.isVisible = false
		if w.onWindowClosed != nil {
			w.onWindowClosed()
		}
	})

	w.Reload()
	return w
}

// buildUI constructs the library window UI layout.
func (w *LibraryWindow) buildUI() {
	w.searchEntry = widget.NewEntry()
	w.searchEntry.SetPlaceHolder("Search...")
	w.searchEntry.OnChanged = func(string) { w.applyFilter() }

	w.list = widget.NewList(
		func() int {
			return len(w.data)
		},
		func() fyneapp.CanvasObject {
			return widgets.NewTrackLabel(w.onCellDoubleTapped, w.onCellSecondaryTapped)
		},
		func(i widget.ListItemID, obj fyneapp.CanvasObject) {
			label, ok := obj.(*widgets.TrackLabel)
			if !ok || i < 0 || i >= len(w.data) {
				return
			}
			row := w.data[i]
			label.SetTrack(i, row.track, row.favorite, row.current)
		},
	)

	w.window.SetContent(container.NewBorder(w.searchEntry, nil, nil, nil, w.list))
}

func (w *LibraryWindow) onCellDoubleTapped(index int) {
	if index < 0 || index >= len(w.data) {
		return
	}
	w.presenter.OnLibraryTrackSelected(w.data[index].track)
}

func (w *LibraryWindow) onCellSecondaryTapped(index int) {
	if index < 0 || index >= len(w.data) {
		return
	}
	w.presenter.OnFavoriteToggled(w.data[index].track)
}

// Reload re-reads the library from the presenter.
func (w *LibraryWindow) Reload() {
	tracks, favorite, current := w.presenter.Library()
	w.rows = make([]libraryRow, len(tracks))
	for i, track := range tracks {
		w.rows[i] = libraryRow{track: track, favorite: favorite[i], current: i == current}
	}
	w.applyFilter()
}

// applyFilter narrows the list to rows matching the search query.
func (w *LibraryWindow) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(w.searchEntry.Text))
	if query == "" {
		w.data = w.rows
	} else {
		w.data = make([]libraryRow, 0, len(w.rows))
		for _, row := range w.rows {
			if matchesSearch(row.track, query) {
				w.data = append(w.data, row)
			}
		}
	}

	w.window.SetTitle(fmt.Sprintf("Library (%d tracks)", len(w.data)))
	w.list.Refresh()
}

// matchesSearch checks the title, artists and album against a lower-case query.
func matchesSearch(track domain.Track, query string) bool {
	fields := append([]string{track.Title, track.Album}, track.Artists...)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// Show displays the library window.
func (w *LibraryWindow) Show() {
	w.isVisible = true
	w.window.Show()
}

// Close closes the library window.
func (w *LibraryWindow) Close() {
	w.isVisible = false
	w.window.Close()
}

// IsVisible returns whether the window is currently visible.
func (w *LibraryWindow) IsVisible() bool {
	return w.isVisible
}

// SetOnWindowClosed sets a callback to be invoked when the window is closed.
// This allows the parent (MainWindow) to be notified and clear its reference.
func (w *LibraryWindow) SetOnWindowClosed(callback func()) {
	w.onWindowClosed = callback
}
