package fyne

import (
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"sync"
	"time"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/tejashwikalptaru/tunescape/internal/adapter/ui/fyne/widgets"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/res"
)

// APPNAME is the window title.
const APPNAME = "tunescape"

// marqueeWidth is the number of characters of track info shown at once.
const marqueeWidth = 40

// MainWindow is the main UI window implementing the UIView interface.
//
// The MainWindow follows the MVP pattern:
// - It's a "dumb view" that just displays data
// - All business logic is in the Presenter
// - User interactions are forwarded to the Presenter
type MainWindow struct {
	app    fyneapp.App
	window fyneapp.Window
	logger *slog.Logger

	// Scene
	frameView *widgets.FrameView
	loading   *fyneapp.Container

	// Transport
	prevButton     *widget.Button
	playButton     *widget.Button
	stopButton     *widget.Button
	nextButton     *widget.Button
	loopButton     *widget.Button
	songInfo       *widget.Label
	tempoLabel     *widget.Label
	currentTime    *widget.Label
	endTime        *widget.Label
	progressSlider *widget.Slider
	volumeSlider   *widget.Slider

	// Visualizer editor
	visualizerSelect *widget.Select
	bloomSliders     map[string]*widget.Slider
	pointSizeSlider  *widget.Slider
	pointSizeRow     *fyneapp.Container
	resetButton      *widget.Button

	// State, touched on the UI thread only
	version string
	marquee *widgets.Marquee
	current domain.VisualizerID
	syncing bool
	library *LibraryWindow

	// Lifecycle management
	stopScroll    chan struct{}
	closeOnce     sync.Once
	onBeforeClose func()

	// Presenter (set after construction)
	presenter *Presenter
}

// NewMainWindow creates the main window with a scene area of width x height.
func NewMainWindow(app fyneapp.App, logger *slog.Logger, width, height int) *MainWindow {
	w := &MainWindow{
		app:          app,
		logger:       logger,
		bloomSliders: make(map[string]*widget.Slider),
		current:      domain.DefaultVisualizer,
		marquee:      widgets.NewMarquee(APPNAME, marqueeWidth),
		stopScroll:   make(chan struct{}),
	}

	w.window = app.NewWindow(APPNAME)
	w.buildUI()
	w.window.Resize(fyneapp.NewSize(float32(width), float32(height)))

	w.window.SetCloseIntercept(func() {
		if w.onBeforeClose != nil {
			w.onBeforeClose()
		}
		w.Close()
	})

	return w
}

// SetPresenter connects the presenter to this view.
// This must be called before showing the window.
func (w *MainWindow) SetPresenter(presenter *Presenter) {
	w.presenter = presenter
	w.wirePresenterHandlers()
	w.addShortcuts()
}

// SetVersion sets the build string shown in the About dialog.
func (w *MainWindow) SetVersion(version string) {
	w.version = version
}

// SetOnBeforeClose registers a callback run before the window closes.
func (w *MainWindow) SetOnBeforeClose(fn func()) {
	w.onBeforeClose = fn
}

// FrameView returns the widget the render loop presents to.
func (w *MainWindow) FrameView() *widgets.FrameView {
	return w.frameView
}

// buildUI constructs the UI components.
func (w *MainWindow) buildUI() {
	// Scene with loading overlay
	w.frameView = widgets.NewFrameView()
	shade := canvas.NewRectangle(color.NRGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff})
	w.loading = container.NewStack(shade, container.NewCenter(container.NewVBox(
		widget.NewLabelWithStyle("Loading", fyneapp.TextAlignCenter, fyneapp.TextStyle{Bold: true}),
		widget.NewProgressBarInfinite(),
	)))
	scene := container.NewStack(w.frameView, w.loading)

	// Control buttons
	w.prevButton = widget.NewButtonWithIcon("", theme.MediaSkipPreviousIcon(), nil)
	w.playButton = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), nil)
	w.stopButton = widget.NewButtonWithIcon("", theme.MediaStopIcon(), nil)
	w.nextButton = widget.NewButtonWithIcon("", theme.MediaSkipNextIcon(), nil)
	w.loopButton = widget.NewButtonWithIcon("", theme.MediaReplayIcon(), nil)

	// Song info label
	w.songInfo = widget.NewLabel(w.marquee.Text())
	w.songInfo.Truncation = fyneapp.TextTruncateClip
	w.songInfo.TextStyle = fyneapp.TextStyle{
		Bold:   true,
		Italic: true,
	}
	w.tempoLabel = widget.NewLabel("")

	// Volume slider
	w.volumeSlider = widget.NewSlider(0, 100)
	volIcon := canvas.NewImageFromResource(theme.VolumeUpIcon())
	volIcon.SetMinSize(fyneapp.NewSize(20, 20))
	volumeHolder := container.NewHBox(volIcon, container.NewGridWrap(fyneapp.NewSize(120, 36), w.volumeSlider))

	buttonsHBox := container.NewHBox(
		w.prevButton, w.playButton, w.stopButton,
		w.nextButton, w.loopButton,
	)
	info := container.NewBorder(nil, nil, nil, w.tempoLabel, w.songInfo)
	buttonsHolder := container.NewBorder(nil, nil, buttonsHBox, volumeHolder, info)

	// Progress slider
	w.progressSlider = widget.NewSlider(0, 1)
	w.currentTime = widget.NewLabel("00:00")
	w.endTime = widget.NewLabel("00:00")
	sliderHolder := container.NewBorder(nil, nil, w.currentTime, w.endTime, w.progressSlider)

	controls := container.NewVBox(sliderHolder, buttonsHolder)
	main := container.NewBorder(nil, controls, nil, w.buildEditor(), scene)
	w.window.SetContent(main)

	w.window.SetMainMenu(fyneapp.NewMainMenu(w.createMenu()...))
}

// buildEditor builds the visualizer picker and parameter sliders.
func (w *MainWindow) buildEditor() fyneapp.CanvasObject {
	infos := domain.Visualizers()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Icon + " " + info.Name
	}
	w.visualizerSelect = widget.NewSelect(names, nil)
	w.visualizerSelect.SetSelectedIndex(int(domain.DefaultVisualizer))

	form := container.NewVBox(widget.NewLabelWithStyle("Visualizer", fyneapp.TextAlignLeading, fyneapp.TextStyle{Bold: true}), w.visualizerSelect)

	for _, key := range []string{domain.KeyThreshold, domain.KeyStrength, domain.KeyRadius} {
		slider := newParamSlider(domain.GroupBloom, key)
		w.bloomSliders[key] = slider
		form.Add(widget.NewLabel("Bloom " + key))
		form.Add(slider)
	}

	w.pointSizeSlider = newParamSlider(domain.GroupCover, domain.KeyPointSize)
	w.pointSizeRow = container.NewVBox(widget.NewLabel("Point size"), w.pointSizeSlider)
	w.pointSizeRow.Hide()
	form.Add(w.pointSizeRow)

	w.resetButton = widget.NewButtonWithIcon("Reset", theme.ContentUndoIcon(), nil)
	form.Add(w.resetButton)

	return container.NewGridWrap(fyneapp.NewSize(200, form.MinSize().Height), form)
}

func newParamSlider(group, key string) *widget.Slider {
	r, _ := domain.RangeOf(group, key)
	slider := widget.NewSlider(r.Min, r.Max)
	slider.Step = r.Step
	return slider
}

// wirePresenterHandlers connects UI events to presenter handlers.
func (w *MainWindow) wirePresenterHandlers() {
	if w.presenter == nil {
		return
	}
	p := w.presenter

	// Button handlers
	w.playButton.OnTapped = p.OnPlayClicked
	w.stopButton.OnTapped = p.OnStopClicked
	w.nextButton.OnTapped = p.OnNextClicked
	w.prevButton.OnTapped = p.OnPreviousClicked
	w.loopButton.OnTapped = p.OnLoopClicked

	w.volumeSlider.OnChanged = p.OnVolumeChanged
	w.progressSlider.OnChangeEnded = p.OnSeekRequested

	// Scene gestures
	w.frameView.OnDrag = p.OnDrag
	w.frameView.OnScroll = p.OnScroll
	w.frameView.OnResize = p.OnResize
	w.frameView.OnSecondaryTap = w.showVisualizerMenu

	// Editor
	w.visualizerSelect.OnChanged = func(string) {
		id := domain.VisualizerID(w.visualizerSelect.SelectedIndex())
		if w.syncing || id == w.current {
			return
		}
		p.OnVisualizerSelected(id)
	}
	for key, slider := range w.bloomSliders {
		slider.OnChangeEnded = func(value float64) { p.OnBloomChanged(key, value) }
	}
	w.pointSizeSlider.OnChangeEnded = p.OnPointSizeChanged
	w.resetButton.OnTapped = p.OnResetSettings
}

// showVisualizerMenu pops up a visualizer picker at the pointer.
func (w *MainWindow) showVisualizerMenu(pe *fyneapp.PointEvent) {
	items := make([]*fyneapp.MenuItem, 0, len(domain.Visualizers()))
	for _, info := range domain.Visualizers() {
		item := fyneapp.NewMenuItem(info.Icon+" "+info.Name, func() {
			w.presenter.OnVisualizerSelected(info.ID)
		})
		item.Checked = info.ID == w.current
		items = append(items, item)
	}
	widget.ShowPopUpMenuAtPosition(fyneapp.NewMenu("", items...), w.window.Canvas(), pe.AbsolutePosition)
}

// createMenu creates the application menu.
func (w *MainWindow) createMenu() []*fyneapp.Menu {
	separator := fyneapp.NewMenuItemSeparator()

	openFile := fyneapp.NewMenuItem("Open", w.handleOpenFile)
	openFolder := fyneapp.NewMenuItem("Open Folder", w.handleOpenFolder)
	viewLibrary := fyneapp.NewMenuItem("View Library", w.ShowLibraryWindow)
	clearUnplayed := fyneapp.NewMenuItem("Clear Unplayed", func() {
		if w.presenter != nil {
			w.presenter.OnClearUnplayed()
		}
	})
	about := fyneapp.NewMenuItem("About", w.showAbout)

	fileMenu := fyneapp.NewMenu("File", openFile, openFolder, separator, viewLibrary, clearUnplayed)
	helpMenu := fyneapp.NewMenu("Help", about)

	return []*fyneapp.Menu{fileMenu, helpMenu}
}

// handleOpenFile handles the "Open" menu action.
func (w *MainWindow) handleOpenFile() {
	if w.presenter == nil {
		return
	}
	NewFileDialog(w.window, func(path string) {
		go w.presenter.OnFilesOpened(path)
	}, w.logger).Show()
}

// handleOpenFolder handles the "Open Folder" menu action.
func (w *MainWindow) handleOpenFolder() {
	if w.presenter == nil {
		return
	}
	NewFolderDialog(w.window, func(path string) {
		go w.presenter.OnFolderOpened(path)
	}, w.logger).Show()
}

func (w *MainWindow) showAbout() {
	version := widget.NewLabel(w.version)
	body := widget.NewRichTextFromMarkdown(res.AboutContent)
	dialog.ShowCustom("About "+APPNAME, "Close", container.NewVBox(body, version), w.window)
}

// addShortcuts adds keyboard shortcuts.
func (w *MainWindow) addShortcuts() {
	add := func(key fyneapp.KeyName, fn func()) {
		w.window.Canvas().AddShortcut(&desktop.CustomShortcut{
			KeyName:  key,
			Modifier: fyneapp.KeyModifierAlt,
		}, func(fyneapp.Shortcut) { fn() })
	}

	// Volume
	add(fyneapp.KeyUp, func() { w.volumeSlider.SetValue(math.Min(100, w.volumeSlider.Value+5)) })
	add(fyneapp.KeyDown, func() { w.volumeSlider.SetValue(math.Max(0, w.volumeSlider.Value-5)) })

	// Transport
	add(fyneapp.KeyLeft, w.presenter.OnPreviousClicked)
	add(fyneapp.KeyRight, w.presenter.OnNextClicked)
	add(fyneapp.KeySpace, w.presenter.OnPlayClicked)
}

// startScrollInfoRoutine scrolls long track info in the song label.
func (w *MainWindow) startScrollInfoRoutine() {
	go func() {
		ticker := time.NewTicker(300 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-w.stopScroll:
				return
			case <-ticker.C:
				fyneapp.Do(func() {
					if w.marquee.Scrolls() {
						w.songInfo.SetText(w.marquee.Step())
					}
				})
			}
		}
	}()
}

// ShowAndRun shows the window and runs the application.
func (w *MainWindow) ShowAndRun() {
	w.startScrollInfoRoutine()
	w.window.ShowAndRun()
}

// Close closes the window and stops the scrolling animation.
// It's safe to call multiple times (idempotent).
func (w *MainWindow) Close() {
	w.closeOnce.Do(func() {
		close(w.stopScroll)
		if w.library != nil {
			w.library.Close()
		}
		w.window.Close()
	})
}

// GetWindow returns the underlying Fyne window.
func (w *MainWindow) GetWindow() fyneapp.Window {
	return w.window
}

// ShowLibraryWindow opens the library window, or focuses it when open.
func (w *MainWindow) ShowLibraryWindow() {
	if w.presenter == nil {
		return
	}
	if w.library != nil && w.library.IsVisible() {
		w.library.window.RequestFocus()
		return
	}
	w.library = NewLibraryWindow(w.app, w.presenter)
	w.library.SetOnWindowClosed(func() { w.library = nil })
	w.library.Show()
}

// UIView interface implementation

// SetPlayState updates the play/pause button state.
func (w *MainWindow) SetPlayState(playing bool) {
	fyneapp.Do(func() {
		if playing {
			w.playButton.SetIcon(theme.MediaPauseIcon())
		} else {
			w.playButton.SetIcon(theme.MediaPlayIcon())
		}
	})
}

// SetLoopState updates the loop button state.
func (w *MainWindow) SetLoopState(enabled bool) {
	fyneapp.Do(func() {
		if enabled {
			w.loopButton.Importance = widget.HighImportance
		} else {
			w.loopButton.Importance = widget.MediumImportance
		}
		w.loopButton.Refresh()
	})
}

// SetVolume updates the volume slider (volume is 0.0 to 1.0).
func (w *MainWindow) SetVolume(volume float64) {
	fyneapp.Do(func() {
		w.volumeSlider.Value = volume * 100.0
		w.volumeSlider.Refresh()
	})
}

// SetTempo shows the estimated BPM; 0 clears it.
func (w *MainWindow) SetTempo(bpm float64) {
	fyneapp.Do(func() {
		if bpm <= 0 {
			w.tempoLabel.SetText("")
			return
		}
		w.tempoLabel.SetText(fmt.Sprintf("%.0f BPM", bpm))
	})
}

// SetTrackInfo updates the displayed track information.
func (w *MainWindow) SetTrackInfo(title, artist string) {
	var text string
	switch {
	case artist != "" && title != "":
		text = fmt.Sprintf("%s - %s", artist, title)
	case title != "":
		text = title
	default:
		text = "No track loaded"
	}

	fyneapp.Do(func() {
		w.marquee = widgets.NewMarquee(text, marqueeWidth)
		w.songInfo.SetText(w.marquee.Text())
		if title == "" {
			w.window.SetTitle(APPNAME)
			return
		}
		w.window.SetTitle(fmt.Sprintf("%s - %s", title, APPNAME))
	})
}

// SetCurrentTime updates the current playback time display.
func (w *MainWindow) SetCurrentTime(seconds float64) {
	fyneapp.Do(func() { w.currentTime.SetText(formatTime(seconds)) })
}

// SetTotalTime updates the total track duration display.
func (w *MainWindow) SetTotalTime(seconds float64) {
	fyneapp.Do(func() {
		w.progressSlider.Max = math.Max(seconds, 1)
		w.progressSlider.Refresh()
		w.endTime.SetText(formatTime(seconds))
	})
}

// SetProgress updates the progress slider position.
func (w *MainWindow) SetProgress(position, duration float64) {
	if duration <= 0 {
		return
	}
	fyneapp.Do(func() {
		w.progressSlider.Value = position
		w.progressSlider.Refresh()
	})
}

// SetVisualizer reflects the active visualizer and its settings in the editor.
func (w *MainWindow) SetVisualizer(id domain.VisualizerID, settings domain.VisualizerSettings) {
	fyneapp.Do(func() {
		w.syncing = true
		defer func() { w.syncing = false }()

		w.current = id
		w.visualizerSelect.SetSelectedIndex(int(id))

		values := map[string]float64{
			domain.KeyThreshold: settings.Bloom.Threshold,
			domain.KeyStrength:  settings.Bloom.Strength,
			domain.KeyRadius:    settings.Bloom.Radius,
		}
		for key, slider := range w.bloomSliders {
			slider.Value = values[key]
			slider.Refresh()
		}

		if settings.Cover != nil {
			w.pointSizeSlider.Value = settings.Cover.PointSize
			w.pointSizeSlider.Refresh()
			w.pointSizeRow.Show()
		} else {
			w.pointSizeRow.Hide()
		}
	})
}

// HideLoading removes the loading overlay.
func (w *MainWindow) HideLoading() {
	fyneapp.Do(w.loading.Hide)
}

// RefreshLibrary reloads the library window when it is open.
func (w *MainWindow) RefreshLibrary() {
	fyneapp.Do(func() {
		if w.library != nil && w.library.IsVisible() {
			w.library.Reload()
		}
	})
}

// ShowNotification displays a system notification.
func (w *MainWindow) ShowNotification(title, message string) {
	w.app.SendNotification(fyneapp.NewNotification(title, message))
}

func formatTime(seconds float64) string {
	return fmt.Sprintf("%.2d:%.2d", int(seconds/60), int(math.Mod(seconds, 60)))
}

// Verify UIView implementation
var _ UIView = (*MainWindow)(nil)
