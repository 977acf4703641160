// Package widgets provides custom Fyne widgets for the tunescape window.
package widgets

import (
	"image"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// FrameView shows the frames composed by the render loop and turns pointer
// input into camera gestures: drag orbits, scroll zooms, right-click opens
// the visualizer menu.
//
// Present is called from the render goroutine. It copies into a pending
// buffer; the raster swaps it in on the UI thread, so the image being drawn
// is never written.
type FrameView struct {
	widget.BaseWidget

	raster *canvas.Raster

	mu      sync.Mutex
	pending *image.RGBA
	shown   *image.RGBA
	fresh   bool
	queued  atomic.Bool

	// OnDrag receives pointer movement in pixels.
	OnDrag func(dx, dy float32)
	// OnScroll receives wheel movement; positive is away from the user.
	OnScroll func(dy float32)
	// OnSecondaryTap is called on right-click.
	OnSecondaryTap func(*fyne.PointEvent)
	// OnResize is called with the new size in pixels.
	OnResize func(width, height int)
}

// NewFrameView creates an empty frame view.
func NewFrameView() *FrameView {
	v := &FrameView{}
	v.raster = canvas.NewRaster(v.generate)
	v.raster.ScaleMode = canvas.ImageScaleSmooth
	v.ExtendBaseWidget(v)
	return v
}

// Present implements ports.FrameSink.
func (v *FrameView) Present(frame *image.RGBA) {
	v.mu.Lock()
	if v.pending == nil || v.pending.Rect != frame.Rect {
		v.pending = image.NewRGBA(frame.Rect)
	}
	copy(v.pending.Pix, frame.Pix)
	v.fresh = true
	v.mu.Unlock()

	// one refresh in flight is enough; it picks up the newest frame
	if v.queued.CompareAndSwap(false, true) {
		fyne.Do(func() {
			v.queued.Store(false)
			v.raster.Refresh()
		})
	}
}

func (v *FrameView) generate(w, h int) image.Image {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.fresh {
		v.pending, v.shown = v.shown, v.pending
		v.fresh = false
	}
	if v.shown == nil {
		return image.Black
	}
	return v.shown
}

// Frame returns the frame currently on screen, or nil.
func (v *FrameView) Frame() *image.RGBA {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.shown
}

// CreateRenderer implements fyne.Widget.
func (v *FrameView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.raster)
}

// MinSize keeps the view usable in small windows.
func (v *FrameView) MinSize() fyne.Size {
	return fyne.NewSize(320, 240)
}

// Resize implements fyne.Widget.
func (v *FrameView) Resize(size fyne.Size) {
	if size == v.Size() {
		return
	}
	v.BaseWidget.Resize(size)
	if v.OnResize != nil {
		v.OnResize(int(size.Width), int(size.Height))
	}
}

// Dragged implements fyne.Draggable.
func (v *FrameView) Dragged(e *fyne.DragEvent) {
	if v.OnDrag != nil {
		v.OnDrag(e.Dragged.DX, e.Dragged.DY)
	}
}

// DragEnd implements fyne.Draggable.
func (v *FrameView) DragEnd() {}

// Scrolled implements fyne.Scrollable.
func (v *FrameView) Scrolled(e *fyne.ScrollEvent) {
	if v.OnScroll != nil {
		v.OnScroll(e.Scrolled.DY)
	}
}

// Tapped implements fyne.Tappable.
func (v *FrameView) Tapped(*fyne.PointEvent) {}

// TappedSecondary implements fyne.SecondaryTappable.
func (v *FrameView) TappedSecondary(pe *fyne.PointEvent) {
	if v.OnSecondaryTap != nil {
		v.OnSecondaryTap(pe)
	}
}

// MouseIn implements desktop.Hoverable.
func (v *FrameView) MouseIn(*desktop.MouseEvent) {}

// MouseMoved implements desktop.Hoverable.
func (v *FrameView) MouseMoved(*desktop.MouseEvent) {}

// MouseOut implements desktop.Hoverable.
func (v *FrameView) MouseOut() {}

var (
	_ fyne.Draggable         = (*FrameView)(nil)
	_ fyne.Scrollable        = (*FrameView)(nil)
	_ fyne.SecondaryTappable = (*FrameView)(nil)
	_ desktop.Hoverable      = (*FrameView)(nil)
)
