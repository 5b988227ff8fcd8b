// Package display shows annotated frames and reports key presses.
package display

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// WindowTitle is the live view window name.
const WindowTitle = "Number Plate Detection"

// NoKey is returned by WaitKey when nothing was pressed.
const NoKey = -1

// Display is where annotated frames go.
type Display interface {
	// Show presents one frame.
	Show(frame gocv.Mat) error

	// WaitKey waits up to delay for a key press and returns its code, or NoKey.
	WaitKey(delay time.Duration) int

	// Close tears the display down.
	Close() error
}

// IsQuit reports whether key requests shutdown ("q" or "Q").
func IsQuit(key int) bool {
	k := key & 0xFF
	return key != NoKey && (k == 'q' || k == 'Q')
}

// Window is an OpenCV HighGUI window.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Show implements Display.
func (w *Window) Show(frame gocv.Mat) error {
	if err := w.win.IMShow(frame); err != nil {
		return fmt.Errorf("display: show: %w", err)
	}
	return nil
}

// WaitKey implements Display. Delays under a millisecond are rounded up,
// since HighGUI treats 0 as "wait forever".
func (w *Window) WaitKey(delay time.Duration) int {
	ms := int(delay / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return w.win.WaitKey(ms)
}

// Close implements Display.
func (w *Window) Close() error {
	return w.win.Close()
}

// Headless discards frames. Use it on machines without a display;
// shutdown then comes from a signal instead of a key press.
type Headless struct {
	Shown int
}

// Show implements Display.
func (h *Headless) Show(gocv.Mat) error {
	h.Shown++
	return nil
}

// WaitKey implements Display. It never sleeps.
func (h *Headless) WaitKey(time.Duration) int { return NoKey }

// Close implements Display.
func (h *Headless) Close() error { return nil }
