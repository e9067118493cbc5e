package debug

import "github.com/dshills/turtletrace/internal/debug/sourcemap"

// Editor panes.
const (
	// PaneSource is the pane showing the authored program.
	PaneSource = "left"

	// PaneOverlay is the pane showing the running program.
	PaneOverlay = "right"
)

// Line mark classes.
const (
	// ClassTrace marks a line whose animation is in flight.
	ClassTrace = "debugtrace"

	// ClassError marks the line of the last uncaught error.
	ClassError = "debugerror"

	// ClassFocus marks the line under the gutter pointer.
	ClassFocus = "debugfocus"
)

// Editor receives highlight and overlay commands. Every method must be
// idempotent; the editor holds no correlation state of its own.
type Editor interface {
	// MarkLine adds class to line in pane.
	MarkLine(pane string, line int, class string)

	// ClearLine removes class from line in pane.
	ClearLine(pane string, line int, class string)

	// ClearAllMarks removes class from every line in pane. An empty class
	// removes every mark.
	ClearAllMarks(pane string, class string)

	// ShowOverlay draws the protractor at (x, y) turned by angle degrees.
	ShowOverlay(pane string, x, y, angle, size float64)

	// HideOverlay removes the protractor.
	HideOverlay(pane string)
}

// NopEditor discards every command.
type NopEditor struct{}

func (NopEditor) MarkLine(string, int, string)                           {}
func (NopEditor) ClearLine(string, int, string)                          {}
func (NopEditor) ClearAllMarks(string, string)                           {}
func (NopEditor) ShowOverlay(string, float64, float64, float64, float64) {}
func (NopEditor) HideOverlay(string)                                     {}

// Point is a position in page coordinates.
type Point struct {
	X float64
	Y float64
}

// Anchor locates the turtle field the protractor is drawn relative to.
type Anchor interface {
	// Origin returns the field's top-left corner, or false if the field
	// is not on screen.
	Origin() (Point, bool)
}

// FixedAnchor is an Anchor at a constant position.
type FixedAnchor Point

// Origin implements Anchor.
func (a FixedAnchor) Origin() (Point, bool) {
	return Point(a), true
}

// Target is a running program the engine is bound to.
type Target interface {
	sourcemap.Registry

	// CaptureStack returns the current call stack as V8 trace text.
	CaptureStack() string
}
