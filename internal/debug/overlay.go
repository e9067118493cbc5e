package debug

import "github.com/dshills/turtletrace/internal/debug/transform"

// Overlay is a computed protractor placement.
type Overlay struct {
	X     float64
	Y     float64
	Angle float64
	Size  float64
}

// HoverEnter focuses line when the pointer enters its gutter and shows
// the protractor at the turtle position the line's last command left.
func (e *Engine) HoverEnter(pane string, line int) {
	if pane != e.sourcePane {
		return
	}
	r, ok := e.lines[line]
	if !ok {
		return
	}
	e.editor.ClearAllMarks(e.sourcePane, ClassFocus)
	e.editor.MarkLine(e.sourcePane, line, ClassFocus)

	if o, ok := e.OverlayFor(r); ok {
		e.editor.ShowOverlay(e.overlayPane, o.X, o.Y, o.Angle, o.Size)
	}
}

// HoverLeave removes the focus mark and the protractor.
func (e *Engine) HoverLeave(pane string, line int) {
	e.editor.ClearAllMarks(e.sourcePane, ClassFocus)
	e.editor.HideOverlay(e.overlayPane)
}

// OverlayFor computes the protractor placement for r from the snapshot
// taken when its last animated element resolved.
func (e *Engine) OverlayFor(r *Record) (Overlay, bool) {
	coords := r.LastEndCoords()
	if coords == nil || coords.Transform == "" {
		return Overlay{}, false
	}
	t, ok := transform.Parse(coords.Transform)
	if !ok {
		e.logger.Debug("unparseable transform %q for %s #%d", coords.Transform, r.Method, r.DebugID)
		return Overlay{}, false
	}
	if e.anchor == nil {
		return Overlay{}, false
	}
	origin, ok := e.anchor.Origin()
	if !ok {
		return Overlay{}, false
	}
	return Overlay{
		X:     origin.X + t.TX,
		Y:     origin.Y + t.TY,
		Angle: t.Rot,
		Size:  e.overlaySize,
	}, true
}
