package debug

// update decides whether r's source line should be highlighted after r
// changed, keeps Record.Traced and the line index in step with the
// editor, and collects r once it is complete.
func (e *Engine) update(r *Record) {
	if r == nil || e.store.Stale(r.DebugID) {
		return
	}

	// Only pay for line resolution when there is a visible async animation.
	if !r.HasLine() && r.Exception != "" && r.Exited && r.InFlight() {
		r.Line = e.resolveLine(r.Exception)
	}

	if r.HasLine() {
		owner := e.lines[r.Line]
		if r.InFlight() {
			e.lines[r.Line] = r
			if owner == nil || !owner.Traced {
				e.traceLine(r.Line)
			}
			r.Traced = true
		} else {
			if owner == nil || !owner.InFlight() || owner == r {
				e.lines[r.Line] = r
				if owner != nil && owner.Traced {
					e.untraceLine(r.Line)
				}
			}
			r.Traced = false
		}
	}

	if e.store.Complete(r) && e.store.Collect(r) {
		e.metrics.recordsAdded(-1)
	}
}

func (e *Engine) traceLine(line int) {
	e.editor.MarkLine(e.sourcePane, line, ClassTrace)
	e.metrics.highlight("trace")
}

func (e *Engine) untraceLine(line int) {
	e.editor.ClearLine(e.sourcePane, line, ClassTrace)
	e.metrics.highlight("untrace")
}
