package debug

// Apply feeds one runtime event through the correlation state machine.
// Events for stale or unknown ids are dropped, as is everything while no
// target is bound.
func (e *Engine) Apply(ev Event) {
	if e.target == nil {
		return
	}
	e.metrics.event(ev.Kind)

	switch ev.Kind {
	case EventEnter:
		r := e.record(ev)
		if r == nil {
			return
		}
		e.update(r)

	case EventExit:
		r := e.record(ev)
		if r == nil {
			return
		}
		r.Exited = true
		e.update(r)

	case EventAppear:
		r := e.record(ev)
		if r == nil {
			return
		}
		r.AppearCount++
		r.StartCoords = setCoords(r.StartCoords, ev.Index, snapshot(ev.Element))
		e.update(r)

	case EventResolve:
		r := e.store.Lookup(ev.DebugID)
		if r == nil {
			e.dropped(ev)
			return
		}
		r.ResolveCount++
		r.EndCoords = setCoords(r.EndCoords, ev.Index, snapshot(ev.Element))
		if r.ResolveCount > r.AppearCount {
			e.metrics.overflow()
			e.logger.Warn("more resolve than appear events for %s #%d (%d > %d)",
				r.Method, r.DebugID, r.ResolveCount, r.AppearCount)
		}
		if r.ResolveCount > r.TotalCount {
			e.metrics.overflow()
			e.logger.Warn("too many resolve events for %s #%d (%d > %d)",
				r.Method, r.DebugID, r.ResolveCount, r.TotalCount)
		}
		e.update(r)

	case EventError:
		e.markError(ev.Err)

	default:
		e.logger.Debug("ignoring event of kind %d", int(ev.Kind))
	}
}

// record fetches or creates the record an event refers to.
func (e *Engine) record(ev Event) *Record {
	existed := e.store.Lookup(ev.DebugID) != nil
	r := e.store.GetOrCreate(ev.DebugID, ev.Method, ev.Length, ev.Args)
	if r == nil {
		e.dropped(ev)
		return nil
	}
	if !existed {
		e.metrics.recordsAdded(1)
	}
	return r
}

func (e *Engine) dropped(ev Event) {
	e.metrics.staleEvent()
	e.logger.Debug("dropping %s for stale id %d", ev.Kind, ev.DebugID)
}

// markError moves the error highlight to the line that raised err.
func (e *Engine) markError(err *RuntimeError) {
	if err == nil {
		return
	}
	line := e.resolveLine(err.Stack)
	e.editor.ClearAllMarks(e.sourcePane, ClassError)
	if line > 0 {
		e.editor.MarkLine(e.sourcePane, line, ClassError)
		e.metrics.highlight("error")
	}
	e.logger.Debug("%v at line %d", err, line)
}
