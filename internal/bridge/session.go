package bridge

import (
	"github.com/dshills/turtletrace/internal/debug"
	"github.com/dshills/turtletrace/internal/debug/sourcemap"
)

// Sender delivers an outbound message to the page.
type Sender func(msg any)

// remoteTarget is a page running compiled code. The page captures stacks
// itself and sends them with allocate, so CaptureStack has nothing to add.
type remoteTarget struct {
	*sourcemap.MemoryRegistry
}

func (remoteTarget) CaptureStack() string {
	return ""
}

// wireEditor turns editor commands into outbound messages.
type wireEditor struct {
	send Sender
}

func (e wireEditor) MarkLine(pane string, line int, class string) {
	e.send(LineMark{Type: TypeMark, Pane: pane, Line: line, Class: class})
}

func (e wireEditor) ClearLine(pane string, line int, class string) {
	e.send(LineMark{Type: TypeClear, Pane: pane, Line: line, Class: class})
}

func (e wireEditor) ClearAllMarks(pane string, class string) {
	e.send(ClearAll{Type: TypeClearAll, Pane: pane, Class: class})
}

func (e wireEditor) ShowOverlay(pane string, x, y, angle, size float64) {
	e.send(ShowOverlay{Type: TypeShowOverlay, Pane: pane, X: x, Y: y, Angle: angle, Size: size})
}

func (e wireEditor) HideOverlay(pane string) {
	e.send(HideOverlay{Type: TypeHideOverlay, Pane: pane})
}

// Session applies inbound messages to one engine. A Session is not safe
// for concurrent use.
type Session struct {
	engine *debug.Engine
	target remoteTarget
	send   Sender
}

// NewSession creates a session whose engine reports editor commands
// through send. opts.Editor is replaced.
func NewSession(opts debug.Options, send Sender) (*Session, error) {
	opts.Editor = wireEditor{send: send}
	engine, err := debug.New(opts)
	if err != nil {
		return nil, err
	}
	return &Session{
		engine: engine,
		target: remoteTarget{MemoryRegistry: sourcemap.NewMemoryRegistry()},
		send:   send,
	}, nil
}

// Engine returns the session's engine.
func (s *Session) Engine() *debug.Engine {
	return s.engine
}

// Registry returns the compiled files known to the session.
func (s *Session) Registry() *sourcemap.MemoryRegistry {
	return s.target.MemoryRegistry
}

// Handle applies one message. The returned error describes a bad message;
// the session stays usable either way.
func (s *Session) Handle(in Inbound) error {
	switch in.Type {
	case TypeBind:
		s.target.Reset()
		s.engine.Bind(s.target)

	case TypeCompiled:
		if in.File == "" {
			return malformed(in.Type, "file is required")
		}
		raw, err := in.SourceMap()
		if err != nil {
			return malformed(in.Type, "map: %v", err)
		}
		s.target.Register(in.File, raw)
		s.engine.InvalidateSourceMaps()

	case TypeAllocate:
		s.send(Allocated{Type: TypeAllocated, ID: s.engine.AllocateID(in.Stack)})

	case TypeEnter, TypeExit, TypeAppear, TypeResolve:
		if in.ID <= 0 {
			return malformed(in.Type, "id must be positive")
		}
		if !s.engine.Bound() {
			return &ProtocolError{Op: "handle", Type: in.Type, Err: debug.ErrNoTarget}
		}
		s.engine.Apply(s.event(in))

	case TypeError:
		if !s.engine.Bound() {
			return &ProtocolError{Op: "handle", Type: in.Type, Err: debug.ErrNoTarget}
		}
		s.engine.Apply(debug.Failure(&debug.RuntimeError{Message: in.Message, Stack: in.ErrorStack()}))

	case TypeHoverEnter:
		if in.Origin != nil {
			s.engine.SetAnchor(debug.FixedAnchor{X: in.Origin.X, Y: in.Origin.Y})
		}
		s.engine.HoverEnter(in.Pane, in.Line)

	case TypeHoverLeave:
		s.engine.HoverLeave(in.Pane, in.Line)

	default:
		return &ProtocolError{Op: "handle", Type: in.Type, Err: ErrUnknownMessage}
	}
	return nil
}

func (s *Session) event(in Inbound) debug.Event {
	var el debug.Element
	if in.Transform != "" {
		el = debug.StyleTransform(in.Transform)
	}
	switch in.Type {
	case TypeEnter:
		return debug.Enter(in.Method, in.ID, in.Length, in.Args...)
	case TypeExit:
		return debug.Exit(in.Method, in.ID, in.Length, in.Args...)
	case TypeAppear:
		return debug.Appear(in.Method, in.ID, in.Length, in.Index, el, in.Args...)
	default:
		return debug.Resolve(in.ID, in.Index, el)
	}
}
