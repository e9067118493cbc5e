package debug

// EventKind identifies a runtime event.
type EventKind int

const (
	// EventEnter is raised inside the call to a turtle method.
	EventEnter EventKind = iota
	// EventExit is raised when the call returns.
	EventExit
	// EventAppear is raised when an element's animation begins.
	EventAppear
	// EventResolve is raised when an element's animation ends.
	EventResolve
	// EventError is raised for an uncaught runtime error.
	EventError
)

// String returns a string representation of the kind.
func (k EventKind) String() string {
	switch k {
	case EventEnter:
		return "enter"
	case EventExit:
		return "exit"
	case EventAppear:
		return "appear"
	case EventResolve:
		return "resolve"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a runtime event. Which fields are meaningful depends on Kind.
type Event struct {
	Kind EventKind

	// Method is the turtle method (Enter, Exit, Appear).
	Method string

	// DebugID is the invocation id (all but Error).
	DebugID int

	// Length is the number of elements animated (Enter, Exit, Appear).
	Length int

	// Index is the element index (Appear, Resolve).
	Index int

	// Element is the animated element (Appear, Resolve).
	Element Element

	// Args are the call arguments (Enter, Exit, Appear).
	Args []any

	// Err is the uncaught error (Error).
	Err *RuntimeError
}

// Enter builds an EventEnter.
func Enter(method string, debugID, length int, args ...any) Event {
	return Event{Kind: EventEnter, Method: method, DebugID: debugID, Length: length, Args: args}
}

// Exit builds an EventExit.
func Exit(method string, debugID, length int, args ...any) Event {
	return Event{Kind: EventExit, Method: method, DebugID: debugID, Length: length, Args: args}
}

// Appear builds an EventAppear.
func Appear(method string, debugID, length, index int, el Element, args ...any) Event {
	return Event{
		Kind:    EventAppear,
		Method:  method,
		DebugID: debugID,
		Length:  length,
		Index:   index,
		Element: el,
		Args:    args,
	}
}

// Resolve builds an EventResolve.
func Resolve(debugID, index int, el Element) Event {
	return Event{Kind: EventResolve, DebugID: debugID, Index: index, Element: el}
}

// Failure builds an EventError.
func Failure(err *RuntimeError) Event {
	return Event{Kind: EventError, Err: err}
}
