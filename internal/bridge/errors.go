package bridge

import (
	"errors"
	"fmt"

	"github.com/dshills/turtletrace/internal/debug"
)

// Protocol errors. These are reported to the peer and never end a session.
var (
	// ErrUnknownMessage indicates a message type the bridge does not handle.
	ErrUnknownMessage = errors.New("unknown message type")

	// ErrMalformedMessage indicates a message that could not be decoded or
	// lacks a required field.
	ErrMalformedMessage = errors.New("malformed message")
)

// ProtocolError wraps an error raised while handling one message.
type ProtocolError struct {
	// Op is the operation that failed, e.g. "decode" or "handle".
	Op string
	// Type is the message type, if known.
	Type string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Type, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a ProtocolError with the same Op.
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	if !ok {
		return false
	}
	return t.Op == e.Op && (t.Type == "" || t.Type == e.Type)
}

// Code returns the wire error code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnknownMessage):
		return "unknown_message"
	case errors.Is(err, ErrMalformedMessage):
		return "malformed_message"
	case errors.Is(err, debug.ErrNoTarget):
		return "no_target"
	default:
		return "internal"
	}
}

func malformed(typ, format string, args ...any) error {
	return &ProtocolError{
		Op:   "handle",
		Type: typ,
		Err:  fmt.Errorf("%w: %s", ErrMalformedMessage, fmt.Sprintf(format, args...)),
	}
}
