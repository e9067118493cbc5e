package debug

import (
	"errors"
	"fmt"
)

// ErrNoTarget indicates an operation that needs a bound target.
var ErrNoTarget = errors.New("no debug target bound")

// RuntimeError is an uncaught error reported by the running program.
type RuntimeError struct {
	// Message is the error message as reported by the runtime.
	Message string

	// Stack is the raw stack trace text, if any.
	Stack string
}

func (e *RuntimeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return "runtime error"
	}
	return fmt.Sprintf("runtime error: %s", e.Message)
}
