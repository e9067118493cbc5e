package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/turtletrace/internal/jsoncodec"
)

// Inbound message types, sent by the page.
const (
	TypeBind       = "bind"
	TypeCompiled   = "compiled"
	TypeAllocate   = "allocate"
	TypeEnter      = "enter"
	TypeExit       = "exit"
	TypeAppear     = "appear"
	TypeResolve    = "resolve"
	TypeError      = "error"
	TypeHoverEnter = "hoverenter"
	TypeHoverLeave = "hoverleave"
)

// Outbound message types, sent to the page.
const (
	TypeAllocated   = "allocated"
	TypeMark        = "mark"
	TypeClear       = "clear"
	TypeClearAll    = "clearall"
	TypeShowOverlay = "showoverlay"
	TypeHideOverlay = "hideoverlay"
)

// Inbound is any message the page sends. Which fields are meaningful
// depends on Type.
type Inbound struct {
	Type string `json:"type"`

	// compiled
	File string          `json:"file,omitempty"`
	Map  json.RawMessage `json:"map,omitempty"`

	// allocate, error
	Stack string `json:"stack,omitempty"`

	// enter, exit, appear, resolve
	Method    string `json:"method,omitempty"`
	ID        int    `json:"id,omitempty"`
	Length    int    `json:"length,omitempty"`
	Index     int    `json:"index,omitempty"`
	Transform string `json:"transform,omitempty"`
	Args      []any  `json:"args,omitempty"`

	// error
	Message string     `json:"message,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`

	// hoverenter, hoverleave
	Pane   string `json:"pane,omitempty"`
	Line   int    `json:"line,omitempty"`
	Origin *Point `json:"origin,omitempty"`
}

// ErrorInfo is the nested error object of an error message.
type ErrorInfo struct {
	Stack string `json:"stack,omitempty"`
}

// Point is a page position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SourceMap returns the raw source map of a compiled message. The map
// may be sent either as a JSON object or as a string holding one.
func (m *Inbound) SourceMap() ([]byte, error) {
	raw := strings.TrimSpace(string(m.Map))
	if raw == "" || raw == "null" {
		return nil, nil
	}
	if raw[0] != '"' {
		return []byte(raw), nil
	}
	var s string
	if err := jsoncodec.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// ErrorStack returns the stack of an error message, preferring the
// top-level field.
func (m *Inbound) ErrorStack() string {
	if m.Stack != "" {
		return m.Stack
	}
	if m.Error != nil {
		return m.Error.Stack
	}
	return ""
}

// Decode parses one inbound message.
func Decode(data []byte) (Inbound, error) {
	var in Inbound
	if err := jsoncodec.Unmarshal(data, &in); err != nil {
		return Inbound{}, &ProtocolError{Op: "decode", Err: fmt.Errorf("%w: %v", ErrMalformedMessage, err)}
	}
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	if in.Type == "" {
		return Inbound{}, &ProtocolError{Op: "decode", Err: fmt.Errorf("%w: type is required", ErrMalformedMessage)}
	}
	return in, nil
}

// Allocated answers an allocate message.
type Allocated struct {
	Type string `json:"type"`
	ID   int    `json:"id"`
}

// LineMark adds or removes a class on one line (mark, clear).
type LineMark struct {
	Type  string `json:"type"`
	Pane  string `json:"pane"`
	Line  int    `json:"line"`
	Class string `json:"class"`
}

// ClearAll removes a class from every line. An empty class removes all.
type ClearAll struct {
	Type  string `json:"type"`
	Pane  string `json:"pane"`
	Class string `json:"class"`
}

// ShowOverlay draws the protractor.
type ShowOverlay struct {
	Type  string  `json:"type"`
	Pane  string  `json:"pane"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
	Size  float64 `json:"size"`
}

// HideOverlay removes the protractor.
type HideOverlay struct {
	Type string `json:"type"`
	Pane string `json:"pane"`
}

// ErrorReply reports a protocol error to the page.
type ErrorReply struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Outbound is the union of every outbound message, for peers decoding
// the stream.
type Outbound struct {
	Type    string  `json:"type"`
	ID      int     `json:"id,omitempty"`
	Pane    string  `json:"pane,omitempty"`
	Line    int     `json:"line,omitempty"`
	Class   string  `json:"class,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	Angle   float64 `json:"angle,omitempty"`
	Size    float64 `json:"size,omitempty"`
	Code    string  `json:"code,omitempty"`
	Message string  `json:"message,omitempty"`
}

func errorReply(err error) ErrorReply {
	return ErrorReply{Type: TypeError, Code: Code(err), Message: err.Error()}
}
