package replay

import (
	"io"

	"github.com/dshills/turtletrace/internal/jsoncodec"
)

// JSONWriter writes outbound editor commands as JSON Lines, in the same
// shape the bridge sends them over the websocket.
type JSONWriter struct {
	w   io.Writer
	n   int
	err error
}

// NewJSONWriter creates a writer emitting to w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

// Send implements bridge.Sender. After the first write error every later
// message is dropped.
func (j *JSONWriter) Send(msg any) {
	if j.err != nil {
		return
	}
	if err := jsoncodec.Encode(j.w, msg); err != nil {
		j.err = err
		return
	}
	j.n++
}

// Written returns the number of messages written.
func (j *JSONWriter) Written() int {
	return j.n
}

// Err returns the first write error.
func (j *JSONWriter) Err() error {
	return j.err
}
