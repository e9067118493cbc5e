// Package ids mints identifiers for debug sessions.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewSessionID returns a time-sortable ULID encoded as a 26-character string.
func NewSessionID() string {
	return SessionIDAt(time.Now())
}

// SessionIDAt returns a ULID for the given time.
func SessionIDAt(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(t), entropy)
	return id.String()
}
