package store

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idEntropy   = ulid.Monotonic(rand.Reader, 0)
	idEntropyMu sync.Mutex
)

// NewID returns a monotonic ULID; ids sort by creation time.
func NewID() string {
	idEntropyMu.Lock()
	defer idEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy).String()
}

