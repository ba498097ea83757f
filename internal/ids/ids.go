// Package ids issues ULID strings used as record keys and request ids.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu sync.Mutex
	// Monotonic entropy keeps ids issued within the same millisecond ordered.
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a fresh id. Ids sort lexicographically by creation time, so
// store keys and log lines stay in chronological order.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
