package reqcache

import (
	"sync"
	"time"
)

// Store is an entry table of a Coalescer.
//
// Entries are created on first access and live as long as the Store.
type Store interface {
	// Entry returns entry for key, creating it if missing.
	// Concurrent calls with the same key must return the same entry.
	Entry(key string) *Entry

	// Len returns number of entries.
	Len() int

	// Walk calls function for every entry and fails on first error returned by that function.
	//
	// Count of processed entries is returned.
	Walk(walkFn func(key string, e *Entry) error) (int, error)
}

// Entry holds the last response of a key and its in-flight upstream round.
type Entry struct {
	mu sync.Mutex

	response    interface{}
	hasResponse bool
	expiresAt   time.Time

	// inflight is non-nil while upstream call is outstanding.
	inflight *round
}

// Value returns last successful response.
func (e *Entry) Value() (interface{}, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.response, e.hasResponse
}

// ExpireAt returns expiration time of response, zero if never valid.
func (e *Entry) ExpireAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.expiresAt
}

// InFlight returns true if upstream call is outstanding.
func (e *Entry) InFlight() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.inflight != nil
}

// fresh checks response validity, must be called with mu held.
func (e *Entry) fresh(now time.Time) bool {
	return e.hasResponse && e.expiresAt.After(now)
}

// expire marks response expired, it stays in the entry until next successful round.
func (e *Entry) expire(now time.Time) {
	e.mu.Lock()
	if e.expiresAt.After(now) {
		e.expiresAt = now
	}
	e.mu.Unlock()
}
