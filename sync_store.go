package reqcache

import (
	"github.com/puzpuzpuz/xsync"
)

var _ Store = &SyncStore{}

// SyncStore is an entry table backed by xsync.Map.
type SyncStore struct {
	data *xsync.Map
}

// NewSyncStore creates an instance of xsync.Map entry table.
func NewSyncStore() *SyncStore {
	return &SyncStore{
		data: xsync.NewMap(),
	}
}

// Entry returns entry for key, creating it if missing.
func (s *SyncStore) Entry(key string) *Entry {
	if e, ok := s.data.Load(key); ok {
		return e.(*Entry)
	}

	n := &Entry{}

	// Actual value is nil when a new value is stored.
	e, loaded := s.data.LoadOrStore(key, n)
	if !loaded {
		return n
	}

	return e.(*Entry)
}

// Len returns number of entries.
func (s *SyncStore) Len() int {
	cnt := 0

	s.data.Range(func(key string, value interface{}) bool {
		cnt++

		return true
	})

	return cnt
}

// Walk walks entries.
func (s *SyncStore) Walk(walkFn func(key string, e *Entry) error) (int, error) {
	var (
		n         int
		resultErr error
	)

	s.data.Range(func(key string, value interface{}) bool {
		if err := walkFn(key, value.(*Entry)); err != nil {
			resultErr = err

			return false
		}

		n++

		return true
	})

	return n, resultErr
}
