package reqcache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

var _ Store = &ShardedStore{}

const shards = 64

type bucket struct {
	sync.RWMutex
	data map[string]*Entry
}

// ShardedStore is an entry table split in buckets by xxhash of the key.
type ShardedStore struct {
	buckets [shards]bucket
}

// NewShardedStore creates an instance of sharded entry table.
func NewShardedStore() *ShardedStore {
	s := &ShardedStore{}

	for i := 0; i < shards; i++ {
		s.buckets[i].data = make(map[string]*Entry)
	}

	return s
}

// Entry returns entry for key, creating it if missing.
func (s *ShardedStore) Entry(key string) *Entry {
	b := &s.buckets[xxhash.Sum64String(key)%shards]

	b.RLock()
	e, found := b.data[key]
	b.RUnlock()

	if found {
		return e
	}

	b.Lock()
	defer b.Unlock()

	// Another caller may have created entry while the lock was released.
	if e, found = b.data[key]; found {
		return e
	}

	e = &Entry{}
	b.data[key] = e

	return e
}

// Len returns number of entries.
func (s *ShardedStore) Len() int {
	cnt := 0

	for i := range s.buckets {
		b := &s.buckets[i]

		b.RLock()
		cnt += len(b.data)
		b.RUnlock()
	}

	return cnt
}

// Walk walks entries.
func (s *ShardedStore) Walk(walkFn func(key string, e *Entry) error) (int, error) {
	n := 0

	for i := range s.buckets {
		b := &s.buckets[i]

		b.RLock()
		keys := make([]string, 0, len(b.data))
		entries := make([]*Entry, 0, len(b.data))

		for k, e := range b.data {
			keys = append(keys, k)
			entries = append(entries, e)
		}
		b.RUnlock()

		for j, k := range keys {
			if err := walkFn(k, entries[j]); err != nil {
				return n, err
			}

			n++
		}
	}

	return n, nil
}
