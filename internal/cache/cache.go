package cache

import "sync/atomic"

// Snapshot is a lock-free, read-optimized container
// holding any immutable value. Writers replace the whole value.
type Snapshot[T any] struct{ v atomic.Value }

type boxed[T any] struct{ val T }

// Load returns the stored value and whether anything was stored yet.
func (s *Snapshot[T]) Load() (T, bool) {
	v := s.v.Load()
	if v == nil {
		var z T
		return z, false
	}
	return v.(boxed[T]).val, true
}

// Store atomically swaps in the new value. Last write wins.
func (s *Snapshot[T]) Store(v T) {
	s.v.Store(boxed[T]{val: v})
}
