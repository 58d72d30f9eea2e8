package sink

import "sync"

// Store is a bounded ordered collection of committed items. All mutations
// happen on the executor goroutine; reads may come from anywhere.
type Store[T any] struct {
	mu        sync.RWMutex
	items     []T
	max       int
	trimBatch int // 0 trims exactly to max; >0 evicts that many at once
	onChange  func(added, evicted int)
}

// NewStore builds a store holding at most max items. When an append pushes
// the size past max, the oldest trimBatch items are evicted at once
// (amortizing eviction cost), or exactly the overflow when trimBatch is 0.
func NewStore[T any](max, trimBatch int) *Store[T] {
	if max <= 0 {
		max = 1
	}
	if trimBatch < 0 {
		trimBatch = 0
	}
	if trimBatch > max {
		trimBatch = max
	}
	return &Store[T]{max: max, trimBatch: trimBatch}
}

// OnChange registers the single structural-change notification. It fires
// exactly once per AppendTrim or Clear, after the mutation, on the calling
// (executor) goroutine.
func (s *Store[T]) OnChange(fn func(added, evicted int)) { s.onChange = fn }

// AppendTrim appends the whole batch, then evicts the oldest items if the
// store now exceeds its maximum. One mutation, one notification, whatever
// the batch size. Returns the number of evicted items.
func (s *Store[T]) AppendTrim(batch []T) int {
	if len(batch) == 0 {
		return 0
	}
	s.mu.Lock()
	s.items = append(s.items, batch...)
	evicted := 0
	if overflow := len(s.items) - s.max; overflow > 0 {
		evicted = overflow
		if s.trimBatch > overflow {
			evicted = s.trimBatch
		}
		if evicted > len(s.items) {
			evicted = len(s.items)
		}
		s.items = append(s.items[:0:0], s.items[evicted:]...)
	}
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange(len(batch), evicted)
	}
	return evicted
}

// Len reports the current number of items.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot copies the current contents, oldest first.
func (s *Store[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Tail copies up to n of the most recent items, oldest first.
func (s *Store[T]) Tail(n int) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.items) {
		n = len(s.items)
	}
	out := make([]T, n)
	copy(out, s.items[len(s.items)-n:])
	return out
}

// Clear removes everything, raising one change notification if anything
// was removed.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	n := len(s.items)
	s.items = nil
	s.mu.Unlock()
	if n > 0 && s.onChange != nil {
		s.onChange(0, n)
	}
}
