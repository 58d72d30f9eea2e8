package bus

import "sync"

// Handler receives published values on the publishing goroutine.
type Handler[T any] func(T)

// Bus is a hot multicast stream. Subscribe/Close are safe to call
// concurrently with Publish; delivery order per handler matches publish
// order because publication happens from a single goroutine.
type Bus[T any] struct {
	mu        sync.Mutex
	subs      []*Subscription[T] // copy-on-write; Publish reads a snapshot
	completed bool
}

// Subscription is a live attachment to a Bus.
type Subscription[T any] struct {
	bus        *Bus[T]
	handler    Handler[T]
	onComplete func()
}

// New returns an empty Bus.
func New[T any]() *Bus[T] { return &Bus[T]{} }

// Subscribe attaches handler and returns its subscription. onComplete, if
// non-nil, fires once when the bus completes (immediately when already
// completed).
func (b *Bus[T]) Subscribe(handler Handler[T], onComplete func()) *Subscription[T] {
	s := &Subscription[T]{bus: b, handler: handler, onComplete: onComplete}
	b.mu.Lock()
	if b.completed {
		b.mu.Unlock()
		if onComplete != nil {
			onComplete()
		}
		return s
	}
	next := make([]*Subscription[T], len(b.subs)+1)
	copy(next, b.subs)
	next[len(b.subs)] = s
	b.subs = next
	b.mu.Unlock()
	return s
}

// Publish delivers v to all attached handlers. Called from the pump
// goroutine only.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()
	for _, s := range subs {
		s.handler(v)
	}
}

// Complete detaches all subscribers and fires their completion callbacks.
// Further publishes are no-ops; further subscribes complete immediately.
func (b *Bus[T]) Complete() {
	b.mu.Lock()
	if b.completed {
		b.mu.Unlock()
		return
	}
	b.completed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()
	for _, s := range subs {
		if s.onComplete != nil {
			s.onComplete()
		}
	}
}

// Len reports the number of attached subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close detaches the subscription. Idempotent. onComplete does not fire:
// it signals bus-side completion, not a subscriber-initiated detach.
func (s *Subscription[T]) Close() {
	b := s.bus
	b.mu.Lock()
	for i, cur := range b.subs {
		if cur == s {
			next := make([]*Subscription[T], 0, len(b.subs)-1)
			next = append(next, b.subs[:i]...)
			next = append(next, b.subs[i+1:]...)
			b.subs = next
			break
		}
	}
	b.mu.Unlock()
}
