package inbox

import (
	"context"
	"errors"
	"sync"
)

// Policy selects what happens when a bounded Inbox is full and a new item
// arrives.
type Policy int

const (
	// Wait suspends the writer until a slot frees; no items are lost.
	Wait Policy = iota
	// DropNewest rejects the incoming item; buffered items are untouched.
	DropNewest
	// DropOldest evicts the oldest buffered item to make room.
	DropOldest
	// DropWrite rejects the incoming item like DropNewest but is the
	// designated hard overload signal: callers should treat every
	// rejection as sustained backpressure, not an optimization.
	DropWrite
)

// String returns the policy name used in config files and flags.
func (p Policy) String() string {
	switch p {
	case Wait:
		return "wait"
	case DropNewest:
		return "drop-newest"
	case DropOldest:
		return "drop-oldest"
	case DropWrite:
		return "drop-write"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a config string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "wait":
		return Wait, nil
	case "drop-newest", "":
		return DropNewest, nil
	case "drop-oldest":
		return DropOldest, nil
	case "drop-write":
		return DropWrite, nil
	default:
		return 0, errors.New("inbox: invalid policy " + s)
	}
}

// ErrCompleted is returned by Put after CompleteWriting.
var ErrCompleted = errors.New("inbox: writing completed")

// Inbox is a capacity-limited FIFO buffer shared by producer callbacks and
// exactly one draining reader. The zero value is not usable; construct with
// NewBounded or NewUnbounded.
type Inbox[T any] struct {
	mu        sync.Mutex
	buf       []T // ring storage when bounded, grow-slice when unbounded
	head      int
	count     int
	capacity  int // <= 0 means unbounded
	policy    Policy
	completed bool

	// readable is closed and replaced on every transition from empty to
	// non-empty and on completion, waking WaitReadable.
	readable chan struct{}
	// writable is closed and replaced whenever a slot frees, waking Put
	// callers blocked under the Wait policy.
	writable chan struct{}

	onDrop func(T)
}

// NewBounded returns an Inbox holding at most capacity items, applying
// policy on overflow. Capacity must be positive.
func NewBounded[T any](capacity int, policy Policy) *Inbox[T] {
	if capacity <= 0 {
		panic("inbox: capacity must be positive")
	}
	return &Inbox[T]{
		buf:      make([]T, capacity),
		capacity: capacity,
		policy:   policy,
		readable: make(chan struct{}),
		writable: make(chan struct{}),
	}
}

// NewUnbounded returns an Inbox with no capacity limit. Writes always
// succeed; intended for low-rate sessions only.
func NewUnbounded[T any]() *Inbox[T] {
	return &Inbox[T]{
		capacity: 0,
		readable: make(chan struct{}),
		writable: make(chan struct{}),
	}
}

// OnDrop registers a callback invoked synchronously, on the writing
// goroutine, with every item lost to an overflow policy. Must be set
// before the first write.
func (b *Inbox[T]) OnDrop(fn func(T)) { b.onDrop = fn }

// Capacity reports the configured capacity, 0 for unbounded.
func (b *Inbox[T]) Capacity() int { return b.capacity }

// Policy reports the configured overflow policy.
func (b *Inbox[T]) Policy() Policy { return b.policy }

// Len reports the number of buffered items.
func (b *Inbox[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// TryPut enqueues v without ever suspending. It returns false when the
// item was not enqueued: after CompleteWriting, or on overflow under
// DropNewest, DropWrite, and Wait. Under DropOldest the oldest buffered
// item is evicted (reported via the drop callback) and v is enqueued.
func (b *Inbox[T]) TryPut(v T) bool {
	b.mu.Lock()
	if b.completed {
		b.mu.Unlock()
		return false
	}
	if b.capacity > 0 && b.count == b.capacity {
		switch b.policy {
		case DropOldest:
			evicted := b.buf[b.head]
			b.buf[b.head] = v
			b.head = (b.head + 1) % b.capacity
			b.mu.Unlock()
			if b.onDrop != nil {
				b.onDrop(evicted)
			}
			return true
		default:
			b.mu.Unlock()
			if b.onDrop != nil {
				b.onDrop(v)
			}
			return false
		}
	}
	b.enqueueLocked(v)
	wasEmpty := b.count == 1
	var wake chan struct{}
	if wasEmpty {
		wake = b.readable
		b.readable = make(chan struct{})
	}
	b.mu.Unlock()
	if wake != nil {
		close(wake)
	}
	return true
}

// Put enqueues v, suspending under the Wait policy until a slot frees, the
// context is cancelled, or the inbox is completed. Under any other policy
// it behaves like TryPut, returning nil on accept and nil on drop as well:
// drops are reported through the callback, not as errors.
func (b *Inbox[T]) Put(ctx context.Context, v T) error {
	for {
		b.mu.Lock()
		if b.completed {
			b.mu.Unlock()
			return ErrCompleted
		}
		if b.capacity > 0 && b.count == b.capacity && b.policy == Wait {
			wait := b.writable
			b.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if b.capacity > 0 && b.count == b.capacity {
			// non-Wait overflow: delegate to the policy outside the lock
			b.mu.Unlock()
			b.TryPut(v)
			return nil
		}
		b.enqueueLocked(v)
		var wake chan struct{}
		if b.count == 1 {
			wake = b.readable
			b.readable = make(chan struct{})
		}
		b.mu.Unlock()
		if wake != nil {
			close(wake)
		}
		return nil
	}
}

// TryGet dequeues the oldest buffered item without suspending.
func (b *Inbox[T]) TryGet() (T, bool) {
	var zero T
	b.mu.Lock()
	if b.count == 0 {
		b.mu.Unlock()
		return zero, false
	}
	var v T
	if b.capacity > 0 {
		v = b.buf[b.head]
		b.buf[b.head] = zero
		b.head = (b.head + 1) % b.capacity
	} else {
		v = b.buf[b.head]
		b.buf[b.head] = zero
		b.head++
		if b.head > 1024 && b.head*2 > len(b.buf) {
			// compact the grow-slice so unbounded mode does not pin
			// memory for items already consumed
			b.buf = append(b.buf[:0:0], b.buf[b.head:]...)
			b.head = 0
		}
	}
	b.count--
	var wake chan struct{}
	if b.capacity > 0 && b.count == b.capacity-1 {
		wake = b.writable
		b.writable = make(chan struct{})
	}
	b.mu.Unlock()
	if wake != nil {
		close(wake)
	}
	return v, true
}

// WaitReadable blocks until an item is buffered, returning true, or until
// the inbox is completed-and-drained or ctx is cancelled, returning false.
// The caller is the single reader; a true return does not reserve the item.
func (b *Inbox[T]) WaitReadable(ctx context.Context) bool {
	for {
		b.mu.Lock()
		if b.count > 0 {
			b.mu.Unlock()
			return true
		}
		if b.completed {
			b.mu.Unlock()
			return false
		}
		wait := b.readable
		b.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return false
		}
	}
}

// CompleteWriting seals the writer side. Further writes are rejected;
// blocked Put callers and the reader are woken so they can observe the
// terminal state after draining.
func (b *Inbox[T]) CompleteWriting() {
	b.mu.Lock()
	if b.completed {
		b.mu.Unlock()
		return
	}
	b.completed = true
	r := b.readable
	w := b.writable
	b.readable = make(chan struct{})
	b.writable = make(chan struct{})
	b.mu.Unlock()
	close(r)
	close(w)
}

// Completed reports whether CompleteWriting has been called.
func (b *Inbox[T]) Completed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completed
}

func (b *Inbox[T]) enqueueLocked(v T) {
	if b.capacity > 0 {
		b.buf[(b.head+b.count)%b.capacity] = v
	} else {
		b.buf = append(b.buf, v)
	}
	b.count++
}
