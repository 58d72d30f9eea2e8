package stats

import "sync/atomic"

// Counters holds the four running ingestion counters. Atomic words are
// used so cross-goroutine polling is race-free; the single-writer
// discipline per counter still holds.
type Counters struct {
	received  atomic.Uint64
	enqueued  atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Received  uint64 `json:"received"`
	Enqueued  uint64 `json:"enqueued"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Buffered  uint64 `json:"buffered"`
}

// NewCounters returns zeroed counters.
func NewCounters() *Counters { return &Counters{} }

// IncReceived records one event seen at the producer callback.
func (c *Counters) IncReceived() { c.received.Add(1) }

// IncEnqueued records one event accepted by the inbox.
func (c *Counters) IncEnqueued() { c.enqueued.Add(1) }

// IncDelivered records one event published by the pump.
func (c *Counters) IncDelivered() { c.delivered.Add(1) }

// IncDropped records one event lost to an overflow policy.
func (c *Counters) IncDropped() { c.dropped.Add(1) }

// Received returns the received count.
func (c *Counters) Received() uint64 { return c.received.Load() }

// Enqueued returns the enqueued count.
func (c *Counters) Enqueued() uint64 { return c.enqueued.Load() }

// Delivered returns the delivered count.
func (c *Counters) Delivered() uint64 { return c.delivered.Load() }

// Dropped returns the dropped count.
func (c *Counters) Dropped() uint64 { return c.dropped.Load() }

// Buffered estimates the number of items currently sitting in the inbox.
// The estimate is derived, not sampled, so it can briefly lag in-flight
// writes.
func (c *Counters) Buffered() uint64 {
	enq := c.enqueued.Load()
	del := c.delivered.Load()
	if del >= enq {
		return 0
	}
	return enq - del
}

// Snapshot copies all counters at once. Individual loads are not mutually
// consistent; pollers only need an approximate view.
func (c *Counters) Snapshot() Snapshot {
	s := Snapshot{
		Received:  c.received.Load(),
		Enqueued:  c.enqueued.Load(),
		Delivered: c.delivered.Load(),
		Dropped:   c.dropped.Load(),
	}
	if s.Enqueued > s.Delivered {
		s.Buffered = s.Enqueued - s.Delivered
	}
	return s
}
