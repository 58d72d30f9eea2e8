package pipeline

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/rzbill/mqtap/internal/bus"
	"github.com/rzbill/mqtap/internal/sink"
)

// Options tunes an attached pipeline.
type Options struct {
	// Window is the batching interval. Zero disables batching: every
	// transformed event is committed on its own.
	Window time.Duration
	// Clock drives the window timer; nil means the real clock.
	Clock clockz.Clock
}

// Config is the pipeline surface shared with subscribers when a stream
// connects: window duration plus the sink bounds their stores should use.
type Config struct {
	Window      time.Duration `json:"window"`
	MaxSinkSize int           `json:"maxSinkSize"`
	TrimBatch   int           `json:"trimBatch"`
}

// Pipeline is one subscriber's transform → window → commit composition.
// E is the bus event type, T the transformed representation the sink needs.
type Pipeline[E, T any] struct {
	mu      sync.Mutex
	pending []T

	sub    *bus.Subscription[E]
	exec   *sink.Executor
	commit func([]T)

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Attach subscribes a pipeline to b. transform runs on the publishing
// goroutine; returning false skips the event. commit runs on the sink
// executor with each non-empty window batch. The pipeline detaches itself
// when the bus completes.
func Attach[E, T any](b *bus.Bus[E], exec *sink.Executor, opts Options, transform func(E) (T, bool), commit func([]T)) *Pipeline[E, T] {
	if opts.Clock == nil {
		opts.Clock = clockz.RealClock
	}
	p := &Pipeline[E, T]{
		exec:   exec,
		commit: commit,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	sub := b.Subscribe(func(e E) {
		v, ok := transform(e)
		if !ok {
			return
		}
		if opts.Window <= 0 {
			p.post([]T{v})
			return
		}
		p.mu.Lock()
		p.pending = append(p.pending, v)
		p.mu.Unlock()
	}, p.shutdown)
	p.mu.Lock()
	p.sub = sub
	p.mu.Unlock()

	if opts.Window > 0 {
		go p.windowLoop(opts.Clock, opts.Window)
	} else {
		close(p.done)
	}
	return p
}

// windowLoop emits the pending batch at every window boundary. Empty
// windows are discarded.
func (p *Pipeline[E, T]) windowLoop(clock clockz.Clock, window time.Duration) {
	defer close(p.done)
	ticker := clock.NewTicker(window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C():
			p.flush()
		case <-p.stop:
			// final partial window ships before the pipeline goes away
			p.flush()
			return
		}
	}
}

func (p *Pipeline[E, T]) flush() {
	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()
	if len(batch) > 0 {
		p.post(batch)
	}
}

func (p *Pipeline[E, T]) post(batch []T) {
	p.exec.Post(func() { p.commit(batch) })
}

// Close detaches from the bus, stops the window timer, flushes the final
// partial window, and waits for the timer goroutine. Idempotent.
func (p *Pipeline[E, T]) Close() {
	p.shutdown()
	<-p.done
}

// shutdown initiates teardown without waiting; it is also the bus
// completion callback, which must not block the completing goroutine.
func (p *Pipeline[E, T]) shutdown() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		sub := p.sub
		p.mu.Unlock()
		if sub != nil {
			sub.Close()
		}
		close(p.stop)
	})
}
