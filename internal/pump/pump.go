package pump

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/rzbill/mqtap/internal/bus"
	"github.com/rzbill/mqtap/internal/inbox"
	"github.com/rzbill/mqtap/internal/stats"
	logpkg "github.com/rzbill/mqtap/pkg/log"
)

// Options tunes a Pump.
type Options struct {
	// Delay pauses after each published item, throttling republication
	// independent of drain rate. Zero disables pacing.
	Delay time.Duration
	// Logger receives loop faults. Nil means a default logger.
	Logger logpkg.Logger
	// Clock drives the pacing delay; nil means the real clock.
	Clock clockz.Clock
}

// Pump drains an inbox onto a bus from a single dedicated goroutine.
type Pump[T any] struct {
	in       *inbox.Inbox[T]
	out      *bus.Bus[T]
	counters *stats.Counters
	opts     Options
	done     chan struct{}
}

// New wires a pump between in and out. Start must be called to begin
// draining.
func New[T any](in *inbox.Inbox[T], out *bus.Bus[T], counters *stats.Counters, opts Options) *Pump[T] {
	if opts.Logger == nil {
		opts.Logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel)).With(logpkg.Component("pump"))
	}
	if opts.Clock == nil {
		opts.Clock = clockz.RealClock
	}
	return &Pump[T]{in: in, out: out, counters: counters, opts: opts, done: make(chan struct{})}
}

// Start launches the consumer loop goroutine. The loop exits when ctx is
// cancelled or the inbox is completed and drained; buffered-but-undelivered
// items are discarded with the inbox on cancellation.
func (p *Pump[T]) Start(ctx context.Context) {
	go p.run(ctx)
}

// Done is closed when the loop has terminated.
func (p *Pump[T]) Done() <-chan struct{} { return p.done }

// Join blocks until the loop has terminated.
func (p *Pump[T]) Join() { <-p.done }

func (p *Pump[T]) run(ctx context.Context) {
	defer close(p.done)
	for p.in.WaitReadable(ctx) {
		for {
			if ctx.Err() != nil {
				return
			}
			v, ok := p.in.TryGet()
			if !ok {
				break
			}
			p.counters.IncDelivered()
			p.publish(v)
			if p.opts.Delay > 0 && !p.sleep(ctx, p.opts.Delay) {
				return
			}
		}
	}
}

// publish delivers one item to the bus, confining handler panics to the
// loop so they never reach the producer.
func (p *Pump[T]) publish(v T) {
	defer func() {
		if r := recover(); r != nil {
			p.opts.Logger.Error("pump.publish recovered", logpkg.Any("panic", r))
		}
	}()
	p.out.Publish(v)
}

func (p *Pump[T]) sleep(ctx context.Context, d time.Duration) bool {
	t := p.opts.Clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C():
		return true
	case <-ctx.Done():
		return false
	}
}
