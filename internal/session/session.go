package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/rzbill/mqtap/internal/bus"
	"github.com/rzbill/mqtap/internal/inbox"
	"github.com/rzbill/mqtap/internal/pipeline"
	"github.com/rzbill/mqtap/internal/pump"
	"github.com/rzbill/mqtap/internal/stats"
	logpkg "github.com/rzbill/mqtap/pkg/log"
)

// Options configures the ingress side of every session a Manager starts.
type Options struct {
	// Capacity bounds the inbox; <= 0 selects the unbounded inbox.
	Capacity int
	// Policy is the overflow policy for a bounded inbox.
	Policy inbox.Policy
	// Delay throttles the pump after each published event.
	Delay time.Duration
	// Pipeline is handed to subscribers when the session starts so their
	// stores match the configured window and sink bounds.
	Pipeline pipeline.Config

	Logger logpkg.Logger
	Clock  clockz.Clock
}

// Session is one live tap: inbox, pump, bus, and counters with a shared
// lifetime.
type Session struct {
	id        string
	startedAt time.Time
	opts      Options

	in       *inbox.Inbox[pipeline.Event]
	out      *bus.Bus[pipeline.Event]
	counters *stats.Counters
	pump     *pump.Pump[pipeline.Event]

	seq    atomic.Uint64
	cancel context.CancelFunc
	once   sync.Once
}

func newSession(ctx context.Context, id string, opts Options) *Session {
	s := &Session{
		id:        id,
		startedAt: time.Now(),
		opts:      opts,
		out:       bus.New[pipeline.Event](),
		counters:  stats.NewCounters(),
	}
	if opts.Capacity > 0 {
		s.in = inbox.NewBounded[pipeline.Event](opts.Capacity, opts.Policy)
	} else {
		s.in = inbox.NewUnbounded[pipeline.Event]()
	}
	s.in.OnDrop(func(pipeline.Event) { s.counters.IncDropped() })

	s.pump = pump.New(s.in, s.out, s.counters, pump.Options{
		Delay:  opts.Delay,
		Logger: opts.Logger,
		Clock:  opts.Clock,
	})
	ctx, s.cancel = context.WithCancel(ctx)
	s.pump.Start(ctx)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// StartedAt returns the session start time.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Bus returns the multicast bus subscribers attach pipelines to.
func (s *Session) Bus() *bus.Bus[pipeline.Event] { return s.out }

// Counters returns the session's event counters.
func (s *Session) Counters() *stats.Counters { return s.counters }

// PipelineConfig returns the window and sink bounds subscribers should
// apply for this session.
func (s *Session) PipelineConfig() pipeline.Config { return s.opts.Pipeline }

// Buffered reports the number of events waiting in the inbox.
func (s *Session) Buffered() int { return s.in.Len() }

// Offer ingests one message from the source callback. It assigns the
// session-scoped sequence, counts it as received, and enqueues it. Under
// the Wait policy the caller blocks until a slot frees or ctx ends; under
// the drop policies the call never blocks and losses surface only through
// the dropped counter.
func (s *Session) Offer(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error {
	s.counters.IncReceived()
	e := pipeline.NewEvent(s.seq.Add(1), topic, payload, qos, retained, time.Now())
	if s.opts.Policy == inbox.Wait && s.opts.Capacity > 0 {
		if err := s.in.Put(ctx, e); err != nil {
			return err
		}
		s.counters.IncEnqueued()
		return nil
	}
	if s.in.TryPut(e) {
		s.counters.IncEnqueued()
		return nil
	}
	if s.in.Completed() {
		return inbox.ErrCompleted
	}
	// DropOldest accepts and evicts, so a false TryPut here means the
	// incoming event itself was dropped. Already counted via OnDrop.
	return nil
}

// Close tears the session down: cancel the pump, seal the inbox, join the
// loop, then complete the bus so subscribers flush. Idempotent.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		s.in.CompleteWriting()
		s.pump.Join()
		s.out.Complete()
	})
}
