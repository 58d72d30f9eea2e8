package tap

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/rzbill/mqtap/internal/capture"
	"github.com/rzbill/mqtap/internal/pipeline"
	"github.com/rzbill/mqtap/internal/session"
	"github.com/rzbill/mqtap/internal/sink"
	pebblestore "github.com/rzbill/mqtap/internal/storage/pebble"
	"github.com/rzbill/mqtap/internal/topictree"
	logpkg "github.com/rzbill/mqtap/pkg/log"
)

// StoredMessage is one live-store entry, shaped for JSON responses.
type StoredMessage struct {
	Seq        uint64    `json:"seq"`
	Topic      string    `json:"topic"`
	Payload    []byte    `json:"payload,omitempty"`
	QoS        byte      `json:"qos"`
	Retained   bool      `json:"retained,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Options configures the tap views.
type Options struct {
	// TreeRetain is the number of recent payloads kept per topic node.
	TreeRetain int
	// QueueLen is the sink executor queue length.
	QueueLen int

	// CaptureDB enables the durable recorder when non-nil.
	CaptureDB *pebblestore.DB
	// CaptureMaxBytes bounds a session's stored size; 0 disables trimming.
	CaptureMaxBytes int64
	// CaptureTrimBatchKeys bounds keys per trim commit.
	CaptureTrimBatchKeys int

	Logger logpkg.Logger
	Clock  clockz.Clock
}

// Tap owns the per-view pipelines and their shared sink executor. It
// implements session.Listener.
type Tap struct {
	opts   Options
	exec   *sink.Executor
	store  *sink.Store[StoredMessage]
	tree   *topictree.Tree
	logger logpkg.Logger

	mu     sync.Mutex
	pipes  []interface{ Close() }
	capLog *capture.Log
}

// New builds the tap views. Store bounds come from cfg so they match what
// sessions will announce to subscribers.
func New(opts Options, cfg pipeline.Config) *Tap {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	logger = logger.With(logpkg.Component("tap"))
	return &Tap{
		opts:   opts,
		exec:   sink.NewExecutor(opts.QueueLen, logger),
		store:  sink.NewStore[StoredMessage](cfg.MaxSinkSize, cfg.TrimBatch),
		tree:   topictree.New(opts.TreeRetain),
		logger: logger,
	}
}

// SessionStarted resets the views and attaches one pipeline per view to
// the session bus.
func (t *Tap) SessionStarted(s *session.Session) {
	t.exec.Post(func() {
		t.store.Clear()
		t.tree.Clear()
	})

	cfg := s.PipelineConfig()
	opts := pipeline.Options{Window: cfg.Window, Clock: t.opts.Clock}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.pipes = append(t.pipes, pipeline.Attach(s.Bus(), t.exec, opts,
		func(e pipeline.Event) (StoredMessage, bool) {
			return StoredMessage{
				Seq:        e.Seq,
				Topic:      e.Topic,
				Payload:    e.Payload,
				QoS:        e.QoS,
				Retained:   e.Retained,
				ReceivedAt: e.ReceivedAt,
			}, true
		},
		func(batch []StoredMessage) { t.store.AppendTrim(batch) }))

	t.pipes = append(t.pipes, pipeline.Attach(s.Bus(), t.exec, opts,
		func(e pipeline.Event) (topictree.Op, bool) {
			return t.tree.Stage(e.Segments, topictree.Message{
				Seq:        e.Seq,
				Payload:    e.Payload,
				QoS:        e.QoS,
				Retained:   e.Retained,
				ReceivedAt: e.ReceivedAt,
			}), true
		},
		func(batch []topictree.Op) { t.tree.Apply(batch) }))

	if t.opts.CaptureDB != nil {
		log, err := capture.OpenLog(t.opts.CaptureDB, s.ID())
		if err != nil {
			t.logger.Error("capture open failed", logpkg.Str("session", s.ID()), logpkg.Err(err))
			return
		}
		t.capLog = log
		t.pipes = append(t.pipes, pipeline.Attach(s.Bus(), t.exec, opts,
			func(e pipeline.Event) (capture.Record, bool) {
				return capture.Record{
					Topic:    e.Topic,
					Payload:  e.Payload,
					QoS:      e.QoS,
					Retained: e.Retained,
					At:       e.ReceivedAt,
				}, true
			},
			func(batch []capture.Record) { t.record(log, batch) }))
	}
}

// record runs on the sink executor: one append per window, then retention.
func (t *Tap) record(log *capture.Log, batch []capture.Record) {
	ctx := context.Background()
	if _, err := log.Append(ctx, batch); err != nil {
		t.logger.Error("capture append failed", logpkg.Err(err))
		return
	}
	if t.opts.CaptureMaxBytes > 0 {
		if _, err := log.TrimToMaxBytes(ctx, t.opts.CaptureMaxBytes, t.opts.CaptureTrimBatchKeys, 0); err != nil {
			t.logger.Error("capture trim failed", logpkg.Err(err))
		}
	}
}

// SessionEnded waits for the session's pipelines to flush their final
// windows.
func (t *Tap) SessionEnded(s *session.Session) {
	t.mu.Lock()
	pipes := t.pipes
	t.pipes = nil
	t.mu.Unlock()
	for _, p := range pipes {
		p.Close()
	}
}

// Messages returns up to n of the most recent live-store entries.
func (t *Tap) Messages(n int) []StoredMessage { return t.store.Tail(n) }

// MessageCount reports the live-store size.
func (t *Tap) MessageCount() int { return t.store.Len() }

// TreeSnapshot copies the topic tree.
func (t *Tap) TreeSnapshot() *topictree.NodeSnapshot { return t.tree.Snapshot() }

// TreeNodeCount reports the number of topic nodes.
func (t *Tap) TreeNodeCount() int64 { return t.tree.NodeCount() }

// CaptureLog returns the recorder log for the current session, nil when
// capture is disabled or no session has started.
func (t *Tap) CaptureLog() *capture.Log {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.capLog
}

// OnStoreChange registers the live store's structural-change callback.
// Must be set before the first session.
func (t *Tap) OnStoreChange(fn func(added, evicted int)) { t.store.OnChange(fn) }

// Close flushes and stops the sink executor. Call after the last session
// has ended.
func (t *Tap) Close() {
	t.SessionEnded(nil)
	t.exec.Close()
}
