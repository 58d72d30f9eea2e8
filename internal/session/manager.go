package session

import (
	"context"
	"sync"

	"github.com/rzbill/mqtap/pkg/id"
	logpkg "github.com/rzbill/mqtap/pkg/log"
)

// Listener observes session lifecycle. Started is where subscribers attach
// their pipelines to the session bus; Ended fires after the session has
// fully closed and its subscribers have flushed.
type Listener interface {
	SessionStarted(s *Session)
	SessionEnded(s *Session)
}

// Manager starts and stops sessions as the source connects and
// disconnects. At most one session is live at a time.
type Manager struct {
	mu        sync.Mutex
	opts      Options
	gen       *id.Generator
	cur       *Session
	listeners []Listener
	logger    logpkg.Logger
}

// NewManager returns a Manager applying opts to every session it starts.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	logger = logger.With(logpkg.Component("session"))
	opts.Logger = logger
	return &Manager{opts: opts, gen: id.NewGenerator(), logger: logger}
}

// AddListener registers l for lifecycle notifications. Must be called
// before Begin.
func (m *Manager) AddListener(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Begin closes any live session and starts a new one. Listeners see Ended
// for the old session before Started for the new one.
func (m *Manager) Begin(ctx context.Context) *Session {
	m.End()

	m.mu.Lock()
	s := newSession(ctx, m.gen.Next().String(), m.opts)
	m.cur = s
	listeners := m.listeners
	m.mu.Unlock()

	m.logger.Info("session started",
		logpkg.Str("session", s.ID()),
		logpkg.Int("capacity", m.opts.Capacity),
		logpkg.Str("policy", m.opts.Policy.String()))
	for _, l := range listeners {
		l.SessionStarted(s)
	}
	return s
}

// End closes the live session, if any, and notifies listeners.
func (m *Manager) End() {
	m.mu.Lock()
	s := m.cur
	m.cur = nil
	listeners := m.listeners
	m.mu.Unlock()
	if s == nil {
		return
	}

	s.Close()
	snap := s.Counters().Snapshot()
	m.logger.Info("session ended",
		logpkg.Str("session", s.ID()),
		logpkg.Uint64("received", snap.Received),
		logpkg.Uint64("delivered", snap.Delivered),
		logpkg.Uint64("dropped", snap.Dropped))
	for _, l := range listeners {
		l.SessionEnded(s)
	}
}

// Current returns the live session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}
