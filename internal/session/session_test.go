package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rzbill/mqtap/internal/inbox"
	"github.com/rzbill/mqtap/internal/pipeline"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSessionDeliversInOrder(t *testing.T) {
	m := NewManager(Options{Capacity: 64, Policy: inbox.DropNewest})
	s := m.Begin(context.Background())
	defer m.End()

	var mu sync.Mutex
	var seen []uint64
	s.Bus().Subscribe(func(e pipeline.Event) {
		mu.Lock()
		seen = append(seen, e.Seq)
		mu.Unlock()
	}, nil)

	for i := 0; i < 10; i++ {
		if err := s.Offer(context.Background(), "t", nil, 0, false); err != nil {
			t.Fatalf("Offer: %v", err)
		}
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 10
	}, "events not delivered")

	mu.Lock()
	defer mu.Unlock()
	for i, seq := range seen {
		if seq != uint64(i+1) {
			t.Fatalf("seen[%d] = %d, want %d", i, seq, i+1)
		}
	}
}

func TestCountersAccountForDrops(t *testing.T) {
	// The hour delay stalls the pump after at most one delivery, so the
	// inbox fills and overflows deterministically.
	const capacity = 5000
	m := NewManager(Options{Capacity: capacity, Policy: inbox.DropNewest, Delay: time.Hour})
	s := m.Begin(context.Background())

	const offered = capacity + 2
	for i := 0; i < offered; i++ {
		_ = s.Offer(context.Background(), "t", nil, 0, false)
	}
	m.End()

	snap := s.Counters().Snapshot()
	if snap.Received != offered {
		t.Fatalf("received = %d, want %d", snap.Received, offered)
	}
	if snap.Enqueued+snap.Dropped != snap.Received {
		t.Fatalf("enqueued %d + dropped %d != received %d", snap.Enqueued, snap.Dropped, snap.Received)
	}
	if snap.Dropped == 0 {
		t.Fatal("expected at least one drop past capacity")
	}
	if snap.Delivered > snap.Enqueued || snap.Enqueued > snap.Received {
		t.Fatalf("counter ordering violated: %+v", snap)
	}
}

func TestCloseCompletesBus(t *testing.T) {
	m := NewManager(Options{Capacity: 8, Policy: inbox.DropNewest})
	s := m.Begin(context.Background())

	completed := make(chan struct{})
	s.Bus().Subscribe(func(pipeline.Event) {}, func() { close(completed) })

	m.End()
	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("bus did not complete on session end")
	}

	if err := s.Offer(context.Background(), "t", nil, 0, false); err != inbox.ErrCompleted {
		t.Fatalf("Offer after close = %v, want ErrCompleted", err)
	}
}

func TestManagerListenerOrdering(t *testing.T) {
	m := NewManager(Options{Capacity: 8, Policy: inbox.DropNewest})

	var mu sync.Mutex
	var events []string
	m.AddListener(listenerFuncs{
		started: func(s *Session) {
			mu.Lock()
			events = append(events, "start:"+s.ID())
			mu.Unlock()
		},
		ended: func(s *Session) {
			mu.Lock()
			events = append(events, "end:"+s.ID())
			mu.Unlock()
		},
	})

	first := m.Begin(context.Background())
	second := m.Begin(context.Background()) // implicitly ends first
	m.End()

	mu.Lock()
	defer mu.Unlock()
	want := []string{"start:" + first.ID(), "end:" + first.ID(), "start:" + second.ID(), "end:" + second.ID()}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events[%d] = %q, want %q", i, events[i], want[i])
		}
	}
	if m.Current() != nil {
		t.Fatal("current session not cleared")
	}
}

func TestWaitPolicyBlocksProducer(t *testing.T) {
	m := NewManager(Options{Capacity: 1, Policy: inbox.Wait, Delay: time.Hour})
	s := m.Begin(context.Background())
	defer m.End()

	// fill: first event is picked up by the pump, second occupies the slot
	_ = s.Offer(context.Background(), "a", nil, 0, false)
	waitFor(t, func() bool { return s.Counters().Delivered() >= 1 }, "pump idle")
	_ = s.Offer(context.Background(), "b", nil, 0, false)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Offer(ctx, "c", nil, 0, false); err != context.DeadlineExceeded {
		t.Fatalf("Offer on full Wait inbox = %v, want deadline exceeded", err)
	}
	if s.Counters().Dropped() != 0 {
		t.Fatal("Wait policy must not drop")
	}
}

type listenerFuncs struct {
	started func(*Session)
	ended   func(*Session)
}

func (l listenerFuncs) SessionStarted(s *Session) { l.started(s) }
func (l listenerFuncs) SessionEnded(s *Session)   { l.ended(s) }
