package bus

import (
	"sync"
	"testing"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New[int]()
	var a1, a2 []int
	s1 := b.Subscribe(func(v int) { a1 = append(a1, v) }, nil)
	s2 := b.Subscribe(func(v int) { a2 = append(a2, v) }, nil)
	defer s1.Close()
	defer s2.Close()

	for i := 1; i <= 5; i++ {
		b.Publish(i)
	}
	for _, got := range [][]int{a1, a2} {
		if len(got) != 5 {
			t.Fatalf("subscriber saw %d values, want 5", len(got))
		}
		for i, v := range got {
			if v != i+1 {
				t.Fatalf("out of order: got[%d] = %d", i, v)
			}
		}
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	b := New[string]()
	b.Publish("nobody home") // must not panic or block
	if b.Len() != 0 {
		t.Fatalf("Len = %d, want 0", b.Len())
	}
}

func TestCloseDetaches(t *testing.T) {
	b := New[int]()
	n := 0
	s := b.Subscribe(func(int) { n++ }, nil)
	b.Publish(1)
	s.Close()
	b.Publish(2)
	if n != 1 {
		t.Fatalf("handler called %d times, want 1", n)
	}
	if b.Len() != 0 {
		t.Fatalf("Len = %d after close, want 0", b.Len())
	}
}

func TestCompleteFiresCallbacksOnce(t *testing.T) {
	b := New[int]()
	completions := 0
	b.Subscribe(func(int) {}, func() { completions++ })
	b.Complete()
	b.Complete()
	if completions != 1 {
		t.Fatalf("onComplete fired %d times, want 1", completions)
	}
	// late subscribers complete immediately
	late := 0
	b.Subscribe(func(int) {}, func() { late++ })
	if late != 1 {
		t.Fatalf("late onComplete fired %d times, want 1", late)
	}
}

func TestCloseIdempotentAfterComplete(t *testing.T) {
	b := New[int]()
	completions := 0
	s := b.Subscribe(func(int) {}, func() { completions++ })
	b.Complete()
	s.Close()
	if completions != 1 {
		t.Fatalf("onComplete fired %d times, want 1", completions)
	}
}

func TestSubscribeConcurrentWithPublish(t *testing.T) {
	b := New[int]()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				b.Publish(1)
			}
		}
	}()
	for i := 0; i < 100; i++ {
		var mu sync.Mutex
		n := 0
		s := b.Subscribe(func(int) { mu.Lock(); n++; mu.Unlock() }, nil)
		s.Close()
	}
	close(stop)
	wg.Wait()
}
