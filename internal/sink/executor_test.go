package sink

import (
	"sync"
	"testing"
	"time"
)

func TestExecutorRunsTasksInOrder(t *testing.T) {
	e := NewExecutor(16, nil)
	var mu sync.Mutex
	var got []int
	for i := 1; i <= 10; i++ {
		i := i
		if !e.Post(func() { mu.Lock(); got = append(got, i); mu.Unlock() }) {
			t.Fatalf("Post(%d) rejected", i)
		}
	}
	e.Close()
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 10 {
		t.Fatalf("ran %d tasks, want 10", len(got))
	}
	for i, v := range got {
		if v != i+1 {
			t.Fatalf("got[%d] = %d, want %d", i, v, i+1)
		}
	}
}

func TestExecutorPostAfterClose(t *testing.T) {
	e := NewExecutor(4, nil)
	e.Close()
	if e.Post(func() {}) {
		t.Fatal("Post should reject after Close")
	}
}

func TestExecutorSurvivesPanickingTask(t *testing.T) {
	e := NewExecutor(4, nil)
	ran := make(chan struct{})
	e.Post(func() { panic("commit fault") })
	e.Post(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("executor stopped after panicking task")
	}
	e.Close()
}

func TestExecutorCloseIsIdempotent(t *testing.T) {
	e := NewExecutor(4, nil)
	e.Close()
	e.Close()
}
