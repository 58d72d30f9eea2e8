package sink

import (
	"sync"

	logpkg "github.com/rzbill/mqtap/pkg/log"
)

// Executor serializes sink mutations onto one goroutine. Post suspends
// when the queue is full, which is the marshal-stage backpressure point.
type Executor struct {
	mu     sync.Mutex
	tasks  chan func()
	closed bool
	done   chan struct{}
	logger logpkg.Logger
}

// NewExecutor starts the executor goroutine with the given queue length.
func NewExecutor(queueLen int, logger logpkg.Logger) *Executor {
	if queueLen <= 0 {
		queueLen = 256
	}
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel)).With(logpkg.Component("sink"))
	}
	e := &Executor{tasks: make(chan func(), queueLen), done: make(chan struct{}), logger: logger}
	go e.run()
	return e
}

func (e *Executor) run() {
	defer close(e.done)
	for task := range e.tasks {
		e.invoke(task)
	}
}

// invoke confines a commit fault to the one task so a failing subscriber
// does not take down the executor shared by all of them.
func (e *Executor) invoke(task func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("sink.commit recovered", logpkg.Any("panic", r))
		}
	}()
	task()
}

// Post enqueues task for execution on the sink goroutine. It returns false
// after Close. Post blocks while the queue is full.
func (e *Executor) Post(task func()) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	// Holding the lock during send keeps Close from closing the channel
	// mid-send; queue capacity keeps the critical section short.
	e.tasks <- task
	e.mu.Unlock()
	return true
}

// Close stops accepting tasks, drains the queue, and waits for the
// executor goroutine to exit.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		<-e.done
		return
	}
	e.closed = true
	close(e.tasks)
	e.mu.Unlock()
	<-e.done
}
