package dispatcher

import (
	"errors"
	"sync"
)

// ErrExecutorClosed is returned by an executor that is shutting down.
var ErrExecutorClosed = errors.New("executor closed")

// ErrExecutorSaturated is returned when an executor's queue is full.
var ErrExecutorSaturated = errors.New("executor queue full")

// Executor runs listener callbacks. Implementations decide on which
// goroutine and may reject work by returning an error; rejected work is
// dropped by the dispatcher, never retried.
type Executor interface {
	Execute(fn func()) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(fn func()) error

func (f ExecutorFunc) Execute(fn func()) error { return f(fn) }

// Direct runs callbacks inline on the dispatching goroutine. Listeners
// registered with it must not call back into the orchestrator.
func Direct() Executor {
	return ExecutorFunc(func(fn func()) error {
		fn()
		return nil
	})
}

const serialQueueSize = 64

// Serial is an executor backed by a single goroutine, preserving
// submission order. The default choice for listeners.
type Serial struct {
	mu     sync.Mutex
	work   chan func()
	closed bool
	done   chan struct{}
}

// NewSerial creates and starts a serial executor.
func NewSerial() *Serial {
	s := &Serial{
		work: make(chan func(), serialQueueSize),
		done: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Serial) loop() {
	defer close(s.done)
	for fn := range s.work {
		fn()
	}
}

// Execute queues fn. Returns ErrExecutorClosed after Close, or
// ErrExecutorSaturated when the queue is full.
func (s *Serial) Execute(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrExecutorClosed
	}
	select {
	case s.work <- fn:
		return nil
	default:
		return ErrExecutorSaturated
	}
}

// Close stops accepting work and waits for queued callbacks to finish.
func (s *Serial) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.work)
	s.mu.Unlock()
	<-s.done
}
