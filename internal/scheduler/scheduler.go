// Package scheduler serializes client commands into a strict FIFO task
// queue. At most one task executes at a time; tasks that depend on an
// asynchronous engine event stay current until the event resolves them.
//
// There is deliberately no timeout on a waiting task: an engine that
// never answers leaves the scheduler parked. ClearPending still discards
// commands that have not started.
package scheduler

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/seguekit/segue/internal/status"
)

// Task is one serialized client command.
type Task struct {
	ID   uuid.UUID
	Call Call
	// Label travels with marker tasks and is echoed on completion.
	Label string

	op        func() error
	needsWait bool
	skip      bool
}

// NewTask builds a task for a client command. needsWait marks commands
// whose completion is deferred until a matching engine event arrives.
func NewTask(call Call, needsWait bool, op func() error) *Task {
	return &Task{
		ID:        uuid.New(),
		Call:      call,
		op:        op,
		needsWait: needsWait,
	}
}

// Hooks are the scheduler's connections to the rest of the orchestrator.
type Hooks struct {
	// InErrorState reports whether the queue's playback state is the
	// terminal error state. Called with the shared mutex held.
	InErrorState func() bool
	// OnComplete receives every finished task exactly once, with its
	// final status. Called without the mutex held.
	OnComplete func(t *Task, code status.Code)
}

// Scheduler runs tasks one at a time on a dedicated worker goroutine.
type Scheduler struct {
	mu     *sync.Mutex // shared with the source queue
	hooks  Hooks
	logger *log.Logger

	pending []*Task
	current *Task
	closed  bool

	wake chan struct{}
	done chan struct{}
}

// New creates a scheduler sharing mu with the source queue and starts
// its worker. A nil logger falls back to log.Default().
func New(mu *sync.Mutex, hooks Hooks, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	s := &Scheduler{
		mu:     mu,
		hooks:  hooks,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.loop()
	return s
}

// Enqueue appends a task. Consecutive pending seeks coalesce: an
// unstarted seek at the tail is marked skipped before the new one is
// appended, so only the most recent seek executes.
func (s *Scheduler) Enqueue(t *Task) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if t.Call == CallSeekTo && len(s.pending) > 0 {
		if tail := s.pending[len(s.pending)-1]; tail.Call == CallSeekTo {
			tail.skip = true
		}
	}
	s.pending = append(s.pending, t)
	s.mu.Unlock()
	s.kick()
}

// ClearPending discards tasks that have not started. The currently
// running (or waiting) task is untouched.
func (s *Scheduler) ClearPending() {
	s.mu.Lock()
	n := len(s.pending)
	s.pending = nil
	s.mu.Unlock()
	if n > 0 {
		s.logger.Debug("cleared pending commands", "count", n)
	}
}

// ResolveWaitingLocked completes the current task if it is waiting for
// an engine event and match accepts its call type. The caller must hold
// the shared mutex and, after releasing it, pass the returned task to
// Finish. Returns nil if nothing matched.
func (s *Scheduler) ResolveWaitingLocked(match func(Call) bool) *Task {
	if s.current == nil || !s.current.needsWait || !match(s.current.Call) {
		return nil
	}
	t := s.current
	s.current = nil
	return t
}

// Finish reports a task detached by ResolveWaitingLocked. Must be called
// without the shared mutex held.
func (s *Scheduler) Finish(t *Task, code status.Code) {
	s.complete(t, code)
	s.kick()
}

// Close stops the worker. Pending tasks are discarded without
// completion notifications.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pending = nil
	s.mu.Unlock()
	s.kick()
	<-s.done
}

func (s *Scheduler) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop() {
	defer close(s.done)
	for range s.wake {
		for {
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			if s.current != nil || len(s.pending) == 0 {
				s.mu.Unlock()
				break
			}
			t := s.pending[0]
			s.pending = s.pending[1:]
			s.current = t
			s.mu.Unlock()
			s.run(t)
		}
	}
}

func (s *Scheduler) run(t *Task) {
	if t.skip {
		s.detachAndComplete(t, status.Skipped)
		return
	}

	if !t.Call.recoveryCall() && s.hooks.InErrorState != nil {
		s.mu.Lock()
		rejected := s.hooks.InErrorState()
		s.mu.Unlock()
		if rejected {
			s.detachAndComplete(t, status.InvalidOperation)
			return
		}
	}

	code := s.invoke(t)

	s.mu.Lock()
	if s.current != t {
		// An engine event resolved the task while the operation was
		// still unwinding; Finish already ran for it.
		s.mu.Unlock()
		return
	}
	if t.needsWait && !code.IsError() {
		// Completion is deferred until the matching engine event
		// arrives while this task is still current.
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.mu.Unlock()

	s.complete(t, code)
	s.kick()
}

// invoke runs the task operation, catching panics and mapping errors to
// status codes at the scheduler boundary.
func (s *Scheduler) invoke(t *Task) (code status.Code) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked", "call", t.Call, "panic", fmt.Sprint(r))
			code = status.Unknown
		}
	}()
	return status.FromError(t.op())
}

func (s *Scheduler) detachAndComplete(t *Task, code status.Code) {
	s.mu.Lock()
	if s.current == t {
		s.current = nil
	}
	s.mu.Unlock()
	s.complete(t, code)
	s.kick()
}

func (s *Scheduler) complete(t *Task, code status.Code) {
	s.logger.Debug("task complete", "id", t.ID, "call", t.Call, "status", code)
	if s.hooks.OnComplete != nil {
		s.hooks.OnComplete(t, code)
	}
}
