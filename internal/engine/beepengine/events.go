package beepengine

import (
	"sync"

	"github.com/seguekit/segue/internal/engine"
)

// eventQueue is an unbounded ordered event buffer. Producers never
// block, so events can be emitted from under the speaker lock; a single
// pump goroutine drains into the callback, preserving order.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []engine.Event
	closed bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *eventQueue) push(ev engine.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, ev)
	q.cond.Signal()
}

// pop blocks until an event is available or the queue is closed.
func (q *eventQueue) pop() (engine.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	ev := q.items[0]
	q.items = q.items[1:]
	return ev, true
}

func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.mu.Unlock()
	q.cond.Broadcast()
}

// pump drains the queue into cb until the queue closes.
func (e *Engine) pump() {
	for {
		ev, ok := e.events.pop()
		if !ok {
			return
		}
		e.mu.Lock()
		cb := e.cb
		e.mu.Unlock()
		if cb != nil {
			cb(ev)
		}
	}
}

func (e *Engine) emit(ev engine.Event) {
	e.events.push(ev)
}
