package dispatcher

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Listener receives notifications. Invoked on the executor the listener
// was registered with, never on the orchestrator's goroutines.
type Listener func(n Notification)

// Dispatcher fans notifications out to registered (listener, executor)
// pairs.
type Dispatcher struct {
	mu     sync.Mutex
	regs   []*Registration
	logger *log.Logger
	closed bool
}

// Registration identifies one registered listener.
type Registration struct {
	listener Listener
	exec     Executor
	d        *Dispatcher
}

// New creates a dispatcher. A nil logger falls back to log.Default().
func New(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{logger: logger}
}

// Register adds a listener with its executor. The returned Registration
// removes the listener when closed.
func (d *Dispatcher) Register(l Listener, ex Executor) *Registration {
	reg := &Registration{listener: l, exec: ex, d: d}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return reg
	}
	d.regs = append(d.regs, reg)
	return reg
}

// Close removes the listener from its dispatcher. The listener may still
// observe notifications already submitted to its executor.
func (r *Registration) Close() {
	d := r.d
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, reg := range d.regs {
		if reg == r {
			d.regs = append(d.regs[:i], d.regs[i+1:]...)
			return
		}
	}
}

// Dispatch submits notifications to every registered listener, in order.
// Must not be called with the orchestrator's mutex held. A rejected
// submission drops the notification and logs it.
func (d *Dispatcher) Dispatch(ns ...Notification) {
	if len(ns) == 0 {
		return
	}
	// Holding the registry lock across submission keeps the relative
	// order of concurrent Dispatch calls stable per listener.
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	for _, n := range ns {
		for _, reg := range d.regs {
			n := n
			l := reg.listener
			if err := reg.exec.Execute(func() { l(n) }); err != nil {
				d.logger.Warn("dropping notification", "type", fmt.Sprintf("%T", n), "err", err)
			}
		}
	}
}

// Close drops all registrations. Subsequent Dispatch calls are no-ops.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.regs = nil
}
