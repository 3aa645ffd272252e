package beepengine

import (
	"sync"

	"github.com/gopxl/beep/v2"

	"github.com/seguekit/segue/internal/engine"
	"github.com/seguekit/segue/internal/status"
)

// handoffStreamer streams the current source and, when it drains,
// splices in a successor without returning to the mixer, so no silent
// frame is inserted between the two.
//
// Stream is only ever called by the speaker goroutine; the mutex guards
// next/onSwitch against concurrent arming and disarming.
type handoffStreamer struct {
	mu       sync.Mutex
	current  beep.Streamer
	next     func() beep.Streamer
	onSwitch func()
}

func newHandoffStreamer(current beep.Streamer) *handoffStreamer {
	return &handoffStreamer{current: current}
}

func (h *handoffStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) {
		m, sok := h.current.Stream(samples[n:])
		n += m
		if sok {
			continue
		}
		h.mu.Lock()
		next, onSwitch := h.next, h.onSwitch
		h.next, h.onSwitch = nil, nil
		h.mu.Unlock()
		if next == nil {
			return n, n > 0
		}
		// The switch callback runs under the speaker lock; it must not
		// call back into the speaker.
		h.current = next()
		if onSwitch != nil {
			onSwitch()
		}
	}
	return n, true
}

func (h *handoffStreamer) Err() error { return nil }

func (h *handoffStreamer) arm(next func() beep.Streamer, onSwitch func()) {
	h.mu.Lock()
	h.next, h.onSwitch = next, onSwitch
	h.mu.Unlock()
}

func (h *handoffStreamer) clearNext() {
	h.mu.Lock()
	h.next, h.onSwitch = nil, nil
	h.mu.Unlock()
}

// SetNext registers the engine whose samples should follow this one
// back to back. If playback has not started yet the registration is
// kept pending and armed when the chain is built.
func (e *Engine) SetNext(next engine.Interface) error {
	ne, ok := next.(*Engine)
	if !ok {
		return status.New(status.BadValue, "engine: next is not a beep engine")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lc != lcPrepared {
		return status.New(status.InvalidOperation, "engine: set next before prepared")
	}
	if e.handoff == nil {
		e.pendingNext = ne
		return nil
	}
	e.armLocked(ne)
	return nil
}

func (e *Engine) ClearNext() {
	e.mu.Lock()
	e.pendingNext = nil
	handoff := e.handoff
	e.mu.Unlock()
	if handoff != nil {
		handoff.clearNext()
	}
}

// armLocked wires the successor into the live hand-off streamer.
// Called with e.mu held; the closures run later on other goroutines and
// take their own locks.
func (e *Engine) armLocked(ne *Engine) {
	h := e.handoff
	provider := func() beep.Streamer {
		ne.mu.Lock()
		src := beep.Streamer(ne.streamer)
		format := ne.format
		ne.mu.Unlock()
		if format.SampleRate != speakerRate {
			src = beep.Resample(resampleQuality, format.SampleRate, speakerRate, src)
		}
		return src
	}
	donor := e
	onSwitch := func() {
		donor.mu.Lock()
		ctrl, vol, rs, owner := donor.ctrl, donor.volume, donor.resampler, donor.owner
		donor.handedOff = true
		donor.playing = false
		donor.mu.Unlock()

		ne.mu.Lock()
		ne.ctrl, ne.volume, ne.resampler, ne.handoff, ne.owner = ctrl, vol, rs, h, owner
		ne.playing = true
		ne.mu.Unlock()
		owner.Store(ne)

		donor.emit(engine.Completion{})
		ne.emit(engine.Info{Code: engine.InfoStartedAsNext})
	}
	h.arm(provider, onSwitch)
}
