// Package source ties one queued media item to its dedicated engine
// instance and playback state. Sources are owned by the queue; none of
// the methods here lock, the queue's mutex guards all access.
package source

import (
	"github.com/seguekit/segue/internal/engine"
)

// Source is one queue entry: a media descriptor, a lazily created engine,
// and the state tracked for it.
type Source struct {
	item engine.Item
	eng  engine.Interface

	state       State
	playState   PlayState
	buffering   Buffering
	bufferedPct int

	playPending  bool
	handOffArmed bool
	released     bool
}

// New creates a source for an item. The engine is attached later, when
// the slot first needs preparing.
func New(item engine.Item) *Source {
	return &Source{item: item}
}

// Item returns the media descriptor.
func (s *Source) Item() engine.Item { return s.item }

// Engine returns the attached engine, or nil before AttachEngine.
func (s *Source) Engine() engine.Interface { return s.eng }

// AttachEngine hands the source its engine instance.
func (s *Source) AttachEngine(e engine.Interface) { s.eng = e }

// Owns reports whether e is this source's engine instance. Event routing
// uses identity, not equality, so events from released engines cannot be
// confused with live ones.
func (s *Source) Owns(e engine.Interface) bool {
	return s.eng != nil && s.eng == e
}

// State returns the preparation state.
func (s *Source) State() State { return s.state }

// SetState moves the preparation state machine. Failed is terminal.
func (s *Source) SetState(st State) {
	if s.state == Failed {
		return
	}
	s.state = st
}

// PlayState returns the playback state.
func (s *Source) PlayState() PlayState { return s.playState }

// SetPlayState moves the playback state machine. Errored is terminal.
func (s *Source) SetPlayState(ps PlayState) {
	if s.playState == Errored {
		return
	}
	s.playState = ps
}

// Buffering returns the buffer health.
func (s *Source) Buffering() Buffering { return s.buffering }

// SetBuffering records the buffer health.
func (s *Source) SetBuffering(b Buffering) { s.buffering = b }

// BufferedPercent returns the buffered share of the item, 0-100.
func (s *Source) BufferedPercent() int { return s.bufferedPct }

// SetBufferedPercent records buffered progress.
func (s *Source) SetBufferedPercent(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	s.bufferedPct = pct
}

// PlayPending reports whether a start was requested before the source
// finished preparing.
func (s *Source) PlayPending() bool { return s.playPending }

// SetPlayPending records a deferred start request.
func (s *Source) SetPlayPending(p bool) { s.playPending = p }

// HandOffArmed reports whether this source's engine has been registered
// with the prior source's engine for seamless transition.
func (s *Source) HandOffArmed() bool { return s.handOffArmed }

// SetHandOffArmed records the arming state.
func (s *Source) SetHandOffArmed(armed bool) { s.handOffArmed = armed }

// Fail moves both state machines to their terminal error states.
func (s *Source) Fail() {
	s.state = Failed
	s.playState = Errored
	s.buffering = BufferingUnknown
}

// Release frees the engine exactly once. Safe to call on a source that
// never got an engine.
func (s *Source) Release() {
	if s.released {
		return
	}
	s.released = true
	if s.eng != nil {
		s.eng.Release()
	}
}

// Released reports whether Release has run.
func (s *Source) Released() bool { return s.released }
