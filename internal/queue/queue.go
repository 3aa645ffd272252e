// Package queue implements the two-slot gapless source queue: an ordered
// list of sources where only slot 0 may play, slot 1 is prepared one
// item ahead, and an audio-only successor can be handed the output
// without a stop/start gap.
//
// Queue is not self-locking. The session owns a single mutex shared
// with the command scheduler and holds it across every call here,
// including engine event routing. Notifications are emitted through the
// Emit hook and delivered by the session after the mutex is released.
package queue

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/seguekit/segue/internal/dispatcher"
	"github.com/seguekit/segue/internal/engine"
	"github.com/seguekit/segue/internal/scheduler"
	"github.com/seguekit/segue/internal/source"
	"github.com/seguekit/segue/internal/status"
)

// Config wires the queue to its collaborators.
type Config struct {
	// Factory constructs engines for sources as slots need preparing.
	// The session wraps it so every engine's callback routes back in.
	Factory engine.Factory

	// Emit queues a notification for delivery after the session
	// releases the shared mutex.
	Emit func(n dispatcher.Notification)

	// Resolve completes the scheduler's current task if it is waiting
	// for an engine event and match accepts its call type.
	Resolve func(match func(scheduler.Call) bool, code status.Code)

	Logger *log.Logger
}

// Queue holds the source list and cached playback properties.
type Queue struct {
	cfg    Config
	logger *log.Logger

	// sources[0] is current, sources[1] is next. Entries beyond index 1
	// stay unpopulated (no engine) until they shift into slot 1;
	// lookahead is exactly one slot deep.
	sources []*source.Source

	props   Properties
	looping bool
	// pendingRate is a rate change received while not playing, applied
	// right before the next start.
	pendingRate *engine.PlaybackRate

	lastPlayState source.PlayState
	lastBuffering source.Buffering
}

// New creates an empty queue.
func New(cfg Config) *Queue {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Queue{
		cfg:           cfg,
		logger:        logger,
		props:         DefaultProperties(),
		lastPlayState: source.Idle,
		lastBuffering: source.BufferingUnknown,
	}
}

// Current returns the slot-0 source, or nil.
func (q *Queue) Current() *source.Source {
	if len(q.sources) == 0 {
		return nil
	}
	return q.sources[0]
}

func (q *Queue) next() *source.Source {
	if len(q.sources) < 2 {
		return nil
	}
	return q.sources[1]
}

// PlayState returns the queue's playback state: the current source's,
// or Idle when the queue is empty.
func (q *Queue) PlayState() source.PlayState {
	if cur := q.Current(); cur != nil {
		return cur.PlayState()
	}
	return source.Idle
}

// InErrorState reports whether the playback state is terminal.
func (q *Queue) InErrorState() bool {
	return q.PlayState() == source.Errored
}

// SetFirst replaces slot 0, discarding the previous source's engine.
// The new engine is constructed here so data-source binding failures
// surface synchronously.
func (q *Queue) SetFirst(item engine.Item) error {
	if item.IsZero() {
		return status.New(status.BadValue, "set item")
	}
	eng, err := q.cfg.Factory(item)
	if err != nil {
		return &status.Error{Code: status.IOError, Op: "set item", Err: err}
	}

	src := source.New(item)
	src.AttachEngine(eng)
	q.props.applyTo(eng, q.logger)

	if len(q.sources) == 0 {
		q.sources = []*source.Source{src}
	} else {
		q.disarmNext()
		q.sources[0].Release()
		q.sources[0] = src
	}
	q.cfg.Emit(dispatcher.CurrentItemChanged{Item: &item})
	return nil
}

// SetNext replaces everything after slot 0 with the given items and
// starts preparing the new slot 1. Requires a current source.
func (q *Queue) SetNext(items ...engine.Item) error {
	if len(q.sources) == 0 {
		return status.New(status.InvalidOperation, "set next item")
	}
	if len(items) == 0 {
		return status.New(status.BadValue, "set next item")
	}
	for _, item := range items {
		if item.IsZero() {
			return status.New(status.BadValue, "set next item")
		}
	}

	q.disarmNext()
	for _, src := range q.sources[1:] {
		src.Release()
	}
	q.sources = q.sources[:1]
	for _, item := range items {
		q.sources = append(q.sources, source.New(item))
	}
	q.prepareLookahead()
	return nil
}

// PrepareAt prepares queue slot n. Only slots 0 and 1 are eligible, the
// slot must be untouched, and slot 1 waits until slot 0 has left Idle.
// Lookahead never reaches deeper than one slot.
func (q *Queue) PrepareAt(n int) error {
	if n != 0 && n != 1 {
		return nil
	}
	if n >= len(q.sources) {
		return nil
	}
	src := q.sources[n]
	if src.State() != source.Init {
		return nil
	}
	if n == 1 && q.sources[0].PlayState() == source.Idle {
		return nil
	}

	if src.Engine() == nil {
		eng, err := q.cfg.Factory(src.Item())
		if err != nil {
			return &status.Error{Code: status.IOError, Op: "prepare", Err: err}
		}
		src.AttachEngine(eng)
	}
	src.SetState(source.Preparing)
	return src.Engine().PrepareAsync()
}

// Prepare begins preparing the current source. A prepare command stays
// current in the scheduler until the engine reports Prepared.
func (q *Queue) Prepare() error {
	cur := q.Current()
	if cur == nil || cur.State() != source.Init {
		return status.New(status.InvalidOperation, "prepare")
	}
	return q.PrepareAt(0)
}

// Play starts the current source. Legal only once it is prepared; a
// repeated play while already playing is an idempotent no-op.
func (q *Queue) Play() error {
	cur := q.Current()
	if cur == nil || cur.State() != source.Prepared {
		return status.New(status.InvalidOperation, "play")
	}
	if cur.PlayState() == source.Playing {
		return nil
	}
	if err := q.startCurrent(cur); err != nil {
		return err
	}
	return nil
}

// Pause suspends the current source. Legal once prepared; pausing an
// already paused source is a no-op.
func (q *Queue) Pause() error {
	cur := q.Current()
	if cur == nil || cur.State() != source.Prepared {
		return status.New(status.InvalidOperation, "pause")
	}
	cur.SetPlayPending(false)
	if cur.PlayState() == source.Paused {
		return nil
	}
	if err := cur.Engine().Pause(); err != nil {
		return err
	}
	q.setPlayState(cur, source.Paused)
	return nil
}

// SeekTo requests a seek on the current source. The seek command stays
// current in the scheduler until the engine reports SeekComplete.
func (q *Queue) SeekTo(pos time.Duration, mode engine.SeekMode) error {
	cur := q.Current()
	if cur == nil || cur.State() != source.Prepared {
		return status.New(status.InvalidOperation, "seek")
	}
	if pos < 0 {
		return status.New(status.BadValue, "seek")
	}
	return cur.Engine().SeekTo(pos, mode)
}

// SkipToNext promotes slot 1. Fails when there is no next source. If the
// outgoing source was playing (or had a start pending), the new current
// starts as soon as it is able.
func (q *Queue) SkipToNext() error {
	if q.next() == nil {
		return status.New(status.InvalidOperation, "skip to next")
	}
	outgoing := q.Current()
	wasActive := outgoing.PlayState() == source.Playing || outgoing.PlayPending()
	q.moveToNext()
	if wasActive {
		q.startOrDefer(q.Current())
	}
	return nil
}

// SetLooping toggles looping of the current source. A looping source
// restarts in place on completion instead of advancing the queue.
func (q *Queue) SetLooping(loop bool) {
	q.looping = loop
}

// Looping reports whether loop-current is enabled.
func (q *Queue) Looping() bool { return q.looping }

// Reset releases every source and restores default properties. The
// queue returns to Idle with buffering unknown.
func (q *Queue) Reset() {
	for _, src := range q.sources {
		src.Release()
	}
	q.sources = nil
	q.props = DefaultProperties()
	q.looping = false
	q.pendingRate = nil
	q.emitPlayState(source.Idle)
	q.emitBuffering(source.BufferingUnknown, engine.Item{})
}

// ReleaseAll frees every engine without emitting notifications. Used on
// close.
func (q *Queue) ReleaseAll() {
	for _, src := range q.sources {
		src.Release()
	}
	q.sources = nil
}

// moveToNext removes and releases slot 0, shifts slot 1 into its place,
// replays cached properties onto the promoted engine, and advances the
// lookahead window.
func (q *Queue) moveToNext() {
	old := q.sources[0]
	old.Release()
	q.sources = q.sources[1:]

	cur := q.sources[0]
	cur.SetHandOffArmed(false)
	if cur.Engine() != nil {
		q.props.applyTo(cur.Engine(), q.logger)
	}
	item := cur.Item()
	q.cfg.Emit(dispatcher.CurrentItemChanged{Item: &item})
	if cur.PlayState() != q.lastPlayState {
		q.emitPlayState(cur.PlayState())
	}
	q.prepareLookahead()
}

// startOrDefer starts src if it is already prepared, otherwise records a
// pending start for when preparation finishes.
func (q *Queue) startOrDefer(src *source.Source) {
	if src.State() == source.Prepared {
		if err := q.startCurrent(src); err != nil {
			q.logger.Warn("starting promoted source failed", "uri", src.Item().URI, "err", err)
		}
		return
	}
	src.SetPlayPending(true)
}

// startCurrent applies any pending rate and starts the engine.
func (q *Queue) startCurrent(src *source.Source) error {
	if q.pendingRate != nil {
		if err := src.Engine().SetPlaybackRate(*q.pendingRate); err != nil {
			q.logger.Warn("applying pending playback rate failed", "err", err)
		}
		q.pendingRate = nil
	}
	if err := src.Engine().Start(); err != nil {
		return err
	}
	src.SetPlayPending(false)
	q.setPlayState(src, source.Playing)
	return nil
}

// prepareLookahead tries to prepare slot 1 and fails the slot if its
// engine cannot be built or primed.
func (q *Queue) prepareLookahead() {
	if err := q.PrepareAt(1); err != nil {
		src := q.next()
		if src == nil {
			return
		}
		q.logger.Warn("preparing next item failed", "uri", src.Item().URI, "err", err)
		src.Fail()
		q.cfg.Emit(dispatcher.PlaybackError{
			Item:   src.Item(),
			Status: status.FromError(err),
		})
	}
}

// disarmNext unregisters slot 1 from the current engine's hand-off.
func (q *Queue) disarmNext() {
	nxt := q.next()
	if nxt == nil || !nxt.HandOffArmed() {
		return
	}
	if cur := q.Current(); cur != nil && cur.Engine() != nil {
		cur.Engine().ClearNext()
	}
	nxt.SetHandOffArmed(false)
}

// setPlayState records src's playback state and, if src is current,
// notifies exactly once per distinct new state.
func (q *Queue) setPlayState(src *source.Source, ps source.PlayState) {
	src.SetPlayState(ps)
	if src == q.Current() && ps != q.lastPlayState {
		q.emitPlayState(ps)
	}
}

func (q *Queue) emitPlayState(ps source.PlayState) {
	if ps == q.lastPlayState {
		return
	}
	q.lastPlayState = ps
	q.cfg.Emit(dispatcher.PlayStateChanged{State: ps})
}

// setBuffering records src's buffer health and, if src is current,
// notifies on distinct changes.
func (q *Queue) setBuffering(src *source.Source, b source.Buffering) {
	src.SetBuffering(b)
	if src == q.Current() {
		q.emitBuffering(b, src.Item())
	}
}

func (q *Queue) emitBuffering(b source.Buffering, item engine.Item) {
	if b == q.lastBuffering {
		return
	}
	q.lastBuffering = b
	q.cfg.Emit(dispatcher.BufferingChanged{State: b, Item: item})
}

// resolve forwards to the scheduler resolution hook.
func (q *Queue) resolve(call scheduler.Call, code status.Code) {
	q.cfg.Resolve(func(c scheduler.Call) bool { return c == call }, code)
}
