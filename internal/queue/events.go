package queue

import (
	"github.com/seguekit/segue/internal/dispatcher"
	"github.com/seguekit/segue/internal/engine"
	"github.com/seguekit/segue/internal/scheduler"
	"github.com/seguekit/segue/internal/source"
	"github.com/seguekit/segue/internal/status"
)

// HandleEvent routes one engine event to the owning source. Events from
// engines no longer in the queue are stale and dropped without effect.
// The session holds the shared mutex across this call.
func (q *Queue) HandleEvent(e engine.Interface, ev engine.Event) {
	src := q.findByEngine(e)
	if src == nil {
		q.logger.Debug("dropping stale engine event")
		return
	}

	switch ev := ev.(type) {
	case engine.Prepared:
		q.onPrepared(src)
	case engine.Completion:
		q.onCompletion(src)
	case engine.ErrorEvent:
		q.onError(src, ev)
	case engine.SeekComplete:
		q.onSeekComplete(src, ev)
	case engine.BufferingUpdate:
		q.onBufferingUpdate(src, ev)
	case engine.Info:
		q.onInfo(src, ev)
	case engine.VideoSizeChange:
		if src == q.Current() {
			q.cfg.Emit(dispatcher.VideoSizeChanged{Width: ev.Width, Height: ev.Height})
		}
	case engine.SubtitleData:
		if src == q.Current() {
			q.cfg.Emit(dispatcher.SubtitleReceived{
				TrackIndex: ev.TrackIndex,
				StartTime:  ev.StartTime,
				Duration:   ev.Duration,
				Data:       ev.Data,
			})
		}
	case engine.TimedMetadata:
		if src == q.Current() {
			q.cfg.Emit(dispatcher.TimedMetadataReached{Timestamp: ev.Timestamp, Data: ev.Data})
		}
	case engine.DRMInfo:
		q.cfg.Emit(dispatcher.DRMInfoReceived{Item: src.Item(), SchemeInitData: ev.SchemeInitData})
	}
}

func (q *Queue) findByEngine(e engine.Interface) *source.Source {
	for _, src := range q.sources {
		if src.Owns(e) {
			return src
		}
	}
	return nil
}

func (q *Queue) onPrepared(src *source.Source) {
	src.SetState(source.Prepared)
	q.setBuffering(src, source.BufferingPlayable)

	switch src {
	case q.Current():
		if src.PlayPending() {
			if err := q.startCurrent(src); err != nil {
				q.logger.Warn("deferred start failed", "uri", src.Item().URI, "err", err)
			}
		} else {
			q.setPlayState(src, source.Ready)
		}
		q.resolve(scheduler.CallPrepare, status.OK)
	case q.next():
		// A next-slot source may reach Ready, never Playing, until
		// promoted.
		src.SetPlayState(source.Ready)
		q.armHandOff(src)
	}

	q.prepareLookahead()
}

// armHandOff registers the prepared next source with the current engine
// for seamless transition. Only audio-only items are eligible; an item
// with video always takes the explicit promotion path on completion.
func (q *Queue) armHandOff(src *source.Source) {
	info := src.Engine().TrackInfo()
	if info == nil || info.HasVideo {
		return
	}
	cur := q.Current()
	if cur == nil || cur.Engine() == nil {
		return
	}
	if err := cur.Engine().SetNext(src.Engine()); err != nil {
		q.logger.Warn("arming gapless hand-off failed", "uri", src.Item().URI, "err", err)
		return
	}
	src.SetHandOffArmed(true)
}

func (q *Queue) onCompletion(src *source.Source) {
	if src != q.Current() {
		return
	}

	if q.looping {
		// Restart in place: no queue mutation, no item-changed
		// notification.
		eng := src.Engine()
		if err := eng.SeekTo(src.Item().StartOffset, engine.SeekClosest); err != nil {
			q.logger.Warn("loop seek failed", "err", err)
		}
		if err := eng.Start(); err != nil {
			q.logger.Warn("loop restart failed", "err", err)
		}
		return
	}

	nxt := q.next()
	if nxt == nil {
		// End of list.
		q.setPlayState(src, source.Paused)
		q.cfg.Emit(dispatcher.CurrentItemChanged{Item: nil})
		return
	}
	if nxt.HandOffArmed() {
		// The engine performs the transition itself; the successor's
		// started-as-next event does the promotion.
		return
	}

	wasActive := src.PlayState() == source.Playing || src.PlayPending()
	q.moveToNext()
	if wasActive {
		q.startOrDefer(q.Current())
	}
}

// onStartedAsNext promotes the armed successor once its engine has begun
// playing it without an explicit start call.
func (q *Queue) onStartedAsNext(src *source.Source) {
	if src != q.next() {
		return
	}
	q.moveToNext()
	q.setPlayState(src, source.Playing)
	q.setBuffering(src, src.Buffering())
}

func (q *Queue) onError(src *source.Source, ev engine.ErrorEvent) {
	code := mapEngineError(ev)
	isCurrent := src == q.Current()

	if src == q.next() && src.HandOffArmed() {
		// Never hand playback to a failed source.
		q.disarmNext()
	}
	src.Fail()
	if isCurrent {
		q.emitPlayState(source.Errored)
		q.emitBuffering(source.BufferingUnknown, src.Item())
	}
	q.cfg.Emit(dispatcher.PlaybackError{
		Item:   src.Item(),
		Status: code,
		Code:   ev.Code,
		Extra:  ev.Extra,
	})
	if isCurrent {
		// A command waiting on the failed source completes with the
		// failure status.
		q.cfg.Resolve(func(scheduler.Call) bool { return true }, code)
	}
}

func (q *Queue) onSeekComplete(src *source.Source, ev engine.SeekComplete) {
	if src != q.Current() {
		return
	}
	q.cfg.Emit(dispatcher.SeekCompleted{Position: ev.Position})
	q.resolve(scheduler.CallSeekTo, status.OK)
}

func (q *Queue) onBufferingUpdate(src *source.Source, ev engine.BufferingUpdate) {
	src.SetBufferedPercent(ev.Percent)
	if src.BufferedPercent() >= 100 {
		q.setBuffering(src, source.BufferingComplete)
	}
	if src == q.Current() {
		q.cfg.Emit(dispatcher.BufferedPercent{Percent: src.BufferedPercent(), Item: src.Item()})
	}
}

func (q *Queue) onInfo(src *source.Source, ev engine.Info) {
	switch ev.Code {
	case engine.InfoStartedAsNext:
		q.onStartedAsNext(src)
	case engine.InfoBufferingStart:
		q.setBuffering(src, source.BufferingStarved)
	case engine.InfoBufferingEnd:
		q.setBuffering(src, source.BufferingPlayable)
	default:
		if src == q.Current() {
			q.cfg.Emit(dispatcher.InfoReceived{Code: ev.Code, Extra: ev.Extra, Item: src.Item()})
		}
	}
}

// mapEngineError derives a status code from an engine error event,
// falling back to Unknown when nothing more specific applies.
func mapEngineError(ev engine.ErrorEvent) status.Code {
	if ev.Err != nil {
		if code := status.FromError(ev.Err); code != status.Unknown {
			return code
		}
	}
	switch ev.Code {
	case engine.ErrorIO, engine.ErrorTimedOut:
		return status.IOError
	case engine.ErrorMalformed, engine.ErrorUnsupported:
		return status.BadValue
	default:
		return status.Unknown
	}
}
