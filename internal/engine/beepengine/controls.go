package beepengine

import (
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/seguekit/segue/internal/engine"
	"github.com/seguekit/segue/internal/status"
)

const resampleQuality = 4

func ensureSpeaker(rate beep.SampleRate) error {
	var err error
	speakerOnce.Do(func() {
		speakerRate = rate
		err = speaker.Init(rate, rate.N(time.Second/10))
	})
	return err
}

// Start begins or resumes playback. The first start builds the streamer
// chain and hands it to the speaker; later starts resume a paused chain
// or replay a finished one.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.lc != lcPrepared {
		e.mu.Unlock()
		return status.New(status.InvalidOperation, "engine: start before prepared")
	}
	if e.playing {
		ctrl := e.ctrl
		e.mu.Unlock()
		speaker.Lock()
		ctrl.Paused = false
		speaker.Unlock()
		return nil
	}
	if err := e.buildChainLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	ctrl, owner := e.ctrl, e.owner
	e.playing = true
	e.mu.Unlock()

	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		if cur := owner.Load(); cur != nil {
			cur.finished()
		}
	})))
	return nil
}

// buildChainLocked assembles handoff -> resampler -> volume -> ctrl
// around the decoded streamer. Called with e.mu held.
func (e *Engine) buildChainLocked() error {
	if err := ensureSpeaker(e.format.SampleRate); err != nil {
		return status.Errorf(status.IOError, "engine: speaker init: %w", err)
	}
	src := beep.Streamer(e.streamer)
	if e.format.SampleRate != speakerRate {
		src = beep.Resample(resampleQuality, e.format.SampleRate, speakerRate, src)
	}
	e.handoff = newHandoffStreamer(src)
	if e.pendingNext != nil {
		e.armLocked(e.pendingNext)
		e.pendingNext = nil
	}
	e.resampler = beep.ResampleRatio(resampleQuality, e.rate.Speed, e.handoff)
	e.volume = &effects.Volume{
		Streamer: e.resampler,
		Base:     2,
		Volume:   levelToVolume(e.volumeLevel),
		Silent:   e.volumeLevel == 0,
	}
	e.ctrl = &beep.Ctrl{Streamer: e.volume}
	e.owner = &atomic.Pointer[Engine]{}
	e.owner.Store(e)
	return nil
}

func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.lc != lcPrepared {
		e.mu.Unlock()
		return status.New(status.InvalidOperation, "engine: pause before prepared")
	}
	ctrl := e.ctrl
	e.mu.Unlock()
	if ctrl == nil {
		return nil
	}
	speaker.Lock()
	ctrl.Paused = true
	speaker.Unlock()
	return nil
}

// finished runs when the speaker drains the whole sequence. After a
// gapless switch the owner pointer makes it fire on the engine whose
// samples actually ended.
func (e *Engine) finished() {
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()
	e.emit(engine.Completion{})
}

func (e *Engine) SeekTo(pos time.Duration, mode engine.SeekMode) error {
	e.mu.Lock()
	if e.lc != lcPrepared {
		e.mu.Unlock()
		return status.New(status.InvalidOperation, "engine: seek before prepared")
	}
	e.mu.Unlock()

	if err := e.seekStreamer(pos); err != nil {
		return err
	}
	e.emit(engine.SeekComplete{Position: pos})
	return nil
}

// seekStreamer repositions the decoded streamer, muting around the jump
// to avoid an audible click while the speaker is live.
func (e *Engine) seekStreamer(pos time.Duration) error {
	e.mu.Lock()
	streamer, format, volume := e.streamer, e.format, e.volume
	e.mu.Unlock()

	n := format.SampleRate.N(pos)
	if n < 0 {
		n = 0
	}
	if max := streamer.Len(); n >= max && max > 0 {
		n = max - 1
	}

	speaker.Lock()
	if volume != nil {
		volume.Silent = true
	}
	err := streamer.Seek(n)
	if volume != nil {
		volume.Silent = e.volumeLevel == 0
	}
	speaker.Unlock()

	if err != nil {
		return status.Errorf(status.IOError, "engine: seek: %w", err)
	}
	return nil
}

// Position reads the streamer head without the speaker lock; a stale
// sample count is fine for progress reporting.
func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	streamer, format := e.streamer, e.format
	e.mu.Unlock()
	if streamer == nil {
		return 0
	}
	return format.SampleRate.D(streamer.Position()).Round(time.Millisecond)
}

func (e *Engine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info.Duration
}

// Release tears the engine down. A donor that handed its chain to a
// gapless successor must not clear the speaker: the successor's samples
// are flowing through that same chain.
func (e *Engine) Release() {
	e.mu.Lock()
	if e.lc == lcReleased {
		e.mu.Unlock()
		return
	}
	wasPlaying := e.playing && !e.handedOff
	handedOff := e.handedOff
	streamer, file := e.streamer, e.file
	e.lc = lcReleased
	e.playing = false
	e.streamer = nil
	e.file = nil
	e.pendingNext = nil
	handoff := e.handoff
	e.mu.Unlock()

	if handoff != nil && !handedOff {
		handoff.clearNext()
	}
	if wasPlaying {
		speaker.Clear()
	}
	if streamer != nil {
		// After a hand-off the donor's streamer is fully drained;
		// closing it does not disturb the successor's decoder.
		streamer.Close()
	}
	if file != nil {
		file.Close()
	}
	e.events.close()
}
