package session

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/seguekit/segue/internal/dispatcher"
	"github.com/seguekit/segue/internal/engine"
	"github.com/seguekit/segue/internal/queue"
	"github.com/seguekit/segue/internal/scheduler"
	"github.com/seguekit/segue/internal/source"
	"github.com/seguekit/segue/internal/state"
	"github.com/seguekit/segue/internal/status"
)

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

// Options configures a session.
type Options struct {
	// Logger defaults to log.Default().
	Logger *log.Logger
	// Store, when set, persists queue-level properties across runs.
	Store *state.Manager
}

// resolution is a task detached by an engine event, completed once the
// mutex is released.
type resolution struct {
	task *scheduler.Task
	code status.Code
}

type serviceImpl struct {
	// mu is the single mutex shared by the source queue and the task
	// scheduler. Engine callbacks acquire it before touching either.
	mu sync.Mutex

	q      *queue.Queue
	sched  *scheduler.Scheduler
	disp   *dispatcher.Dispatcher
	logger *log.Logger
	store  *state.Manager

	// Effects collected while mu is held, delivered after release.
	notes    []dispatcher.Notification
	resolved *resolution

	closed bool
}

// New creates a playback session over the given engine factory.
func New(factory engine.Factory, opts Options) Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &serviceImpl{
		logger: logger,
		store:  opts.Store,
	}
	s.disp = dispatcher.New(logger)
	s.q = queue.New(queue.Config{
		Factory: s.wrapFactory(factory),
		Emit:    s.emitLocked,
		Resolve: s.resolveLocked,
		Logger:  logger,
	})
	s.sched = scheduler.New(&s.mu, scheduler.Hooks{
		InErrorState: s.q.InErrorState,
		OnComplete:   s.onTaskComplete,
	}, logger)

	if s.store != nil {
		if rec, err := s.store.Properties(); err != nil {
			logger.Warn("restoring playback properties failed", "err", err)
		} else if rec != nil {
			s.q.SeedProperties(recordToProperties(*rec))
		}
	}
	return s
}

// wrapFactory routes every constructed engine's callback stream back
// into the session.
func (s *serviceImpl) wrapFactory(factory engine.Factory) engine.Factory {
	return func(item engine.Item) (engine.Interface, error) {
		eng, err := factory(item)
		if err != nil {
			return nil, err
		}
		eng.SetCallback(func(ev engine.Event) {
			s.handleEngineEvent(eng, ev)
		})
		return eng, nil
	}
}

// handleEngineEvent is the entry point for all engine callbacks. It
// takes the shared mutex, routes the event through the queue, then
// delivers collected notifications and resolves any waiting task with
// the mutex released.
func (s *serviceImpl) handleEngineEvent(eng engine.Interface, ev engine.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.q.HandleEvent(eng, ev)
	notes, res := s.takeEffectsLocked()
	s.mu.Unlock()

	s.disp.Dispatch(notes...)
	if res != nil {
		s.sched.Finish(res.task, res.code)
	}
}

func (s *serviceImpl) emitLocked(n dispatcher.Notification) {
	s.notes = append(s.notes, n)
}

func (s *serviceImpl) resolveLocked(match func(scheduler.Call) bool, code status.Code) {
	if s.resolved != nil {
		return
	}
	if t := s.sched.ResolveWaitingLocked(match); t != nil {
		s.resolved = &resolution{task: t, code: code}
	}
}

func (s *serviceImpl) takeEffectsLocked() ([]dispatcher.Notification, *resolution) {
	notes := s.notes
	res := s.resolved
	s.notes = nil
	s.resolved = nil
	return notes, res
}

// exec wraps a queue operation as a scheduled task. The operation runs
// under the shared mutex; notifications it produced are delivered after
// release.
func (s *serviceImpl) exec(call scheduler.Call, needsWait bool, op func() error) {
	s.sched.Enqueue(scheduler.NewTask(call, needsWait, func() error {
		s.mu.Lock()
		err := op()
		notes, res := s.takeEffectsLocked()
		s.mu.Unlock()

		s.disp.Dispatch(notes...)
		if res != nil {
			s.sched.Finish(res.task, res.code)
		}
		return err
	}))
}

// onTaskComplete publishes the per-call completion notification with the
// item descriptor snapshotted at completion time, and persists property
// changes. Runs without the mutex held.
func (s *serviceImpl) onTaskComplete(t *scheduler.Task, code status.Code) {
	s.mu.Lock()
	var item engine.Item
	if it := s.q.CurrentItem(); it != nil {
		item = *it
	}
	props := s.q.Properties()
	s.mu.Unlock()

	notes := []dispatcher.Notification{dispatcher.CallCompleted{
		TaskID: t.ID,
		Call:   t.Call,
		Status: code,
		Item:   item,
	}}
	if t.Call == scheduler.CallNotifyWhenLabelReached && code == status.OK {
		notes = append(notes, dispatcher.LabelReached{Label: t.Label})
	}
	s.disp.Dispatch(notes...)

	if s.store != nil && code == status.OK && persistedCall(t.Call) {
		s.store.Save(propertiesToRecord(props, item))
	}
}

// persistedCall reports whether a successful call changes state worth
// writing through to the store.
func persistedCall(c scheduler.Call) bool {
	switch c {
	case scheduler.CallSetItem, scheduler.CallSetVolume, scheduler.CallSetPlaybackRate,
		scheduler.CallSetAudioSessionID, scheduler.CallAttachAuxEffect,
		scheduler.CallSetAuxEffectSendLevel, scheduler.CallReset:
		return true
	default:
		return false
	}
}

func recordToProperties(rec state.Record) queue.Properties {
	p := queue.DefaultProperties()
	p.Volume = rec.Volume
	p.Rate = engine.PlaybackRate{Speed: rec.Speed, Pitch: rec.Pitch}
	p.AuxEffectID = rec.AuxEffectID
	p.AuxEffectSendLevel = rec.AuxEffectSendLevel
	p.AudioSessionID = rec.AudioSessionID
	return p
}

func propertiesToRecord(p queue.Properties, item engine.Item) state.Record {
	return state.Record{
		Volume:             p.Volume,
		Speed:              p.Rate.Speed,
		Pitch:              p.Rate.Pitch,
		AuxEffectID:        p.AuxEffectID,
		AuxEffectSendLevel: p.AuxEffectSendLevel,
		AudioSessionID:     p.AudioSessionID,
		LastURI:            item.URI,
	}
}

// Queue commands

func (s *serviceImpl) SetItem(item engine.Item) {
	s.exec(scheduler.CallSetItem, false, func() error { return s.q.SetFirst(item) })
}

func (s *serviceImpl) SetNextItem(item engine.Item) {
	s.exec(scheduler.CallSetNextItem, false, func() error { return s.q.SetNext(item) })
}

func (s *serviceImpl) SetNextItems(items []engine.Item) {
	s.exec(scheduler.CallSetNextItems, false, func() error { return s.q.SetNext(items...) })
}

func (s *serviceImpl) SkipToNext() {
	s.exec(scheduler.CallSkipToNext, false, func() error { return s.q.SkipToNext() })
}

// Playback commands

func (s *serviceImpl) Prepare() {
	s.exec(scheduler.CallPrepare, true, func() error { return s.q.Prepare() })
}

func (s *serviceImpl) Play() {
	s.exec(scheduler.CallPlay, false, func() error { return s.q.Play() })
}

func (s *serviceImpl) Pause() {
	s.exec(scheduler.CallPause, false, func() error { return s.q.Pause() })
}

func (s *serviceImpl) SeekTo(pos time.Duration, mode engine.SeekMode) {
	s.exec(scheduler.CallSeekTo, true, func() error { return s.q.SeekTo(pos, mode) })
}

func (s *serviceImpl) LoopCurrent(loop bool) {
	s.exec(scheduler.CallLoopCurrent, false, func() error {
		s.q.SetLooping(loop)
		return nil
	})
}

// Reset discards pending commands and returns the queue to Idle with
// default properties.
func (s *serviceImpl) Reset() {
	s.sched.ClearPending()
	s.exec(scheduler.CallReset, false, func() error {
		s.q.Reset()
		return nil
	})
}

// Track selection

func (s *serviceImpl) SelectTrack(index int) {
	s.exec(scheduler.CallSelectTrack, false, func() error { return s.q.SelectTrack(index) })
}

func (s *serviceImpl) DeselectTrack(index int) {
	s.exec(scheduler.CallDeselectTrack, false, func() error { return s.q.DeselectTrack(index) })
}

// Property commands

func (s *serviceImpl) SetVolume(level float64) {
	s.exec(scheduler.CallSetVolume, false, func() error { return s.q.SetVolume(level) })
}

func (s *serviceImpl) SetSurface(target engine.Surface) {
	s.exec(scheduler.CallSetSurface, false, func() error { return s.q.SetSurface(target) })
}

func (s *serviceImpl) SetAudioAttributes(attrs engine.AudioAttributes) {
	s.exec(scheduler.CallSetAudioAttributes, false, func() error { return s.q.SetAudioAttributes(attrs) })
}

func (s *serviceImpl) SetSyncParams(params engine.SyncParams) {
	s.exec(scheduler.CallSetSyncParams, false, func() error { return s.q.SetSyncParams(params) })
}

func (s *serviceImpl) SetPlaybackRate(rate engine.PlaybackRate) {
	s.exec(scheduler.CallSetPlaybackRate, false, func() error { return s.q.SetPlaybackRate(rate) })
}

func (s *serviceImpl) SetAudioSessionID(id int) {
	s.exec(scheduler.CallSetAudioSessionID, false, func() error { return s.q.SetAudioSessionID(id) })
}

func (s *serviceImpl) AttachAuxEffect(id int) {
	s.exec(scheduler.CallAttachAuxEffect, false, func() error { return s.q.AttachAuxEffect(id) })
}

func (s *serviceImpl) SetAuxEffectSendLevel(level float64) {
	s.exec(scheduler.CallSetAuxEffectSendLevel, false, func() error { return s.q.SetAuxEffectSendLevel(level) })
}

func (s *serviceImpl) NotifyWhenLabelReached(label string) {
	t := scheduler.NewTask(scheduler.CallNotifyWhenLabelReached, false, func() error { return nil })
	t.Label = label
	s.sched.Enqueue(t)
}

func (s *serviceImpl) ClearPendingCommands() {
	s.sched.ClearPending()
}

// DRM commands

func (s *serviceImpl) PrepareDRM(schemeID uuid.UUID) {
	s.exec(scheduler.CallPrepareDRM, false, func() error { return s.q.PrepareDRM(schemeID) })
}

func (s *serviceImpl) ReleaseDRM() {
	s.exec(scheduler.CallReleaseDRM, false, func() error { return s.q.ReleaseDRM() })
}

func (s *serviceImpl) ProvideDRMKeyResponse(response []byte) {
	s.exec(scheduler.CallProvideDRMKeyResponse, false, func() error {
		_, err := s.q.ProvideDRMKeyResponse(response)
		return err
	})
}

func (s *serviceImpl) RestoreDRMKeys(keySetID []byte) {
	s.exec(scheduler.CallRestoreDRMKeys, false, func() error { return s.q.RestoreDRMKeys(keySetID) })
}

func (s *serviceImpl) SetDRMProperty(name, value string) {
	s.exec(scheduler.CallSetDRMProperty, false, func() error { return s.q.SetDRMProperty(name, value) })
}

// Direct reads

func (s *serviceImpl) Position() (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Position()
}

func (s *serviceImpl) Duration() (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Duration()
}

func (s *serviceImpl) BufferedPosition() (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.BufferedPosition()
}

func (s *serviceImpl) State() source.PlayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.PlayState()
}

func (s *serviceImpl) CurrentItem() *engine.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.CurrentItem()
}

func (s *serviceImpl) Tracks() ([]engine.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Tracks()
}

func (s *serviceImpl) DRMKeyRequest(initData []byte, mimeType string, keyType int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.DRMKeyRequest(initData, mimeType, keyType)
}

func (s *serviceImpl) DRMProperty(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.DRMProperty(name)
}

// Register subscribes a listener with its executor.
func (s *serviceImpl) Register(l dispatcher.Listener, ex dispatcher.Executor) *dispatcher.Registration {
	return s.disp.Register(l, ex)
}

// Close shuts the session down: the scheduler stops, every engine is
// released, and listeners are dropped.
func (s *serviceImpl) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.sched.Close()

	s.mu.Lock()
	s.q.ReleaseAll()
	s.notes = nil
	s.resolved = nil
	s.mu.Unlock()

	s.disp.Close()
	return nil
}
