package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/seguekit/segue/internal/dispatcher"
	"github.com/seguekit/segue/internal/engine"
	"github.com/seguekit/segue/internal/source"
)

// Service is the client-facing playback orchestration contract.
//
// Every command method enqueues exactly one serialized task and returns
// immediately; the outcome arrives as a CallCompleted notification.
// Direct reads bypass the task queue and report errors synchronously.
type Service interface {
	// Queue commands
	SetItem(item engine.Item)
	SetNextItem(item engine.Item)
	SetNextItems(items []engine.Item)
	SkipToNext()

	// Playback commands
	Prepare()
	Play()
	Pause()
	SeekTo(pos time.Duration, mode engine.SeekMode)
	LoopCurrent(loop bool)
	Reset()

	// Track selection commands
	SelectTrack(index int)
	DeselectTrack(index int)

	// Property commands, cached at queue level and replayed across
	// gapless transitions
	SetVolume(level float64)
	SetSurface(target engine.Surface)
	SetAudioAttributes(attrs engine.AudioAttributes)
	SetSyncParams(params engine.SyncParams)
	SetPlaybackRate(rate engine.PlaybackRate)
	SetAudioSessionID(id int)
	AttachAuxEffect(id int)
	SetAuxEffectSendLevel(level float64)

	// NotifyWhenLabelReached enqueues a marker; when every command
	// ahead of it has completed, listeners receive LabelReached.
	NotifyWhenLabelReached(label string)

	// ClearPendingCommands discards commands that have not started. The
	// currently running command is never cancelled.
	ClearPendingCommands()

	// DRM commands (pass-through to the current engine)
	PrepareDRM(schemeID uuid.UUID)
	ReleaseDRM()
	ProvideDRMKeyResponse(response []byte)
	RestoreDRMKeys(keySetID []byte)
	SetDRMProperty(name, value string)

	// Direct reads
	Position() (time.Duration, error)
	Duration() (time.Duration, error)
	BufferedPosition() (time.Duration, error)
	State() source.PlayState
	CurrentItem() *engine.Item
	Tracks() ([]engine.Track, error)
	DRMKeyRequest(initData []byte, mimeType string, keyType int) ([]byte, error)
	DRMProperty(name string) (string, error)

	// Event subscription
	Register(l dispatcher.Listener, ex dispatcher.Executor) *dispatcher.Registration

	// Lifecycle
	Close() error
}
