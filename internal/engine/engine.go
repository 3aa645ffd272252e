// Package engine defines the contract for the single-item playback
// primitive driven by the source queue. An engine plays exactly one media
// item; the orchestration layer creates one engine per queued item and
// consumes its callback stream as an opaque collaborator.
package engine

import (
	"time"

	"github.com/google/uuid"
)

// Surface is an opaque video output target. Audio-only engines ignore it.
type Surface any

// SeekMode selects how a seek position snaps to sync frames.
type SeekMode int

const (
	SeekPreviousSync SeekMode = iota
	SeekNextSync
	SeekClosestSync
	SeekClosest
)

// Interface is the playback engine contract.
//
// Callback events are raised on the engine's own goroutine(s) as a single
// ordered stream per instance. Implementations must never invoke the
// callback synchronously from inside one of these methods.
type Interface interface {
	// SetCallback installs the event callback. Must be called before
	// PrepareAsync; replacing the callback afterwards is not supported.
	SetCallback(cb func(Event))

	// PrepareAsync starts preparing the media item. A Prepared event (or
	// ErrorEvent) follows on the callback stream.
	PrepareAsync() error

	Start() error
	Pause() error
	SeekTo(pos time.Duration, mode SeekMode) error

	// SetNext registers the engine that should take over playback when
	// this one completes, without a stop/start gap. The successor raises
	// InfoStartedAsNext on its own stream when the hand-off happens.
	SetNext(next Interface) error
	// ClearNext removes a previously registered successor.
	ClearNext()

	// Release frees the engine. Idempotent; no events are raised after
	// Release returns.
	Release()

	// Playback properties. Engines do not retain settings across
	// instances; the queue re-applies them on every promotion.
	SetVolume(level float64) error
	SetSurface(target Surface) error
	SetAudioAttributes(attrs AudioAttributes) error
	SetAuxEffect(id int) error
	SetAuxEffectSendLevel(level float64) error
	SetSyncParams(params SyncParams) error
	SetPlaybackRate(rate PlaybackRate) error
	SetAudioSessionID(id int) error

	// Reads. Valid once prepared; zero values before that.
	Position() time.Duration
	Duration() time.Duration
	TrackInfo() *TrackInfo

	// Track selection.
	Tracks() []Track
	SelectTrack(index int) error
	DeselectTrack(index int) error

	// DRM pass-through. Engines that do not support protected content
	// return InvalidOperation status errors.
	PrepareDRM(schemeID uuid.UUID) error
	DRMKeyRequest(initData []byte, mimeType string, keyType int) ([]byte, error)
	ProvideDRMKeyResponse(response []byte) ([]byte, error)
	RestoreDRMKeys(keySetID []byte) error
	DRMProperty(name string) (string, error)
	SetDRMProperty(name, value string) error
	ReleaseDRM() error
}

// Factory constructs an engine for a media item. The queue calls it
// lazily, when a slot first needs preparing.
type Factory func(item Item) (Interface, error)
