// Package dispatcher delivers playback notifications to registered
// listeners via caller-supplied executors.
//
// Guarantees:
//   - listeners are never invoked while the orchestrator's internal
//     mutex is held
//   - per dispatcher, notifications are submitted in the order the
//     originating engine events were raised
//   - delivery is best-effort: if an executor rejects a notification
//     (for example because it is shutting down), the notification is
//     dropped and logged, never retried
package dispatcher

import (
	"time"

	"github.com/google/uuid"

	"github.com/seguekit/segue/internal/engine"
	"github.com/seguekit/segue/internal/scheduler"
	"github.com/seguekit/segue/internal/source"
	"github.com/seguekit/segue/internal/status"
)

// Notification is one unit of listener-visible output.
type Notification interface {
	notification()
}

// CallCompleted reports the outcome of one client command.
type CallCompleted struct {
	TaskID uuid.UUID
	Call   scheduler.Call
	Status status.Code
	// Item is the current item descriptor snapshotted when the command
	// completed, zero if the queue was empty at that point.
	Item engine.Item
}

// PlayStateChanged reports a distinct new playback state. Emitted at
// most once per transition; repeated no-op commands do not re-emit.
type PlayStateChanged struct {
	State source.PlayState
}

// BufferingChanged reports the current source's buffer health.
type BufferingChanged struct {
	State source.Buffering
	Item  engine.Item
}

// BufferedPercent reports buffered progress for the current source.
type BufferedPercent struct {
	Percent int
	Item    engine.Item
}

// CurrentItemChanged reports a promotion or end of list. Item is nil
// when playback ran off the end of the queue.
type CurrentItemChanged struct {
	Item *engine.Item
}

// SeekCompleted reports that a seek was applied.
type SeekCompleted struct {
	Position time.Duration
}

// InfoReceived forwards a generic engine info event for the current source.
type InfoReceived struct {
	Code  engine.InfoCode
	Extra int
	Item  engine.Item
}

// TimedMetadataReached forwards in-band timed metadata.
type TimedMetadataReached struct {
	Timestamp time.Duration
	Data      []byte
}

// SubtitleReceived forwards a decoded subtitle cue.
type SubtitleReceived struct {
	TrackIndex int
	StartTime  time.Duration
	Duration   time.Duration
	Data       []byte
}

// VideoSizeChanged forwards a video dimension change.
type VideoSizeChanged struct {
	Width  int
	Height int
}

// LabelReached reports that a label marker command drained the queue
// ahead of it.
type LabelReached struct {
	Label string
}

// DRMInfoReceived forwards engine DRM initialization data.
type DRMInfoReceived struct {
	Item           engine.Item
	SchemeInitData map[string][]byte
}

// DRMPrepared reports the outcome of DRM preparation for an item.
type DRMPrepared struct {
	Item   engine.Item
	Status status.Code
}

// PlaybackError reports an engine-level failure, independent of any
// command that may have been waiting on the failed source.
type PlaybackError struct {
	Item   engine.Item
	Status status.Code
	Code   int
	Extra  int
}

func (CallCompleted) notification()        {}
func (PlayStateChanged) notification()     {}
func (BufferingChanged) notification()     {}
func (BufferedPercent) notification()      {}
func (CurrentItemChanged) notification()   {}
func (SeekCompleted) notification()        {}
func (InfoReceived) notification()         {}
func (TimedMetadataReached) notification() {}
func (SubtitleReceived) notification()     {}
func (VideoSizeChanged) notification()     {}
func (LabelReached) notification()         {}
func (DRMInfoReceived) notification()      {}
func (DRMPrepared) notification()          {}
func (PlaybackError) notification()        {}
