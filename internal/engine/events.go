package engine

import "time"

// Event is one entry in an engine's ordered callback stream. The queue
// resolves the owning source by engine identity and routes each event
// through a single dispatch function.
type Event interface {
	event()
}

// Prepared is raised once the item is ready to start.
type Prepared struct{}

// Completion is raised when playback reaches the end of the item.
type Completion struct{}

// ErrorEvent is raised on an unrecoverable engine failure.
type ErrorEvent struct {
	Code  int
	Extra int
	Err   error
}

// SeekComplete is raised when a requested seek has been applied.
type SeekComplete struct {
	Position time.Duration
}

// BufferingUpdate reports buffered progress as a percentage of the item.
type BufferingUpdate struct {
	Percent int
}

// Info carries generic engine notifications, including the reserved
// started-as-next code used for gapless hand-off.
type Info struct {
	Code  InfoCode
	Extra int
}

// VideoSizeChange is raised when the video dimensions become known or change.
type VideoSizeChange struct {
	Width  int
	Height int
}

// SubtitleData carries a decoded subtitle cue.
type SubtitleData struct {
	TrackIndex int
	StartTime  time.Duration
	Duration   time.Duration
	Data       []byte
}

// TimedMetadata carries in-band timed metadata.
type TimedMetadata struct {
	Timestamp time.Duration
	Data      []byte
}

// DRMInfo is raised when the engine encounters DRM initialization data.
type DRMInfo struct {
	SchemeInitData map[string][]byte
}

func (Prepared) event()        {}
func (Completion) event()      {}
func (ErrorEvent) event()      {}
func (SeekComplete) event()    {}
func (BufferingUpdate) event() {}
func (Info) event()            {}
func (VideoSizeChange) event() {}
func (SubtitleData) event()    {}
func (TimedMetadata) event()   {}
func (DRMInfo) event()         {}

// Engine error codes reported through ErrorEvent.Code.
const (
	ErrorUnknown     = 1
	ErrorServerDied  = 100
	ErrorIO          = -1004
	ErrorMalformed   = -1007
	ErrorUnsupported = -1010
	ErrorTimedOut    = -110
)

// InfoCode identifies a generic Info event.
type InfoCode int

const (
	// InfoStartedAsNext means this engine began playing as the armed
	// successor of the previous one, without an explicit start call.
	InfoStartedAsNext InfoCode = 2
	// InfoVideoRenderingStart means the first video frame was rendered.
	InfoVideoRenderingStart InfoCode = 3
	// InfoBufferingStart means playback paused to refill the buffer.
	InfoBufferingStart InfoCode = 701
	// InfoBufferingEnd means playback resumed after buffering.
	InfoBufferingEnd InfoCode = 702
	// InfoMetadataUpdate means new metadata is available.
	InfoMetadataUpdate InfoCode = 802
)

// String returns the info code name.
func (c InfoCode) String() string {
	switch c {
	case InfoStartedAsNext:
		return "StartedAsNext"
	case InfoVideoRenderingStart:
		return "VideoRenderingStart"
	case InfoBufferingStart:
		return "BufferingStart"
	case InfoBufferingEnd:
		return "BufferingEnd"
	case InfoMetadataUpdate:
		return "MetadataUpdate"
	default:
		return "Unknown"
	}
}
