package engine

import "time"

// Item is the media descriptor for one queued source.
// It is a value; the orchestration layer snapshots it freely.
type Item struct {
	// URI locates the media. For local engines this is a file path.
	URI string

	// StartOffset is where playback (and loop restarts) begin.
	StartOffset time.Duration

	// ID is an optional caller-assigned identifier carried through
	// notifications untouched.
	ID int64
}

// IsZero returns true if the item carries no descriptor.
func (i Item) IsZero() bool {
	return i.URI == "" && i.ID == 0
}

// TrackInfo describes a prepared media item.
type TrackInfo struct {
	URI      string
	Title    string
	Artist   string
	Album    string
	Duration time.Duration

	// HasVideo reports whether the item contains a video stream. Only
	// audio-only items are eligible for engine-driven gapless hand-off.
	HasVideo bool
}

// TrackKind classifies a selectable track within a media item.
type TrackKind int

const (
	TrackUnknown TrackKind = iota
	TrackAudio
	TrackVideo
	TrackSubtitle
	TrackMetadata
)

// String returns the kind name.
func (k TrackKind) String() string {
	switch k {
	case TrackAudio:
		return "Audio"
	case TrackVideo:
		return "Video"
	case TrackSubtitle:
		return "Subtitle"
	case TrackMetadata:
		return "Metadata"
	default:
		return "Unknown"
	}
}

// Track is one selectable track within a media item.
type Track struct {
	Index    int
	Kind     TrackKind
	Language string
}

// AudioAttributes describes the audio routing intent for an item.
type AudioAttributes struct {
	ContentType int
	Usage       int
	Flags       int
}

// SyncParams tunes audio/video synchronization.
type SyncParams struct {
	SyncSource      int
	AudioAdjustMode int
	Tolerance       float64
	FrameRate       float64
}

// PlaybackRate carries speed and pitch for rate changes.
type PlaybackRate struct {
	Speed float64
	Pitch float64
}

// DefaultPlaybackRate is normal-speed playback.
func DefaultPlaybackRate() PlaybackRate {
	return PlaybackRate{Speed: 1.0, Pitch: 1.0}
}
