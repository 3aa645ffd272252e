package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/seguekit/segue/internal/status"
)

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)

// Mock is a test double for Interface. Tests drive the callback stream
// explicitly through the Fire methods; every Fire delivers synchronously
// on the calling goroutine.
type Mock struct {
	ItemValue Item
	Video     bool // reported through TrackInfo.HasVideo

	PrepareErr error
	StartErr   error
	SeekErr    error

	PrepareCalls int
	StartCalls   int
	PauseCalls   int
	SeekCalls    []time.Duration
	Released     bool

	NextEngine    Interface
	ClearedNext   bool
	VolumeValue   float64
	SurfaceValue  Surface
	RateValue     PlaybackRate
	SessionID     int
	AuxEffectID   int
	AuxLevel      float64
	AttrsValue    *AudioAttributes
	SyncValue     *SyncParams
	SelectedTrack int

	DurationValue time.Duration
	PositionValue time.Duration

	DRMPrepared  bool
	DRMReleased  bool
	DRMProps     map[string]string
	KeyResponse  []byte
	KeySetID     []byte

	cb func(Event)
}

// NewMock creates a mock engine for the given item.
func NewMock(item Item) *Mock {
	return &Mock{
		ItemValue:     item,
		VolumeValue:   1.0,
		RateValue:     DefaultPlaybackRate(),
		SelectedTrack: -1,
		DRMProps:      map[string]string{},
	}
}

// MockFactory returns a Factory producing mocks, and records every engine
// it created so tests can reach them after the fact.
func MockFactory(created *[]*Mock) Factory {
	return func(item Item) (Interface, error) {
		m := NewMock(item)
		*created = append(*created, m)
		return m, nil
	}
}

func (m *Mock) SetCallback(cb func(Event)) { m.cb = cb }

func (m *Mock) PrepareAsync() error {
	m.PrepareCalls++
	return m.PrepareErr
}

func (m *Mock) Start() error {
	m.StartCalls++
	return m.StartErr
}

func (m *Mock) Pause() error {
	m.PauseCalls++
	return nil
}

func (m *Mock) SeekTo(pos time.Duration, _ SeekMode) error {
	m.SeekCalls = append(m.SeekCalls, pos)
	return m.SeekErr
}

func (m *Mock) SetNext(next Interface) error {
	m.NextEngine = next
	return nil
}

func (m *Mock) ClearNext() {
	m.NextEngine = nil
	m.ClearedNext = true
}

func (m *Mock) Release() { m.Released = true }

func (m *Mock) SetVolume(level float64) error {
	m.VolumeValue = level
	return nil
}

func (m *Mock) SetSurface(target Surface) error {
	m.SurfaceValue = target
	return nil
}

func (m *Mock) SetAudioAttributes(attrs AudioAttributes) error {
	m.AttrsValue = &attrs
	return nil
}

func (m *Mock) SetAuxEffect(id int) error {
	m.AuxEffectID = id
	return nil
}

func (m *Mock) SetAuxEffectSendLevel(level float64) error {
	m.AuxLevel = level
	return nil
}

func (m *Mock) SetSyncParams(params SyncParams) error {
	m.SyncValue = &params
	return nil
}

func (m *Mock) SetPlaybackRate(rate PlaybackRate) error {
	m.RateValue = rate
	return nil
}

func (m *Mock) SetAudioSessionID(id int) error {
	m.SessionID = id
	return nil
}

func (m *Mock) Position() time.Duration { return m.PositionValue }

func (m *Mock) Duration() time.Duration { return m.DurationValue }

func (m *Mock) TrackInfo() *TrackInfo {
	return &TrackInfo{
		URI:      m.ItemValue.URI,
		Duration: m.DurationValue,
		HasVideo: m.Video,
	}
}

func (m *Mock) Tracks() []Track {
	tracks := []Track{{Index: 0, Kind: TrackAudio}}
	if m.Video {
		tracks = append(tracks, Track{Index: 1, Kind: TrackVideo})
	}
	return tracks
}

func (m *Mock) SelectTrack(index int) error {
	if index < 0 || index >= len(m.Tracks()) {
		return status.Errorf(status.BadValue, "select track: no track %d", index)
	}
	m.SelectedTrack = index
	return nil
}

func (m *Mock) DeselectTrack(index int) error {
	if m.SelectedTrack != index {
		return status.Errorf(status.BadValue, "deselect track: track %d not selected", index)
	}
	m.SelectedTrack = -1
	return nil
}

func (m *Mock) PrepareDRM(_ uuid.UUID) error {
	m.DRMPrepared = true
	return nil
}

func (m *Mock) DRMKeyRequest(_ []byte, _ string, _ int) ([]byte, error) {
	return []byte("key-request"), nil
}

func (m *Mock) ProvideDRMKeyResponse(response []byte) ([]byte, error) {
	m.KeyResponse = response
	return m.KeySetID, nil
}

func (m *Mock) RestoreDRMKeys(keySetID []byte) error {
	m.KeySetID = keySetID
	return nil
}

func (m *Mock) DRMProperty(name string) (string, error) {
	return m.DRMProps[name], nil
}

func (m *Mock) SetDRMProperty(name, value string) error {
	m.DRMProps[name] = value
	return nil
}

func (m *Mock) ReleaseDRM() error {
	m.DRMReleased = true
	return nil
}

// FirePrepared delivers a Prepared event.
func (m *Mock) FirePrepared() { m.fire(Prepared{}) }

// FireCompletion delivers a Completion event.
func (m *Mock) FireCompletion() { m.fire(Completion{}) }

// FireError delivers an ErrorEvent.
func (m *Mock) FireError(code, extra int) { m.fire(ErrorEvent{Code: code, Extra: extra}) }

// FireSeekComplete delivers a SeekComplete event.
func (m *Mock) FireSeekComplete(pos time.Duration) { m.fire(SeekComplete{Position: pos}) }

// FireBufferingUpdate delivers a BufferingUpdate event.
func (m *Mock) FireBufferingUpdate(percent int) { m.fire(BufferingUpdate{Percent: percent}) }

// FireInfo delivers an Info event.
func (m *Mock) FireInfo(code InfoCode, extra int) { m.fire(Info{Code: code, Extra: extra}) }

// FireStartedAsNext delivers the gapless hand-off info event.
func (m *Mock) FireStartedAsNext() { m.fire(Info{Code: InfoStartedAsNext}) }

// FireTimedMetadata delivers a TimedMetadata event.
func (m *Mock) FireTimedMetadata(ts time.Duration, data []byte) {
	m.fire(TimedMetadata{Timestamp: ts, Data: data})
}

func (m *Mock) fire(e Event) {
	if m.cb != nil {
		m.cb(e)
	}
}
