package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/seguekit/segue/internal/dispatcher"
	"github.com/seguekit/segue/internal/engine"
	"github.com/seguekit/segue/internal/source"
	"github.com/seguekit/segue/internal/status"
)

// SetVolume caches the volume and applies it to the current engine.
func (q *Queue) SetVolume(level float64) error {
	if level < 0 || level > 1 {
		return status.New(status.BadValue, "set volume")
	}
	q.props.Volume = level
	if eng := q.currentEngine(); eng != nil {
		return eng.SetVolume(level)
	}
	return nil
}

// SetSurface caches the video output target and applies it.
func (q *Queue) SetSurface(target engine.Surface) error {
	q.props.Surface = target
	if eng := q.currentEngine(); eng != nil {
		return eng.SetSurface(target)
	}
	return nil
}

// SetAudioAttributes caches the audio routing intent and applies it.
func (q *Queue) SetAudioAttributes(attrs engine.AudioAttributes) error {
	q.props.AudioAttributes = &attrs
	if eng := q.currentEngine(); eng != nil {
		return eng.SetAudioAttributes(attrs)
	}
	return nil
}

// SetAudioSessionID caches the audio session and applies it.
func (q *Queue) SetAudioSessionID(id int) error {
	if id < 0 {
		return status.New(status.BadValue, "set audio session id")
	}
	q.props.AudioSessionID = id
	if eng := q.currentEngine(); eng != nil {
		return eng.SetAudioSessionID(id)
	}
	return nil
}

// AttachAuxEffect caches the auxiliary effect and applies it.
func (q *Queue) AttachAuxEffect(id int) error {
	if id < 0 {
		return status.New(status.BadValue, "attach aux effect")
	}
	q.props.AuxEffectID = id
	if eng := q.currentEngine(); eng != nil {
		return eng.SetAuxEffect(id)
	}
	return nil
}

// SetAuxEffectSendLevel caches the effect send level and applies it.
func (q *Queue) SetAuxEffectSendLevel(level float64) error {
	if level < 0 || level > 1 {
		return status.New(status.BadValue, "set aux effect send level")
	}
	q.props.AuxEffectSendLevel = level
	if eng := q.currentEngine(); eng != nil {
		return eng.SetAuxEffectSendLevel(level)
	}
	return nil
}

// SetSyncParams caches audio/video sync tuning and applies it.
func (q *Queue) SetSyncParams(params engine.SyncParams) error {
	q.props.SyncParams = &params
	if eng := q.currentEngine(); eng != nil {
		return eng.SetSyncParams(params)
	}
	return nil
}

// SetPlaybackRate caches the rate. While playing it takes effect
// immediately; otherwise it is held and applied right before the next
// start.
func (q *Queue) SetPlaybackRate(rate engine.PlaybackRate) error {
	if rate.Speed <= 0 || rate.Pitch <= 0 {
		return status.New(status.BadValue, "set playback rate")
	}
	q.props.Rate = rate
	if q.PlayState() == source.Playing {
		q.pendingRate = nil
		return q.currentEngine().SetPlaybackRate(rate)
	}
	q.pendingRate = &rate
	return nil
}

// Properties returns a copy of the cached queue-level properties.
func (q *Queue) Properties() Properties {
	return q.props
}

// SeedProperties installs restored properties without touching any
// engine. Used once at session start, before anything is queued.
func (q *Queue) SeedProperties(p Properties) {
	q.props = p
}

// SelectTrack selects a track on the prepared current source.
func (q *Queue) SelectTrack(index int) error {
	eng, err := q.preparedEngine("select track")
	if err != nil {
		return err
	}
	return eng.SelectTrack(index)
}

// DeselectTrack deselects a track on the prepared current source.
func (q *Queue) DeselectTrack(index int) error {
	eng, err := q.preparedEngine("deselect track")
	if err != nil {
		return err
	}
	return eng.DeselectTrack(index)
}

// Tracks lists the prepared current source's tracks.
func (q *Queue) Tracks() ([]engine.Track, error) {
	eng, err := q.preparedEngine("get track info")
	if err != nil {
		return nil, err
	}
	return eng.Tracks(), nil
}

// Position is a direct read of the current playback position. Illegal
// while the current source is still Idle.
func (q *Queue) Position() (time.Duration, error) {
	eng, err := q.activeEngine("get position")
	if err != nil {
		return 0, err
	}
	return eng.Position(), nil
}

// Duration is a direct read of the current item's duration.
func (q *Queue) Duration() (time.Duration, error) {
	eng, err := q.activeEngine("get duration")
	if err != nil {
		return 0, err
	}
	return eng.Duration(), nil
}

// BufferedPosition is a direct read of how far the current item is
// buffered, derived from the engine's buffered percentage.
func (q *Queue) BufferedPosition() (time.Duration, error) {
	eng, err := q.activeEngine("get buffered position")
	if err != nil {
		return 0, err
	}
	cur := q.Current()
	return eng.Duration() * time.Duration(cur.BufferedPercent()) / 100, nil
}

// CurrentItem returns the current item descriptor, or nil.
func (q *Queue) CurrentItem() *engine.Item {
	cur := q.Current()
	if cur == nil {
		return nil
	}
	item := cur.Item()
	return &item
}

// PrepareDRM runs DRM preparation on the current engine and reports the
// outcome to listeners.
func (q *Queue) PrepareDRM(schemeID uuid.UUID) error {
	cur := q.Current()
	if cur == nil || cur.Engine() == nil {
		return status.New(status.InvalidOperation, "prepare drm")
	}
	err := cur.Engine().PrepareDRM(schemeID)
	q.cfg.Emit(dispatcher.DRMPrepared{Item: cur.Item(), Status: status.FromError(err)})
	return err
}

// ReleaseDRM releases DRM resources on the current engine.
func (q *Queue) ReleaseDRM() error {
	eng, err := q.drmEngine("release drm")
	if err != nil {
		return err
	}
	return eng.ReleaseDRM()
}

// DRMKeyRequest forwards a key request to the current engine.
func (q *Queue) DRMKeyRequest(initData []byte, mimeType string, keyType int) ([]byte, error) {
	eng, err := q.drmEngine("drm key request")
	if err != nil {
		return nil, err
	}
	return eng.DRMKeyRequest(initData, mimeType, keyType)
}

// ProvideDRMKeyResponse forwards a key response to the current engine.
func (q *Queue) ProvideDRMKeyResponse(response []byte) ([]byte, error) {
	eng, err := q.drmEngine("provide drm key response")
	if err != nil {
		return nil, err
	}
	return eng.ProvideDRMKeyResponse(response)
}

// RestoreDRMKeys restores offline keys on the current engine.
func (q *Queue) RestoreDRMKeys(keySetID []byte) error {
	eng, err := q.drmEngine("restore drm keys")
	if err != nil {
		return err
	}
	return eng.RestoreDRMKeys(keySetID)
}

// DRMProperty reads a DRM property from the current engine.
func (q *Queue) DRMProperty(name string) (string, error) {
	eng, err := q.drmEngine("get drm property")
	if err != nil {
		return "", err
	}
	return eng.DRMProperty(name)
}

// SetDRMProperty writes a DRM property on the current engine.
func (q *Queue) SetDRMProperty(name, value string) error {
	eng, err := q.drmEngine("set drm property")
	if err != nil {
		return err
	}
	return eng.SetDRMProperty(name, value)
}

func (q *Queue) currentEngine() engine.Interface {
	if cur := q.Current(); cur != nil {
		return cur.Engine()
	}
	return nil
}

// activeEngine guards direct reads: the current source must exist and
// have left Idle.
func (q *Queue) activeEngine(op string) (engine.Interface, error) {
	cur := q.Current()
	if cur == nil || cur.PlayState() == source.Idle || cur.Engine() == nil {
		return nil, status.New(status.InvalidOperation, op)
	}
	return cur.Engine(), nil
}

// preparedEngine guards operations that need a prepared current source.
func (q *Queue) preparedEngine(op string) (engine.Interface, error) {
	cur := q.Current()
	if cur == nil || cur.State() != source.Prepared || cur.Engine() == nil {
		return nil, status.New(status.InvalidOperation, op)
	}
	return cur.Engine(), nil
}

func (q *Queue) drmEngine(op string) (engine.Interface, error) {
	cur := q.Current()
	if cur == nil || cur.Engine() == nil {
		return nil, status.New(status.InvalidOperation, op)
	}
	return cur.Engine(), nil
}
