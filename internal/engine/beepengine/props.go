package beepengine

import (
	"math"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/seguekit/segue/internal/engine"
	"github.com/seguekit/segue/internal/status"
)

// levelToVolume maps a linear 0..1 level onto the base-2 exponent the
// volume effect expects, so halving the level drops output by one
// octave of gain.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return 0
	}
	return math.Log2(level)
}

func (e *Engine) SetVolume(level float64) error {
	if level < 0 || level > 1 {
		return status.Errorf(status.BadValue, "engine: volume %v out of range", level)
	}
	e.mu.Lock()
	e.volumeLevel = level
	vol := e.volume
	e.mu.Unlock()
	if vol == nil {
		return nil
	}
	speaker.Lock()
	vol.Volume = levelToVolume(level)
	vol.Silent = level == 0
	speaker.Unlock()
	return nil
}

func (e *Engine) SetPlaybackRate(rate engine.PlaybackRate) error {
	if rate.Speed <= 0 || rate.Pitch <= 0 {
		return status.Errorf(status.BadValue, "engine: rate %+v out of range", rate)
	}
	e.mu.Lock()
	e.rate = rate
	rs := e.resampler
	e.mu.Unlock()
	if rs == nil {
		return nil
	}
	speaker.Lock()
	rs.SetRatio(rate.Speed)
	speaker.Unlock()
	return nil
}

// SetSurface is accepted and ignored: this engine renders no video.
func (e *Engine) SetSurface(surface engine.Surface) error {
	if surface != nil {
		e.logger.Debug("surface ignored on audio engine", "path", e.item.URI)
	}
	return nil
}

func (e *Engine) SetAudioAttributes(attrs engine.AudioAttributes) error {
	e.mu.Lock()
	e.attrs = attrs
	e.mu.Unlock()
	return nil
}

func (e *Engine) SetAuxEffect(effectID int) error {
	if effectID < 0 {
		return status.Errorf(status.BadValue, "engine: aux effect %d", effectID)
	}
	e.mu.Lock()
	e.auxEffect = effectID
	e.mu.Unlock()
	return nil
}

func (e *Engine) SetAuxEffectSendLevel(level float64) error {
	if level < 0 || level > 1 {
		return status.Errorf(status.BadValue, "engine: send level %v out of range", level)
	}
	e.mu.Lock()
	e.auxLevel = level
	e.mu.Unlock()
	return nil
}

func (e *Engine) SetSyncParams(params engine.SyncParams) error {
	e.mu.Lock()
	e.syncParams = params
	e.mu.Unlock()
	return nil
}

func (e *Engine) SetAudioSessionID(id int) error {
	if id < 0 {
		return status.Errorf(status.BadValue, "engine: audio session %d", id)
	}
	e.mu.Lock()
	e.sessionID = id
	e.mu.Unlock()
	return nil
}

// Local files carry no content protection; every DRM operation reports
// an invalid operation rather than pretending a scheme exists.

func (e *Engine) PrepareDRM(schemeID uuid.UUID) error {
	return status.New(status.InvalidOperation, "engine: source has no drm scheme")
}

func (e *Engine) DRMKeyRequest(initData []byte, mimeType string, keyType int) ([]byte, error) {
	return nil, status.New(status.InvalidOperation, "engine: source has no drm session")
}

func (e *Engine) ProvideDRMKeyResponse(response []byte) ([]byte, error) {
	return nil, status.New(status.InvalidOperation, "engine: source has no drm session")
}

func (e *Engine) RestoreDRMKeys(keySetID []byte) error {
	return status.New(status.InvalidOperation, "engine: source has no drm session")
}

func (e *Engine) DRMProperty(name string) (string, error) {
	return "", status.New(status.InvalidOperation, "engine: source has no drm session")
}

func (e *Engine) SetDRMProperty(name, value string) error {
	return status.New(status.InvalidOperation, "engine: source has no drm session")
}

func (e *Engine) ReleaseDRM() error {
	return status.New(status.InvalidOperation, "engine: source has no drm session")
}
