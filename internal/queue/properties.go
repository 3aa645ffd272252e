package queue

import (
	"github.com/charmbracelet/log"

	"github.com/seguekit/segue/internal/engine"
)

// Properties are the queue-level playback settings. Engine instances do
// not retain settings across instances, so the queue caches them here
// and replays them onto every newly promoted current source. This is how
// volume, surface and friends survive gapless transitions.
type Properties struct {
	Volume             float64
	Surface            engine.Surface
	AudioAttributes    *engine.AudioAttributes
	AuxEffectID        int
	AuxEffectSendLevel float64
	SyncParams         *engine.SyncParams
	Rate               engine.PlaybackRate
	AudioSessionID     int
}

// DefaultProperties returns the settings applied after a reset.
func DefaultProperties() Properties {
	return Properties{
		Volume: 1.0,
		Rate:   engine.DefaultPlaybackRate(),
	}
}

// applyTo replays the cached settings onto a freshly promoted engine.
// Individual failures are logged and skipped; a promotion must not fail
// because one optional setting did.
func (p Properties) applyTo(e engine.Interface, logger *log.Logger) {
	apply := func(name string, fn func() error) {
		if err := fn(); err != nil {
			logger.Warn("re-applying property failed", "property", name, "err", err)
		}
	}
	apply("volume", func() error { return e.SetVolume(p.Volume) })
	if p.Surface != nil {
		apply("surface", func() error { return e.SetSurface(p.Surface) })
	}
	if p.AudioAttributes != nil {
		apply("audio attributes", func() error { return e.SetAudioAttributes(*p.AudioAttributes) })
	}
	if p.AuxEffectID != 0 {
		apply("aux effect", func() error { return e.SetAuxEffect(p.AuxEffectID) })
		apply("aux effect level", func() error { return e.SetAuxEffectSendLevel(p.AuxEffectSendLevel) })
	}
	if p.SyncParams != nil {
		apply("sync params", func() error { return e.SetSyncParams(*p.SyncParams) })
	}
	if p.AudioSessionID != 0 {
		apply("audio session", func() error { return e.SetAudioSessionID(p.AudioSessionID) })
	}
	if p.Rate != engine.DefaultPlaybackRate() {
		apply("playback rate", func() error { return e.SetPlaybackRate(p.Rate) })
	}
}
