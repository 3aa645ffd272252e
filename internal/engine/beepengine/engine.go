// Package beepengine implements the playback engine contract on top of
// the beep speaker for local audio files. It decodes mp3, flac, wav and
// ogg sources, supports gapless hand-off between successive engines and
// exposes tag metadata read at prepare time.
package beepengine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dhowden/tag"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/seguekit/segue/internal/engine"
	"github.com/seguekit/segue/internal/status"
)

type lifecycle int

const (
	lcIdle lifecycle = iota
	lcPreparing
	lcPrepared
	lcFailed
	lcReleased
)

// Engine plays a single local audio file through the beep speaker.
//
// Lock discipline: e.mu is never held while calling into the speaker
// (speaker.Lock, speaker.Play, speaker.Clear). Methods copy the refs
// they need under e.mu, unlock, then talk to the speaker. This lets the
// gapless switch path, which runs under the speaker lock, safely take
// e.mu to adopt the playback chain.
type Engine struct {
	mu sync.Mutex

	item   engine.Item
	cb     func(engine.Event)
	events *eventQueue

	lc       lifecycle
	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	info     engine.TrackInfo

	// Playback chain, built on first Start. After a gapless switch the
	// successor adopts these same refs; handedOff marks the donor so its
	// Release leaves the speaker alone.
	ctrl        *beep.Ctrl
	volume      *effects.Volume
	resampler   *beep.Resampler
	handoff     *handoffStreamer
	owner       *atomic.Pointer[Engine]
	pendingNext *Engine
	playing     bool
	handedOff   bool

	volumeLevel float64
	rate        engine.PlaybackRate
	attrs       engine.AudioAttributes
	syncParams  engine.SyncParams
	auxEffect   int
	auxLevel    float64
	sessionID   int

	logger *log.Logger
}

var _ engine.Interface = (*Engine)(nil)

var (
	speakerOnce sync.Once
	speakerRate beep.SampleRate
)

// New returns an engine bound to item. The data source must exist; the
// actual decode happens in PrepareAsync.
func New(item engine.Item, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.Default()
	}
	fi, err := os.Stat(item.URI)
	if err != nil {
		return nil, status.Errorf(status.IOError, "engine: bind %s: %w", item.URI, err)
	}
	if fi.IsDir() {
		return nil, status.Errorf(status.IOError, "engine: bind %s: is a directory", item.URI)
	}
	e := &Engine{
		item:        item,
		events:      newEventQueue(),
		volumeLevel: 1.0,
		rate:        engine.DefaultPlaybackRate(),
		logger:      logger,
	}
	go e.pump()
	return e, nil
}

// Factory adapts New to the engine factory contract.
func Factory(logger *log.Logger) engine.Factory {
	return func(item engine.Item) (engine.Interface, error) {
		return New(item, logger)
	}
}

func (e *Engine) SetCallback(cb func(engine.Event)) {
	e.mu.Lock()
	e.cb = cb
	e.mu.Unlock()
}

func (e *Engine) PrepareAsync() error {
	e.mu.Lock()
	if e.lc != lcIdle {
		e.mu.Unlock()
		return status.Errorf(status.InvalidOperation, "engine: prepare in state %d", e.lc)
	}
	e.lc = lcPreparing
	e.mu.Unlock()

	go e.prepare()
	return nil
}

func (e *Engine) prepare() {
	info, err := readTags(e.item.URI)
	if err != nil {
		e.logger.Debug("no tags", "path", e.item.URI, "err", err)
	}

	f, err := os.Open(e.item.URI)
	if err != nil {
		e.fail(engine.ErrorIO, err)
		return
	}
	streamer, format, err := decode(f, e.item.URI)
	if err != nil {
		f.Close()
		e.fail(engine.ErrorMalformed, err)
		return
	}

	info.URI = e.item.URI
	info.Duration = format.SampleRate.D(streamer.Len()).Round(time.Millisecond)

	e.mu.Lock()
	if e.lc == lcReleased {
		e.mu.Unlock()
		streamer.Close()
		f.Close()
		return
	}
	e.file = f
	e.streamer = streamer
	e.format = format
	e.info = info
	e.lc = lcPrepared
	e.mu.Unlock()

	if e.item.StartOffset > 0 {
		if err := e.seekStreamer(e.item.StartOffset); err != nil {
			e.logger.Warn("start offset seek failed", "path", e.item.URI, "err", err)
		}
	}

	e.emit(engine.Prepared{})
	// Local sources are fully buffered once decoded.
	e.emit(engine.BufferingUpdate{Percent: 100})
}

func (e *Engine) fail(code int, err error) {
	e.mu.Lock()
	e.lc = lcFailed
	e.mu.Unlock()
	e.emit(engine.ErrorEvent{Code: code, Err: err})
}

func decode(f *os.File, path string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(f)
	case ".flac":
		return flac.Decode(f)
	case ".wav":
		return wav.Decode(f)
	case ".ogg", ".oga":
		return vorbis.Decode(f)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported format %q", filepath.Ext(path))
	}
}

func readTags(path string) (engine.TrackInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return engine.TrackInfo{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return engine.TrackInfo{}, err
	}
	return engine.TrackInfo{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
	}, nil
}

func (e *Engine) TrackInfo() *engine.TrackInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lc != lcPrepared {
		return nil
	}
	info := e.info
	return &info
}

func (e *Engine) Tracks() []engine.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lc != lcPrepared {
		return nil
	}
	return []engine.Track{{Index: 0, Kind: engine.TrackAudio}}
}

func (e *Engine) SelectTrack(index int) error {
	if index != 0 {
		return status.Errorf(status.BadValue, "engine: no track %d", index)
	}
	return nil
}

func (e *Engine) DeselectTrack(index int) error {
	// The sole audio track cannot be deselected.
	return status.Errorf(status.InvalidOperation, "engine: cannot deselect track %d", index)
}
