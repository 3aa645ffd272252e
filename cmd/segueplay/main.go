// Command segueplay plays a list of local audio files back to back
// through the playback session, printing state transitions as they
// happen. It is the reference wiring of the session over the beep
// engine.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/seguekit/segue/internal/config"
	"github.com/seguekit/segue/internal/dispatcher"
	"github.com/seguekit/segue/internal/engine"
	"github.com/seguekit/segue/internal/engine/beepengine"
	"github.com/seguekit/segue/internal/session"
	"github.com/seguekit/segue/internal/source"
	"github.com/seguekit/segue/internal/state"
)

func main() {
	loop := flag.Bool("loop", false, "loop the current item")
	speed := flag.Float64("speed", 0, "playback speed (overrides config)")
	volume := flag.Float64("volume", -1, "playback volume 0..1 (overrides config)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] file [file...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Args(), *loop, *speed, *volume); err != nil {
		log.Fatal("segueplay", "err", err)
	}
}

func run(paths []string, loop bool, speed, volume float64) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           cfg.ParsedLogLevel(),
	})

	var store *state.Manager
	if cfg.PersistState {
		store, err = state.Open()
		if err != nil {
			logger.Warn("state database unavailable", "err", err)
		} else {
			defer store.Close()
		}
	}

	svc := session.New(beepengine.Factory(logger), session.Options{
		Logger: logger,
		Store:  store,
	})
	defer svc.Close()

	done := make(chan struct{})
	reg := svc.Register(func(n dispatcher.Notification) {
		switch n := n.(type) {
		case dispatcher.CurrentItemChanged:
			if n.Item == nil {
				close(done)
				return
			}
			fmt.Printf("now playing: %s\n", n.Item.URI)
		case dispatcher.PlayStateChanged:
			logger.Debug("play state", "state", n.State)
			if n.State == source.Errored {
				close(done)
			}
		case dispatcher.PlaybackError:
			logger.Error("playback error", "item", n.Item.URI, "status", n.Status, "code", n.Code)
		case dispatcher.CallCompleted:
			if n.Status.IsError() {
				logger.Warn("command failed", "call", n.Call, "status", n.Status)
			}
		}
	}, dispatcher.NewSerial())
	defer reg.Close()

	if volume < 0 {
		volume = cfg.Volume
	}
	if speed <= 0 {
		speed = cfg.Speed
	}

	svc.SetVolume(volume)
	if speed != 1 {
		svc.SetPlaybackRate(engine.PlaybackRate{Speed: speed, Pitch: 1})
	}
	svc.LoopCurrent(loop || cfg.LoopCurrent)

	svc.SetItem(engine.Item{URI: paths[0]})
	if len(paths) > 1 {
		items := make([]engine.Item, 0, len(paths)-1)
		for _, p := range paths[1:] {
			items = append(items, engine.Item{URI: p})
		}
		svc.SetNextItems(items)
	}
	svc.Prepare()
	svc.Play()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-sig:
			logger.Info("interrupted")
			return nil
		case <-ticker.C:
			pos, err := svc.Position()
			if err != nil {
				continue
			}
			dur, _ := svc.Duration()
			fmt.Printf("\r%s / %s  ", pos.Round(time.Second), dur.Round(time.Second))
		}
	}
}
