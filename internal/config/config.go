package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Volume is the initial playback volume, 0.0 to 1.0.
	Volume float64 `koanf:"volume"`
	// Speed is the initial playback rate.
	Speed float64 `koanf:"speed"`
	// LoopCurrent restarts the current item on completion.
	LoopCurrent bool `koanf:"loop_current"`
	// PersistState enables the property state database.
	PersistState bool `koanf:"persist_state"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
}

// Load reads config files in priority order (last wins) and fills in
// defaults for anything unset.
func Load() (*Config, error) {
	return loadFrom(getConfigPaths())
}

func loadFrom(paths []string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{
		Volume:       1.0,
		Speed:        1.0,
		PersistState: true,
		LogLevel:     "info",
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.Volume < 0 {
		cfg.Volume = 0
	}
	if cfg.Volume > 1 {
		cfg.Volume = 1
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	return cfg, nil
}

// ParsedLogLevel maps LogLevel onto a logger level, defaulting to info
// for unknown values.
func (c *Config) ParsedLogLevel() log.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/segue/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "segue", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}
