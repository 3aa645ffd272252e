package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := loadFrom(nil)
	if err != nil {
		t.Fatalf("loadFrom failed: %v", err)
	}
	if cfg.Volume != 1.0 {
		t.Errorf("Volume = %v, want 1.0", cfg.Volume)
	}
	if cfg.Speed != 1.0 {
		t.Errorf("Speed = %v, want 1.0", cfg.Speed)
	}
	if cfg.LoopCurrent {
		t.Error("LoopCurrent should default to false")
	}
	if !cfg.PersistState {
		t.Error("PersistState should default to true")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadFrom_File(t *testing.T) {
	path := writeConfig(t, `
volume = 0.6
speed = 1.5
loop_current = true
persist_state = false
log_level = "debug"
`)
	cfg, err := loadFrom([]string{path})
	if err != nil {
		t.Fatalf("loadFrom failed: %v", err)
	}
	if cfg.Volume != 0.6 {
		t.Errorf("Volume = %v, want 0.6", cfg.Volume)
	}
	if cfg.Speed != 1.5 {
		t.Errorf("Speed = %v, want 1.5", cfg.Speed)
	}
	if !cfg.LoopCurrent {
		t.Error("LoopCurrent = false, want true")
	}
	if cfg.PersistState {
		t.Error("PersistState = true, want false")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadFrom_LastFileWins(t *testing.T) {
	base := writeConfig(t, "volume = 0.2\nspeed = 2.0\n")
	override := writeConfig(t, "volume = 0.9\n")

	cfg, err := loadFrom([]string{base, override})
	if err != nil {
		t.Fatalf("loadFrom failed: %v", err)
	}
	if cfg.Volume != 0.9 {
		t.Errorf("Volume = %v, want 0.9 from the override", cfg.Volume)
	}
	if cfg.Speed != 2.0 {
		t.Errorf("Speed = %v, want 2.0 from the base", cfg.Speed)
	}
}

func TestLoadFrom_MissingFilesIgnored(t *testing.T) {
	cfg, err := loadFrom([]string{"/does/not/exist/config.toml"})
	if err != nil {
		t.Fatalf("loadFrom failed: %v", err)
	}
	if cfg.Volume != 1.0 {
		t.Errorf("Volume = %v, want default 1.0", cfg.Volume)
	}
}

func TestLoadFrom_ClampsValues(t *testing.T) {
	path := writeConfig(t, "volume = 3.5\nspeed = -1.0\n")
	cfg, err := loadFrom([]string{path})
	if err != nil {
		t.Fatalf("loadFrom failed: %v", err)
	}
	if cfg.Volume != 1.0 {
		t.Errorf("Volume = %v, want clamped to 1.0", cfg.Volume)
	}
	if cfg.Speed != 1.0 {
		t.Errorf("Speed = %v, want reset to 1.0", cfg.Speed)
	}
}

func TestParsedLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"ERROR", log.ErrorLevel},
		{"", log.InfoLevel},
		{"bogus", log.InfoLevel},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.in}
		if got := cfg.ParsedLogLevel(); got != tt.want {
			t.Errorf("ParsedLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths()
	if len(paths) == 0 {
		t.Fatal("getConfigPaths returned nothing")
	}
	if paths[len(paths)-1] != "config.toml" {
		t.Errorf("last path = %q, want config.toml (highest priority)", paths[len(paths)-1])
	}
}
