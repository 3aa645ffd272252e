package beepengine

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/seguekit/segue/internal/engine"
	"github.com/seguekit/segue/internal/status"
)

func TestNew_MissingFileIsIOError(t *testing.T) {
	_, err := New(engine.Item{URI: "/no/such/file.mp3"}, nil)
	if status.FromError(err) != status.IOError {
		t.Errorf("New(missing) = %v, want IOError", err)
	}
}

func TestNew_DirectoryIsIOError(t *testing.T) {
	_, err := New(engine.Item{URI: t.TempDir()}, nil)
	if status.FromError(err) != status.IOError {
		t.Errorf("New(directory) = %v, want IOError", err)
	}
}

func TestPrepareAsync_GarbageFileReportsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.mp3")
	if err := os.WriteFile(path, []byte("not an mp3 at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	e, err := New(engine.Item{URI: path}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Release()

	events := make(chan engine.Event, 8)
	e.SetCallback(func(ev engine.Event) { events <- ev })
	if err := e.PrepareAsync(); err != nil {
		t.Fatalf("PrepareAsync failed: %v", err)
	}

	select {
	case ev := <-events:
		errEv, ok := ev.(engine.ErrorEvent)
		if !ok {
			t.Fatalf("event = %T, want ErrorEvent", ev)
		}
		if errEv.Code != engine.ErrorMalformed {
			t.Errorf("error code = %d, want ErrorMalformed", errEv.Code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event arrived")
	}
}

func TestPrepareAsync_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.xyz")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	e, err := New(engine.Item{URI: path}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Release()

	events := make(chan engine.Event, 8)
	e.SetCallback(func(ev engine.Event) { events <- ev })
	if err := e.PrepareAsync(); err != nil {
		t.Fatalf("PrepareAsync failed: %v", err)
	}

	select {
	case ev := <-events:
		if _, ok := ev.(engine.ErrorEvent); !ok {
			t.Fatalf("event = %T, want ErrorEvent", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event arrived")
	}
}

func TestPrepareAsync_OnlyFromIdle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := New(engine.Item{URI: path}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Release()
	e.SetCallback(func(engine.Event) {})

	if err := e.PrepareAsync(); err != nil {
		t.Fatalf("first PrepareAsync failed: %v", err)
	}
	if err := e.PrepareAsync(); status.FromError(err) != status.InvalidOperation {
		t.Errorf("second PrepareAsync = %v, want InvalidOperation", err)
	}
}

func TestEngine_GuardsBeforePrepared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := New(engine.Item{URI: path}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Release()

	if err := e.Start(); status.FromError(err) != status.InvalidOperation {
		t.Errorf("Start before prepare = %v, want InvalidOperation", err)
	}
	if err := e.SeekTo(time.Second, engine.SeekClosest); status.FromError(err) != status.InvalidOperation {
		t.Errorf("SeekTo before prepare = %v, want InvalidOperation", err)
	}
	if e.TrackInfo() != nil {
		t.Error("TrackInfo before prepare should be nil")
	}
	if e.Tracks() != nil {
		t.Error("Tracks before prepare should be nil")
	}
	if e.Position() != 0 {
		t.Error("Position before prepare should be zero")
	}
}

func TestEngine_DRMAlwaysInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := New(engine.Item{URI: path}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Release()

	if err := e.PrepareDRM(uuid.Nil); status.FromError(err) != status.InvalidOperation {
		t.Errorf("PrepareDRM = %v, want InvalidOperation", err)
	}
	if _, err := e.DRMKeyRequest(nil, "", 0); status.FromError(err) != status.InvalidOperation {
		t.Errorf("DRMKeyRequest = %v, want InvalidOperation", err)
	}
	if err := e.ReleaseDRM(); status.FromError(err) != status.InvalidOperation {
		t.Errorf("ReleaseDRM = %v, want InvalidOperation", err)
	}
}

func TestEngine_PropertyValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := New(engine.Item{URI: path}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Release()

	if err := e.SetVolume(1.2); status.FromError(err) != status.BadValue {
		t.Errorf("SetVolume(1.2) = %v, want BadValue", err)
	}
	if err := e.SetVolume(0.5); err != nil {
		t.Errorf("SetVolume(0.5) = %v, want nil", err)
	}
	if err := e.SetPlaybackRate(engine.PlaybackRate{Speed: 0, Pitch: 1}); status.FromError(err) != status.BadValue {
		t.Errorf("SetPlaybackRate(0) = %v, want BadValue", err)
	}
	if err := e.SetSurface(nil); err != nil {
		t.Errorf("SetSurface(nil) = %v, want nil", err)
	}
}

func TestRelease_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := New(engine.Item{URI: path}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	e.Release()
	e.Release() // must not panic
}

func TestLevelToVolume(t *testing.T) {
	tests := []struct {
		level float64
		want  float64
	}{
		{1.0, 0},
		{0.5, -1},
		{0.25, -2},
		{2.0, 1},
	}
	for _, tt := range tests {
		if got := levelToVolume(tt.level); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("levelToVolume(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
	if got := levelToVolume(0); got != 0 {
		t.Errorf("levelToVolume(0) = %v, want 0 (silence handled by the flag)", got)
	}
}
