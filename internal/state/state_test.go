package state

import (
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) (string, *Manager) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segue.db")
	m, err := OpenAt(path)
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	return path, m
}

func TestManager_Properties_EmptyDatabase(t *testing.T) {
	_, m := openTemp(t)
	defer m.Close()

	rec, err := m.Properties()
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	if rec != nil {
		t.Errorf("Properties on empty db = %+v, want nil", rec)
	}
}

func TestManager_SaveFlushedOnClose(t *testing.T) {
	path, m := openTemp(t)

	want := Record{
		Volume:             0.7,
		Speed:              1.25,
		Pitch:              1,
		AuxEffectID:        3,
		AuxEffectSendLevel: 0.5,
		AudioSessionID:     42,
		LastURI:            "/music/a.flac",
	}
	m.Save(want)
	// Close must write the pending record even though the debounce
	// interval has not elapsed.
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	m2, err := OpenAt(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer m2.Close()

	got, err := m2.Properties()
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	if got == nil {
		t.Fatal("Properties = nil, want the saved record")
	}
	if *got != want {
		t.Errorf("Properties = %+v, want %+v", *got, want)
	}
}

func TestManager_SaveReplacesPending(t *testing.T) {
	path, m := openTemp(t)

	m.Save(Record{Volume: 0.1})
	m.Save(Record{Volume: 0.9})
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	m2, err := OpenAt(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer m2.Close()

	got, err := m2.Properties()
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	if got == nil || got.Volume != 0.9 {
		t.Errorf("Properties = %+v, want the last save (volume 0.9)", got)
	}
}

func TestManager_UpsertSingleRow(t *testing.T) {
	path, m := openTemp(t)
	m.Save(Record{Volume: 0.5})
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	m2, err := OpenAt(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	m2.Save(Record{Volume: 0.8, LastURI: "/b.mp3"})
	if err := m2.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	m3, err := OpenAt(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer m3.Close()
	got, err := m3.Properties()
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	if got == nil || got.Volume != 0.8 || got.LastURI != "/b.mp3" {
		t.Errorf("Properties = %+v, want the updated row", got)
	}
}
