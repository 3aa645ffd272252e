// Package state persists queue-level playback properties between runs.
// Engines never retain settings, so without this the orchestrator would
// come back up with defaults every time.
package state

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName      = "segue"
	dbFileName   = "segue.db"
	saveDebounce = 500 * time.Millisecond
)

// Record is the persisted snapshot of queue-level properties.
type Record struct {
	Volume             float64
	Speed              float64
	Pitch              float64
	AuxEffectID        int
	AuxEffectSendLevel float64
	AudioSessionID     int
	LastURI            string
}

// Manager owns the state database. Saves are debounced; the last
// pending record is flushed on Close.
type Manager struct {
	db        *sql.DB
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *Record
}

// Open opens the state database at the default XDG data path.
func Open() (*Manager, error) {
	dbPath, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return nil, err
	}
	return OpenAt(dbPath)
}

// OpenAt opens the state database at an explicit path.
func OpenAt(dbPath string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Manager{db: db}, nil
}

// Close flushes any pending save and closes the database.
func (m *Manager) Close() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	if pending != nil {
		_ = saveRecord(m.db, *pending)
	}
	return m.db.Close()
}

// Properties loads the persisted record, or nil if none was saved yet.
func (m *Manager) Properties() (*Record, error) {
	var rec Record
	row := m.db.QueryRow(`
		SELECT volume, speed, pitch, aux_effect_id, aux_effect_level,
		       audio_session_id, last_uri
		FROM playback_properties WHERE id = 1
	`)
	err := row.Scan(&rec.Volume, &rec.Speed, &rec.Pitch, &rec.AuxEffectID,
		&rec.AuxEffectSendLevel, &rec.AudioSessionID, &rec.LastURI)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save schedules a debounced write of the record.
func (m *Manager) Save(rec Record) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.pending = &rec

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	m.saveTimer = time.AfterFunc(saveDebounce, func() {
		m.saveMu.Lock()
		pending := m.pending
		m.pending = nil
		m.saveMu.Unlock()

		if pending != nil {
			_ = saveRecord(m.db, *pending)
		}
	})
}

func saveRecord(db *sql.DB, rec Record) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	_, err = tx.Exec(`
		INSERT INTO playback_properties
			(id, volume, speed, pitch, aux_effect_id, aux_effect_level,
			 audio_session_id, last_uri)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			volume = excluded.volume,
			speed = excluded.speed,
			pitch = excluded.pitch,
			aux_effect_id = excluded.aux_effect_id,
			aux_effect_level = excluded.aux_effect_level,
			audio_session_id = excluded.audio_session_id,
			last_uri = excluded.last_uri
	`, rec.Volume, rec.Speed, rec.Pitch, rec.AuxEffectID,
		rec.AuxEffectSendLevel, rec.AudioSessionID, rec.LastURI)
	if err != nil {
		return err
	}
	return tx.Commit()
}
