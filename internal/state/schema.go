package state

import (
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS playback_properties (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			volume REAL NOT NULL DEFAULT 1.0,
			speed REAL NOT NULL DEFAULT 1.0,
			pitch REAL NOT NULL DEFAULT 1.0,
			aux_effect_id INTEGER NOT NULL DEFAULT 0,
			aux_effect_level REAL NOT NULL DEFAULT 0,
			audio_session_id INTEGER NOT NULL DEFAULT 0,
			last_uri TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`,
		currentSchemaVersion)
	return err
}
