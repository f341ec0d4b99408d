// Package sqlite persists confirmed complaints and the observed-entity
// dictionary. Drafts and dialogue state never touch the database; a row
// exists only after an explicit submit.
package sqlite

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS complaints (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		reference       TEXT NOT NULL UNIQUE,
		description     TEXT NOT NULL,
		priority        TEXT NOT NULL,
		tuples          TEXT NOT NULL DEFAULT '[]',
		analysis        TEXT DEFAULT '',
		media           TEXT NOT NULL DEFAULT '[]',
		is_anonymous    INTEGER NOT NULL DEFAULT 0,
		contact_name    TEXT DEFAULT '',
		contact_phone   TEXT DEFAULT '',
		contact_email   TEXT DEFAULT '',
		source          TEXT NOT NULL DEFAULT 'web',
		status          TEXT NOT NULL DEFAULT 'pending',
		admin_comment   TEXT DEFAULT '',
		submission_time DATETIME NOT NULL,
		reported_time   DATETIME NOT NULL,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_complaints_status ON complaints(status);
	CREATE INDEX IF NOT EXISTS idx_complaints_submission ON complaints(submission_time);

	CREATE TABLE IF NOT EXISTS dictionary (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		kind       TEXT NOT NULL,
		value      TEXT NOT NULL,
		freq       INTEGER NOT NULL DEFAULT 1,
		first_seen DATETIME NOT NULL,
		last_seen  DATETIME NOT NULL,
		UNIQUE(kind, value)
	);
	CREATE INDEX IF NOT EXISTS idx_dictionary_kind_freq ON dictionary(kind, freq);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}
	return db, nil
}
