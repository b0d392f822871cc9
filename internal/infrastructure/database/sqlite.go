package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// OpenSQLite opens (and migrates) an embedded SQLite database.
// Instants are stored as unix nanoseconds; rowid breaks created_at ties.
func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSQLite(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS presence_status (
			id    INTEGER PRIMARY KEY,
			value TEXT NOT NULL UNIQUE
		)`,
		`INSERT OR IGNORE INTO presence_status (id, value) VALUES (1, 'online'), (2, 'offline')`,
		`CREATE TABLE IF NOT EXISTS participant (
			id        TEXT PRIMARY KEY,
			status_id INTEGER REFERENCES presence_status (id),
			name      TEXT NOT NULL,
			last_name TEXT NOT NULL DEFAULT '',
			email     TEXT NOT NULL UNIQUE,
			phone     TEXT,
			photo     TEXT,
			last_seen INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS conversation (
			id                    TEXT PRIMARY KEY,
			first_participant_id  TEXT NOT NULL REFERENCES participant (id),
			second_participant_id TEXT NOT NULL REFERENCES participant (id),
			created_at            INTEGER NOT NULL,
			CHECK (first_participant_id <> second_participant_id)
		)`,
		`CREATE TABLE IF NOT EXISTS message (
			id              TEXT NOT NULL UNIQUE,
			conversation_id TEXT NOT NULL REFERENCES conversation (id) ON DELETE CASCADE,
			sender_id       TEXT NOT NULL REFERENCES participant (id),
			content         TEXT NOT NULL,
			created_at      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_message_conversation ON message (conversation_id, created_at)`,
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("sqlite: migration failed: %w\n%s", err, m)
		}
	}
	return nil
}
