package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

const migrationsSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	language    TEXT NOT NULL,
	mode        TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	total       INTEGER NOT NULL DEFAULT 0,
	valid       INTEGER NOT NULL DEFAULT 0,
	invalid     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS proposals (
	id      INTEGER PRIMARY KEY,
	title   TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS propositions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	proposal_id  INTEGER NOT NULL,
	sentence_id  INTEGER NOT NULL,
	text         TEXT NOT NULL,
	linker       TEXT NOT NULL DEFAULT '-',
	category     TEXT NOT NULL DEFAULT '-',
	sub_category TEXT NOT NULL DEFAULT '-',
	UNIQUE(proposal_id, sentence_id)
);

CREATE TABLE IF NOT EXISTS features (
	run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	record_id TEXT NOT NULL,
	position  INTEGER NOT NULL,
	payload   TEXT NOT NULL,
	PRIMARY KEY (run_id, record_id)
);

CREATE INDEX IF NOT EXISTS idx_features_run_position ON features(run_id, position);
`

// InitDB runs the schema migrations on an sqlite connection.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(migrationsSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Open opens and migrates the sqlite feature store at dsn. ":memory:" is
// pinned to a single connection, otherwise every connection would see its
// own empty database.
func Open(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		conn.SetMaxOpenConns(1)
	}
	if err := InitDB(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
