package database

import (
	"database/sql"
	"strings"
)

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial workspace schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS ideas (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    title TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    source_url TEXT NOT NULL DEFAULT '',
    sentiment TEXT NOT NULL DEFAULT 'neutral',
    interest TEXT NOT NULL DEFAULT 'medium',
    approved INTEGER,
    fetched_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS script_versions (
    id TEXT PRIMARY KEY,
    seq INTEGER NOT NULL UNIQUE,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    author TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS script_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    draft TEXT NOT NULL DEFAULT '',
    active_version_id TEXT REFERENCES script_versions(id),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS prompts (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    line TEXT NOT NULL,
    generated_prompt TEXT NOT NULL,
    editable_prompt TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS clips (
    id TEXT PRIMARY KEY,
    seq INTEGER NOT NULL,
    prompt_id TEXT NOT NULL,
    script_line TEXT NOT NULL,
    prompt TEXT NOT NULL,
    video_url TEXT NOT NULL DEFAULT '',
    duration INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    trim_start INTEGER NOT NULL DEFAULT 0,
    trim_end INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_clips_prompt ON clips(prompt_id);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "prompt line index and clip errors",
		Up: func(tx *sql.Tx) error {
			for _, stmt := range []string{
				"ALTER TABLE prompts ADD COLUMN line_index INTEGER NOT NULL DEFAULT 0",
				"ALTER TABLE clips ADD COLUMN last_error TEXT NOT NULL DEFAULT ''",
			} {
				if _, err := tx.Exec(stmt); err != nil && !isDuplicateColumn(err) {
					return err
				}
			}
			_, err := tx.Exec("UPDATE prompts SET line_index = position")
			return err
		},
	},
}

// latestVersion returns the highest migration version.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}

// isDuplicateColumn reports whether an ALTER TABLE failed because the column
// already exists, which happens when a migration is re-run.
func isDuplicateColumn(err error) bool {
	return strings.Contains(err.Error(), "duplicate column name")
}
