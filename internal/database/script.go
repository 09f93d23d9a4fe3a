package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/TobiSchelling/AIStudio/internal/script"
)

// SaveScript stores the version history, active version and draft.
// Versions are append-only, so existing rows are left alone.
func (db *DB) SaveScript(state script.State, draft string) error {
	return db.withTx(func(tx *sql.Tx) error {
		return saveScript(tx, state, draft)
	})
}

func saveScript(tx *sql.Tx, state script.State, draft string) error {
	for i, v := range state.Versions {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO script_versions (id, seq, title, content, author, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			v.ID, i+1, v.Title, v.Content, v.Author, v.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("inserting version %s: %w", v.ID, err)
		}
	}

	var active any
	if state.ActiveVersionID != "" {
		active = state.ActiveVersionID
	}
	if _, err := tx.Exec(`INSERT INTO script_state (id, draft, active_version_id, updated_at)
		VALUES (1, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			draft = excluded.draft,
			active_version_id = excluded.active_version_id,
			updated_at = excluded.updated_at`, draft, active); err != nil {
		return fmt.Errorf("saving script state: %w", err)
	}
	return nil
}

// LoadScript returns the stored version history and draft.
func (db *DB) LoadScript() (script.State, string, error) {
	var state script.State

	rows, err := db.conn.Query("SELECT id, title, content, author, created_at FROM script_versions ORDER BY seq")
	if err != nil {
		return state, "", fmt.Errorf("querying versions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v script.Version
		var created string
		if err := rows.Scan(&v.ID, &v.Title, &v.Content, &v.Author, &created); err != nil {
			return state, "", fmt.Errorf("scanning version: %w", err)
		}
		if v.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return state, "", fmt.Errorf("parsing created_at of %s: %w", v.ID, err)
		}
		state.Versions = append(state.Versions, v)
	}
	if err := rows.Err(); err != nil {
		return state, "", err
	}

	var draft string
	var active sql.NullString
	err = db.conn.QueryRow("SELECT draft, active_version_id FROM script_state WHERE id = 1").Scan(&draft, &active)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return state, "", fmt.Errorf("loading script state: %w", err)
	}
	state.ActiveVersionID = active.String
	return state, draft, nil
}
