package database

import (
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/AIStudio/internal/prompts"
)

// ReplacePrompts swaps the stored prompt table for entries.
func (db *DB) ReplacePrompts(entries []prompts.Entry) error {
	return db.withTx(func(tx *sql.Tx) error {
		return replacePrompts(tx, entries)
	})
}

func replacePrompts(tx *sql.Tx, entries []prompts.Entry) error {
	if _, err := tx.Exec("DELETE FROM prompts"); err != nil {
		return fmt.Errorf("clearing prompts: %w", err)
	}
	for i, e := range entries {
		if _, err := tx.Exec(`INSERT INTO prompts (id, position, line, line_index, generated_prompt, editable_prompt)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, i, e.Line, e.LineIndex, e.GeneratedPrompt, e.EditablePrompt); err != nil {
			return fmt.Errorf("inserting prompt %s: %w", e.ID, err)
		}
	}
	return nil
}

// LoadPrompts returns the stored prompt table in order.
func (db *DB) LoadPrompts() ([]prompts.Entry, error) {
	rows, err := db.conn.Query(`SELECT id, line, line_index, generated_prompt, editable_prompt
		FROM prompts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying prompts: %w", err)
	}
	defer rows.Close()

	var out []prompts.Entry
	for rows.Next() {
		var e prompts.Entry
		if err := rows.Scan(&e.ID, &e.Line, &e.LineIndex, &e.GeneratedPrompt, &e.EditablePrompt); err != nil {
			return nil, fmt.Errorf("scanning prompt: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
