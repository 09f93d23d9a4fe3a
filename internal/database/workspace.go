package database

import (
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/AIStudio/internal/clips"
	"github.com/TobiSchelling/AIStudio/internal/ideas"
	"github.com/TobiSchelling/AIStudio/internal/prompts"
	"github.com/TobiSchelling/AIStudio/internal/script"
)

// Snapshot is everything persisted for a workspace. Collaboration presence
// is never stored.
type Snapshot struct {
	Ideas       []ideas.Idea    `json:"ideas"`
	ScriptState script.State    `json:"scriptState"`
	Draft       string          `json:"draft"`
	Prompts     []prompts.Entry `json:"prompts"`
	Clips       []clips.Clip    `json:"clips"`
}

// SaveSnapshot replaces the whole stored workspace in one transaction.
func (db *DB) SaveSnapshot(s Snapshot) error {
	return db.withTx(func(tx *sql.Tx) error {
		if err := replaceIdeas(tx, s.Ideas); err != nil {
			return err
		}
		for _, stmt := range []string{
			"UPDATE script_state SET active_version_id = NULL",
			"DELETE FROM script_versions",
		} {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("clearing script: %w", err)
			}
		}
		if err := saveScript(tx, s.ScriptState, s.Draft); err != nil {
			return err
		}
		if err := replacePrompts(tx, s.Prompts); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM clips"); err != nil {
			return fmt.Errorf("clearing clips: %w", err)
		}
		for _, c := range s.Clips {
			if err := upsertClip(tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSnapshot reads the whole workspace.
func (db *DB) LoadSnapshot() (Snapshot, error) {
	var s Snapshot
	var err error
	if s.Ideas, err = db.LoadIdeas(); err != nil {
		return s, err
	}
	if s.ScriptState, s.Draft, err = db.LoadScript(); err != nil {
		return s, err
	}
	if s.Prompts, err = db.LoadPrompts(); err != nil {
		return s, err
	}
	if s.Clips, err = db.LoadClips(); err != nil {
		return s, err
	}
	return s, nil
}

// Stats summarizes stored workspace content.
type Stats struct {
	Ideas         int
	ApprovedIdeas int
	Versions      int
	Prompts       int
	Clips         int
	ReadyClips    int
}

// GetStats returns row counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	err := db.conn.QueryRow(`SELECT
		(SELECT COUNT(*) FROM ideas),
		(SELECT COUNT(*) FROM ideas WHERE approved = 1),
		(SELECT COUNT(*) FROM script_versions),
		(SELECT COUNT(*) FROM prompts),
		(SELECT COUNT(*) FROM clips),
		(SELECT COUNT(*) FROM clips WHERE status = 'ready')`).Scan(
		&s.Ideas, &s.ApprovedIdeas, &s.Versions, &s.Prompts, &s.Clips, &s.ReadyClips)
	if err != nil {
		return nil, err
	}
	return s, nil
}
