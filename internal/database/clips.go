package database

import (
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/AIStudio/internal/clips"
)

// UpsertClip inserts or updates one clip. New clips are appended after the
// existing ones.
func (db *DB) UpsertClip(c clips.Clip) error {
	return upsertClip(db.conn, c)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertClip(ex execer, c clips.Clip) error {
	_, err := ex.Exec(`INSERT INTO clips (id, seq, prompt_id, script_line, prompt, video_url, duration, status, trim_start, trim_end, last_error)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM clips), ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			video_url = excluded.video_url,
			duration = excluded.duration,
			status = excluded.status,
			trim_start = excluded.trim_start,
			trim_end = excluded.trim_end,
			last_error = excluded.last_error,
			updated_at = datetime('now')`,
		c.ID, c.PromptID, c.ScriptLine, c.Prompt, c.VideoURL, c.Duration, string(c.Status),
		c.TrimStart, c.TrimEnd, c.LastError)
	if err != nil {
		return fmt.Errorf("upserting clip %s: %w", c.ID, err)
	}
	return nil
}

// LoadClips returns the stored clips in request order.
func (db *DB) LoadClips() ([]clips.Clip, error) {
	rows, err := db.conn.Query(`SELECT id, prompt_id, script_line, prompt, video_url, duration, status, trim_start, trim_end, last_error
		FROM clips ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying clips: %w", err)
	}
	defer rows.Close()

	var out []clips.Clip
	for rows.Next() {
		var c clips.Clip
		var status string
		if err := rows.Scan(&c.ID, &c.PromptID, &c.ScriptLine, &c.Prompt, &c.VideoURL, &c.Duration,
			&status, &c.TrimStart, &c.TrimEnd, &c.LastError); err != nil {
			return nil, fmt.Errorf("scanning clip: %w", err)
		}
		c.Status = clips.Status(status)
		out = append(out, c)
	}
	return out, rows.Err()
}
