package database

import (
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/AIStudio/internal/ideas"
)

func approvalValue(a ideas.Approval) any {
	switch a {
	case ideas.Approved:
		return 1
	case ideas.Rejected:
		return 0
	default:
		return nil
	}
}

func approvalFromColumn(v sql.NullInt64) ideas.Approval {
	switch {
	case !v.Valid:
		return ideas.Undecided
	case v.Int64 != 0:
		return ideas.Approved
	default:
		return ideas.Rejected
	}
}

// ReplaceIdeas swaps the stored idea set for items, keeping their order.
func (db *DB) ReplaceIdeas(items []ideas.Idea) error {
	return db.withTx(func(tx *sql.Tx) error {
		return replaceIdeas(tx, items)
	})
}

func replaceIdeas(tx *sql.Tx, items []ideas.Idea) error {
	if _, err := tx.Exec("DELETE FROM ideas"); err != nil {
		return fmt.Errorf("clearing ideas: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO ideas (id, position, title, summary, source_url, sentiment, interest, approved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing idea insert: %w", err)
	}
	defer stmt.Close()

	for i, idea := range items {
		if _, err := stmt.Exec(idea.ID, i, idea.Title, idea.Summary, idea.SourceURL,
			string(idea.Sentiment), string(idea.Interest), approvalValue(idea.Approved)); err != nil {
			return fmt.Errorf("inserting idea %s: %w", idea.ID, err)
		}
	}
	return nil
}

// LoadIdeas returns the stored ideas in their original order.
func (db *DB) LoadIdeas() ([]ideas.Idea, error) {
	rows, err := db.conn.Query(`SELECT id, title, summary, source_url, sentiment, interest, approved
		FROM ideas ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying ideas: %w", err)
	}
	defer rows.Close()

	var out []ideas.Idea
	for rows.Next() {
		var idea ideas.Idea
		var sentiment, interest string
		var approved sql.NullInt64
		if err := rows.Scan(&idea.ID, &idea.Title, &idea.Summary, &idea.SourceURL, &sentiment, &interest, &approved); err != nil {
			return nil, fmt.Errorf("scanning idea: %w", err)
		}
		idea.Sentiment = ideas.Sentiment(sentiment)
		idea.Interest = ideas.Interest(interest)
		idea.Approved = approvalFromColumn(approved)
		out = append(out, idea)
	}
	return out, rows.Err()
}

// SetIdeaApproval updates one idea's approval. It reports false when the id
// is unknown.
func (db *DB) SetIdeaApproval(id string, a ideas.Approval) (bool, error) {
	res, err := db.conn.Exec("UPDATE ideas SET approved = ? WHERE id = ?", approvalValue(a), id)
	if err != nil {
		return false, fmt.Errorf("updating approval: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
