package prompts

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Entry is one visual prompt derived from a script line.
// GeneratedPrompt never changes after derivation; EditablePrompt is the
// working copy users edit.
type Entry struct {
	ID              string `json:"id"`
	Line            string `json:"line"`
	LineIndex       int    `json:"lineIndex"`
	GeneratedPrompt string `json:"generatedPrompt"`
	EditablePrompt  string `json:"editablePrompt"`
}

// Derived is a deriver's output for one script line.
type Derived struct {
	Line            string
	GeneratedPrompt string
}

// Deriver turns a script into per-line prompts.
type Deriver interface {
	DerivePrompts(ctx context.Context, script string) ([]Derived, error)
}

// Table is the ordered prompt sequence for the active script.
type Table struct {
	deriver Deriver

	mu      sync.Mutex
	entries []Entry
}

// NewTable creates an empty table.
func NewTable(deriver Deriver) *Table {
	return &Table{deriver: deriver}
}

// Generate derives prompts from script and replaces the whole sequence.
// Earlier edits are discarded.
func (t *Table) Generate(ctx context.Context, script string) error {
	derived, err := t.deriver.DerivePrompts(ctx, script)
	if err != nil {
		return fmt.Errorf("deriving prompts: %w", err)
	}

	entries := make([]Entry, 0, len(derived))
	for i, d := range derived {
		entries = append(entries, Entry{
			ID:              uuid.NewString(),
			Line:            d.Line,
			LineIndex:       i,
			GeneratedPrompt: d.GeneratedPrompt,
			EditablePrompt:  d.GeneratedPrompt,
		})
	}

	t.mu.Lock()
	discarded := len(t.entries)
	t.entries = entries
	t.mu.Unlock()

	log.Printf("Generated %d prompts (replaced %d)", len(entries), discarded)
	return nil
}

// UpdateOne sets the editable prompt of entry id. It reports false when no
// such entry exists.
func (t *Table) UpdateOne(id, text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.entries {
		if t.entries[i].ID == id {
			t.entries[i].EditablePrompt = text
			return true
		}
	}
	return false
}

// BulkApply drops blank lines, then writes line i into entry i's editable
// prompt. The mapping is purely positional: reordering lines misaligns them.
// Extra lines are ignored and entries past the last line keep their text.
// It returns how many entries were updated.
func (t *Table) BulkApply(lines []string) int {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	n := min(len(kept), len(t.entries))
	for i := 0; i < n; i++ {
		t.entries[i].EditablePrompt = kept[i]
	}
	return n
}

// ParseBulk splits bulk editor text into trimmed lines.
func ParseBulk(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimSpace(l))
	}
	return lines
}

// BulkText renders the editable prompts one per line, the format BulkApply reads.
func (t *Table) BulkText() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	lines := make([]string, len(t.entries))
	for i, e := range t.entries {
		lines[i] = strings.ReplaceAll(e.EditablePrompt, "\n", " ")
	}
	return strings.Join(lines, "\n")
}

// Lookup returns the entry with the given id.
func (t *Table) Lookup(id string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns a copy of the sequence.
func (t *Table) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Replace installs a previously saved sequence.
func (t *Table) Replace(entries []Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append([]Entry(nil), entries...)
}
