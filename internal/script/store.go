package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyCommit is returned when committing a blank draft. Nothing changes.
var ErrEmptyCommit = errors.New("script draft is empty")

// Version is an immutable snapshot of the script.
type Version struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Author    string    `json:"author"`
}

// State is the version history plus the active selection. An empty
// ActiveVersionID means no version is selected; in JSON it is null.
type State struct {
	ActiveVersionID string    `json:"activeVersionId"`
	Versions        []Version `json:"versions"`
}

type stateJSON struct {
	ActiveVersionID *string   `json:"activeVersionId"`
	Versions        []Version `json:"versions"`
}

func (s State) MarshalJSON() ([]byte, error) {
	out := stateJSON{Versions: s.Versions}
	if out.Versions == nil {
		out.Versions = []Version{}
	}
	if s.ActiveVersionID != "" {
		out.ActiveVersionID = &s.ActiveVersionID
	}
	return json.Marshal(out)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var in stateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Versions = in.Versions
	s.ActiveVersionID = ""
	if in.ActiveVersionID != nil {
		s.ActiveVersionID = *in.ActiveVersionID
	}
	return nil
}

// Store holds the draft and the append-only version history.
type Store struct {
	author string
	now    func() time.Time

	mu       sync.Mutex
	draft    string
	versions []Version
	activeID string
}

// NewStore creates an empty script store. Commits are attributed to author.
func NewStore(author string) *Store {
	return &Store{author: author, now: time.Now}
}

// SetDraft replaces the working draft.
func (s *Store) SetDraft(content string) {
	s.mu.Lock()
	s.draft = content
	s.mu.Unlock()
}

// Draft returns the working draft.
func (s *Store) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Commit snapshots the draft as a new version and makes it active.
func (s *Store) Commit() (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(s.draft) == "" {
		return Version{}, ErrEmptyCommit
	}

	v := Version{
		ID:        uuid.NewString(),
		Title:     fmt.Sprintf("Revision %d", len(s.versions)+1),
		Content:   s.draft,
		CreatedAt: s.now().UTC(),
		Author:    s.author,
	}
	s.versions = append(s.versions, v)
	s.activeID = v.ID
	return v, nil
}

// Restore makes an existing version active and loads its content into the
// draft. Unknown ids are ignored and reported as false.
func (s *Store) Restore(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.versions {
		if v.ID == id {
			s.activeID = id
			s.draft = v.Content
			return true
		}
	}
	return false
}

// Load replaces the store contents with persisted state. An active id that
// does not match any version is dropped.
func (s *Store) Load(state State, draft string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.versions = append([]Version(nil), state.Versions...)
	s.draft = draft
	s.activeID = ""
	for _, v := range s.versions {
		if v.ID == state.ActiveVersionID {
			s.activeID = v.ID
			break
		}
	}
}

// State returns a copy of the version history and active selection.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ActiveVersionID: s.activeID,
		Versions:        append([]Version(nil), s.versions...),
	}
}

// Active returns the active version, if any.
func (s *Store) Active() (Version, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions {
		if v.ID == s.activeID {
			return v, true
		}
	}
	return Version{}, false
}

// Author returns the name commits are attributed to.
func (s *Store) Author() string {
	return s.author
}
