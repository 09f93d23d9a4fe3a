package ideas

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrSourceUnavailable is returned by Refresh when the idea source fails or
// returns nothing. The previously loaded ideas stay in place.
var ErrSourceUnavailable = errors.New("idea source unavailable")

// Source fetches a fresh set of ideas.
type Source interface {
	FetchIdeas(ctx context.Context) ([]Idea, error)
}

// Store holds the current idea set and its approval state.
type Store struct {
	source Source

	mu       sync.Mutex
	ideas    []Idea
	lastErr  error
	inFlight int
}

// NewStore creates an empty idea store backed by source.
func NewStore(source Source) *Store {
	return &Store{source: source}
}

// Refresh replaces the idea set with a fresh fetch. Concurrent refreshes are
// not coalesced; whichever response resolves last wins.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()

	fetched, err := s.source.FetchIdeas(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--

	if err == nil && len(fetched) == 0 {
		err = errors.New("no ideas returned")
	}
	if err != nil {
		s.lastErr = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		log.Printf("Idea refresh failed, keeping %d existing ideas: %v", len(s.ideas), err)
		return s.lastErr
	}

	s.ideas = append([]Idea(nil), fetched...)
	s.lastErr = nil
	log.Printf("Loaded %d ideas", len(s.ideas))
	return nil
}

// SetApproval updates one idea's approval. Unknown ids are ignored and
// reported as false.
func (s *Store) SetApproval(id string, value Approval) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.ideas {
		if s.ideas[i].ID == id {
			s.ideas[i].Approved = value
			return true
		}
	}
	return false
}

// Replace swaps in a previously persisted idea set without touching the error state.
func (s *Store) Replace(ideas []Idea) {
	s.mu.Lock()
	s.ideas = append([]Idea(nil), ideas...)
	s.mu.Unlock()
}

// Ideas returns a copy of the current idea set.
func (s *Store) Ideas() []Idea {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Idea(nil), s.ideas...)
}

// Get returns the idea with the given id.
func (s *Store) Get(id string) (Idea, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, idea := range s.ideas {
		if idea.ID == id {
			return idea, true
		}
	}
	return Idea{}, false
}

// Approved returns the ideas currently marked approved, in store order.
func (s *Store) Approved() []Idea {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Idea
	for _, idea := range s.ideas {
		if idea.Approved == Approved {
			out = append(out, idea)
		}
	}
	return out
}

// Stats counts approved, rejected and pending ideas.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Stats
	for _, idea := range s.ideas {
		switch idea.Approved {
		case Approved:
			st.Approved++
		case Rejected:
			st.Rejected++
		default:
			st.Pending++
		}
	}
	return st
}

// LastError returns the error from the most recent failed refresh, or nil
// once a refresh succeeds.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Loading reports whether a refresh is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}
