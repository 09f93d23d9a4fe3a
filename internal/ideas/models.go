package ideas

import (
	"encoding/json"
	"fmt"
)

// Sentiment is the tone of the story behind an idea.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Interest estimates how much attention a story is getting.
type Interest string

const (
	InterestLow    Interest = "low"
	InterestMedium Interest = "medium"
	InterestHigh   Interest = "high"
)

// Approval is the tri-state review decision on an idea.
// It encodes to JSON as null (undecided), true (approved) or false (rejected).
type Approval int8

const (
	Undecided Approval = iota
	Approved
	Rejected
)

func (a Approval) String() string {
	switch a {
	case Approved:
		return "approved"
	case Rejected:
		return "rejected"
	default:
		return "undecided"
	}
}

// ParseApproval accepts the CLI/API spellings of an approval value.
func ParseApproval(s string) (Approval, error) {
	switch s {
	case "approved", "approve", "true", "yes":
		return Approved, nil
	case "rejected", "reject", "false", "no":
		return Rejected, nil
	case "undecided", "reset", "null", "":
		return Undecided, nil
	}
	return Undecided, fmt.Errorf("invalid approval value: %q", s)
}

func (a Approval) MarshalJSON() ([]byte, error) {
	switch a {
	case Approved:
		return []byte("true"), nil
	case Rejected:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (a *Approval) UnmarshalJSON(data []byte) error {
	var v *bool
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("approval must be true, false or null: %w", err)
	}
	switch {
	case v == nil:
		*a = Undecided
	case *v:
		*a = Approved
	default:
		*a = Rejected
	}
	return nil
}

// Idea is a candidate topic pulled from a news source.
type Idea struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	SourceURL string    `json:"sourceUrl"`
	Sentiment Sentiment `json:"sentiment"`
	Interest  Interest  `json:"interest"`
	Approved  Approval  `json:"approved"`
}

// Stats counts ideas by review decision.
type Stats struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
}
