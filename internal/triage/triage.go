package triage

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/TobiSchelling/AIStudio/internal/ideas"
	"github.com/TobiSchelling/AIStudio/internal/llm"
)

const triagePrompt = `You are screening news stories for a short-form video channel.

Classify the overall tone of this story and how likely it is to interest a general audience.

Title: %s
Summary:
%s

Respond with ONLY this JSON:
{
    "sentiment": "positive" | "neutral" | "negative",
    "interest": "low" | "medium" | "high"
}`

// Result holds the results of a classification run.
type Result struct {
	Processed int
	ByModel   int
	ByLexicon int
}

// Classifier assigns sentiment (and, when missing, interest) to ideas.
type Classifier struct {
	provider llm.Provider
}

// NewClassifier creates a classifier. A nil provider uses the lexicon only.
func NewClassifier(provider llm.Provider) *Classifier {
	return &Classifier{provider: provider}
}

// Classify returns a copy of items with Sentiment filled in. Interest is
// only set where the source did not provide one.
func (c *Classifier) Classify(ctx context.Context, items []ideas.Idea) ([]ideas.Idea, *Result) {
	out := make([]ideas.Idea, len(items))
	r := &Result{}
	for i, idea := range items {
		if ctx.Err() != nil {
			c.lexicon(&idea)
			r.ByLexicon++
		} else if c.classifyWithModel(ctx, &idea) {
			r.ByModel++
		} else {
			c.lexicon(&idea)
			r.ByLexicon++
		}
		if idea.Interest == "" {
			idea.Interest = ideas.InterestMedium
		}
		out[i] = idea
		r.Processed++
	}

	if r.Processed > 0 {
		log.Printf("Classified %d ideas (%d by model, %d by lexicon)", r.Processed, r.ByModel, r.ByLexicon)
	}
	return out, r
}

func (c *Classifier) classifyWithModel(ctx context.Context, idea *ideas.Idea) bool {
	if c.provider == nil {
		return false
	}

	summary := idea.Summary
	if summary == "" {
		summary = idea.Title
	}
	if len(summary) > 2000 {
		summary = summary[:2000] + "..."
	}

	responseText, err := c.provider.Generate(ctx, fmt.Sprintf(triagePrompt, idea.Title, summary), 128)
	if err != nil {
		log.Printf("Error classifying %q: %v", idea.Title, err)
		return false
	}
	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		return false
	}

	sentiment := ideas.Sentiment(strings.ToLower(llm.String(parsed, "sentiment")))
	switch sentiment {
	case ideas.SentimentPositive, ideas.SentimentNeutral, ideas.SentimentNegative:
		idea.Sentiment = sentiment
	default:
		return false
	}

	if idea.Interest == "" {
		interest := ideas.Interest(strings.ToLower(llm.String(parsed, "interest")))
		switch interest {
		case ideas.InterestLow, ideas.InterestMedium, ideas.InterestHigh:
			idea.Interest = interest
		}
	}
	return true
}

var (
	positiveWords = wordSet("breakthrough", "record", "wins", "win", "growth", "surge", "surges", "cure",
		"success", "rescue", "rescued", "launch", "launches", "boost", "improves", "celebrates",
		"peace", "recovery", "innovation", "saves", "milestone", "gains", "approved", "open-source")
	negativeWords = wordSet("war", "crisis", "dies", "dead", "death", "killed", "attack", "crash",
		"collapse", "fraud", "lawsuit", "sued", "ban", "banned", "outage", "breach", "layoffs",
		"recession", "fire", "flood", "earthquake", "protest", "sanctions", "scandal", "fails", "warns")
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// lexicon scores title and summary words against small word lists.
func (c *Classifier) lexicon(idea *ideas.Idea) {
	idea.Sentiment = LexiconSentiment(idea.Title + " " + idea.Summary)
}

// LexiconSentiment classifies text by counting positive and negative words.
func LexiconSentiment(text string) ideas.Sentiment {
	score := 0
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	}) {
		if positiveWords[w] {
			score++
		}
		if negativeWords[w] {
			score--
		}
	}
	switch {
	case score > 0:
		return ideas.SentimentPositive
	case score < 0:
		return ideas.SentimentNegative
	default:
		return ideas.SentimentNeutral
	}
}
