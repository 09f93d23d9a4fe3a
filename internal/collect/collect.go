package collect

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/TobiSchelling/AIStudio/internal/config"
	"github.com/TobiSchelling/AIStudio/internal/fetch"
	"github.com/TobiSchelling/AIStudio/internal/ideas"
	"github.com/TobiSchelling/AIStudio/internal/triage"
)

// Provider is one upstream news source in the chain.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, limit int) ([]ideas.Idea, error)
}

// Result describes the last chain run.
type Result struct {
	Source   string
	Found    int
	Attempts map[string]error
}

// Chain implements ideas.Source by trying each provider in order and
// returning the first non-empty result. When every provider fails the static
// fallback ideas are returned, unless the fallback is disabled.
type Chain struct {
	providers  []Provider
	fallback   []ideas.Idea
	limit      int
	enricher   *fetch.Enricher
	classifier *triage.Classifier

	mu   sync.Mutex
	last *Result
}

// NewChain creates a chain over providers. enricher and classifier may be nil.
func NewChain(providers []Provider, fallback []ideas.Idea, limit int, enricher *fetch.Enricher, classifier *triage.Classifier) *Chain {
	if limit <= 0 {
		limit = 15
	}
	return &Chain{
		providers:  providers,
		fallback:   fallback,
		limit:      limit,
		enricher:   enricher,
		classifier: classifier,
	}
}

// NewChainFromConfig builds the Reddit, Hacker News, NewsAPI and feed chain
// described by cfg.
func NewChainFromConfig(cfg *config.Config, classifier *triage.Classifier) *Chain {
	src := cfg.Sources
	client := &http.Client{Timeout: time.Duration(src.TimeoutSeconds) * time.Second}

	var providers []Provider
	if src.RedditURL != "" {
		providers = append(providers, NewRedditSource(src.RedditURL, src.UserAgent, client))
	}
	if src.HackerNewsURL != "" {
		providers = append(providers, NewHackerNewsSource(src.HackerNewsURL, src.UserAgent, client))
	}
	if src.NewsAPI.Enabled {
		providers = append(providers, NewNewsAPISource(src.NewsAPI.APIKeyEnv, src.NewsAPI.Query, client))
	}
	if len(src.Feeds) > 0 {
		feeds := make([]FeedConfig, len(src.Feeds))
		for i, f := range src.Feeds {
			feeds[i] = FeedConfig{URL: f.URL, Name: f.Name}
		}
		providers = append(providers, NewFeedSource(feeds, src.UserAgent, client))
	}

	var fallback []ideas.Idea
	if src.StaticFallback {
		fallback = FallbackIdeas()
	}

	var enricher *fetch.Enricher
	if src.EnrichSummaries {
		enricher = fetch.NewEnricher(client.Timeout, src.UserAgent)
	}
	return NewChain(providers, fallback, src.MaxIdeas, enricher, classifier)
}

// FetchIdeas implements ideas.Source.
func (c *Chain) FetchIdeas(ctx context.Context) ([]ideas.Idea, error) {
	r := &Result{Attempts: make(map[string]error)}
	defer func() {
		c.mu.Lock()
		c.last = r
		c.mu.Unlock()
	}()

	var errs []error
	for _, p := range c.providers {
		items, err := p.Fetch(ctx, c.limit)
		if err == nil && len(items) == 0 {
			err = errors.New("no items")
		}
		r.Attempts[p.Name()] = err
		if err != nil {
			log.Printf("Idea source %s failed: %v", p.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		items = dedupe(items)
		if len(items) > c.limit {
			items = items[:c.limit]
		}
		r.Source, r.Found = p.Name(), len(items)
		log.Printf("Fetched %d ideas from %s", len(items), p.Name())
		return c.finish(ctx, items), nil
	}

	if len(c.fallback) > 0 {
		r.Source, r.Found = "fallback", len(c.fallback)
		log.Printf("All idea sources failed, using %d fallback ideas", len(c.fallback))
		return append([]ideas.Idea(nil), c.fallback...), nil
	}
	if len(errs) == 0 {
		return nil, errors.New("no idea sources configured")
	}
	return nil, errors.Join(errs...)
}

// LastResult reports the outcome of the most recent FetchIdeas call.
func (c *Chain) LastResult() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Chain) finish(ctx context.Context, items []ideas.Idea) []ideas.Idea {
	if c.enricher != nil {
		items, _ = c.enricher.Enrich(ctx, items)
	}
	if c.classifier != nil {
		items, _ = c.classifier.Classify(ctx, items)
	}
	for i := range items {
		items[i].Approved = ideas.Undecided
		if items[i].Sentiment == "" {
			items[i].Sentiment = ideas.SentimentNeutral
		}
		if items[i].Interest == "" {
			items[i].Interest = ideas.InterestMedium
		}
	}
	return items
}

func dedupe(items []ideas.Idea) []ideas.Idea {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, it := range items {
		key := strings.ToLower(strings.TrimSpace(it.SourceURL))
		if key == "" {
			key = "id:" + it.ID
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

// interestFromScore buckets an upstream popularity score.
func interestFromScore(score, medium, high int) ideas.Interest {
	switch {
	case score >= high:
		return ideas.InterestHigh
	case score >= medium:
		return ideas.InterestMedium
	default:
		return ideas.InterestLow
	}
}

func getJSON(ctx context.Context, client *http.Client, url, userAgent string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp, nil
}
