package fetch

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"

	"github.com/TobiSchelling/AIStudio/internal/ideas"
)

const (
	maxBodyBytes   = 4 << 20
	maxSummaryLen  = 320
	minArticleText = 100
)

// Result holds the results of an enrichment run.
type Result struct {
	Fetched           int
	AlreadyHadSummary int
	Failed            int
}

// Enricher fills empty idea summaries from the linked article's text.
type Enricher struct {
	client    *http.Client
	userAgent string
}

// NewEnricher creates a new summary enricher.
func NewEnricher(timeout time.Duration, userAgent string) *Enricher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if userAgent == "" {
		userAgent = "AIStudio/1.0"
	}
	return &Enricher{
		userAgent: userAgent,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Enrich returns a copy of items where ideas without a summary get one
// extracted from their source page. After an HTTP error status, remaining
// ideas from the same domain are skipped.
func (e *Enricher) Enrich(ctx context.Context, items []ideas.Idea) ([]ideas.Idea, *Result) {
	out := append([]ideas.Idea(nil), items...)
	result := &Result{}
	failedDomains := make(map[string]struct{})

	for i := range out {
		idea := &out[i]
		if strings.TrimSpace(idea.Summary) != "" {
			result.AlreadyHadSummary++
			continue
		}
		if idea.SourceURL == "" || ctx.Err() != nil {
			result.Failed++
			continue
		}

		domain := ""
		if u, err := url.Parse(idea.SourceURL); err == nil {
			domain = strings.ToLower(u.Host)
		}
		if _, failed := failedDomains[domain]; failed {
			result.Failed++
			continue
		}

		text, httpErr := e.fetchArticleText(ctx, idea.SourceURL)
		if httpErr != nil {
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("HTTP error for %s, skipping remaining from %s", idea.SourceURL, domain)
			continue
		}
		if text == "" {
			result.Failed++
			continue
		}

		idea.Summary = Summarize(text, maxSummaryLen)
		result.Fetched++
	}

	if result.Fetched+result.Failed > 0 {
		log.Printf("Summary enrichment complete: %d fetched, %d failed", result.Fetched, result.Failed)
	}
	return out, result
}

func (e *Enricher) fetchArticleText(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", nil
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", nil // connection error, not HTTP error
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > minArticleText {
		return text, nil
	}
	return "", nil
}

// Summarize collapses whitespace and cuts text to at most limit bytes,
// preferring a sentence boundary.
func Summarize(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= limit {
		return text
	}

	cut := text[:limit]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	if i := strings.LastIndexAny(cut, ".!?"); i > limit/3 {
		return cut[:i+1]
	}
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
