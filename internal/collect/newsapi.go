package collect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/TobiSchelling/AIStudio/internal/ideas"
)

const newsAPIBaseURL = "https://newsapi.org/v2/top-headlines"

// NewsAPISource reads top headlines from NewsAPI. It is skipped when no API
// key is set.
type NewsAPISource struct {
	apiKey  string
	query   string
	baseURL string
	client  *http.Client
}

// NewNewsAPISource creates a NewsAPI source reading its key from apiKeyEnv.
func NewNewsAPISource(apiKeyEnv, query string, client *http.Client) *NewsAPISource {
	return &NewsAPISource{
		apiKey:  os.Getenv(apiKeyEnv),
		query:   query,
		baseURL: newsAPIBaseURL,
		client:  client,
	}
}

func (s *NewsAPISource) Name() string { return "newsapi" }

// IsConfigured returns whether the API key is available.
func (s *NewsAPISource) IsConfigured() bool {
	return s.apiKey != ""
}

// Fetch returns up to limit headlines.
func (s *NewsAPISource) Fetch(ctx context.Context, limit int) ([]ideas.Idea, error) {
	if !s.IsConfigured() {
		return nil, errors.New("API key not set")
	}

	params := url.Values{
		"language": {"en"},
		"pageSize": {fmt.Sprintf("%d", min(max(limit, 1), 100))},
	}
	if s.query != "" {
		params.Set("q", s.query)
	}

	resp, err := getJSON(ctx, s.client, s.baseURL+"?"+params.Encode(), "", http.Header{"X-Api-Key": {s.apiKey}})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Articles []struct {
			URL         string `json:"url"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Content     string `json:"content"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding headlines: %w", err)
	}
	if result.Status != "ok" {
		return nil, fmt.Errorf("status %q: %s", result.Status, result.Message)
	}

	var out []ideas.Idea
	for i, a := range result.Articles {
		if a.URL == "" || a.Title == "" || a.Title == "[Removed]" || a.URL == "https://removed.com" {
			continue
		}
		summary := a.Description
		if summary == "" {
			summary = a.Content
		}
		out = append(out, ideas.Idea{
			ID:        "newsapi-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(a.URL)).String(),
			Title:     strings.TrimSpace(a.Title),
			Summary:   stripHTML(summary),
			SourceURL: a.URL,
			// Headlines arrive ranked.
			Interest: recencyInterest(i, len(result.Articles)),
		})
	}
	return out, nil
}
