package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/TobiSchelling/AIStudio/internal/ideas"
)

// HackerNewsSource reads the Algolia Hacker News search API.
type HackerNewsSource struct {
	url       string
	userAgent string
	client    *http.Client
}

// NewHackerNewsSource creates a Hacker News source.
func NewHackerNewsSource(searchURL, userAgent string, client *http.Client) *HackerNewsSource {
	return &HackerNewsSource{url: searchURL, userAgent: userAgent, client: client}
}

func (s *HackerNewsSource) Name() string { return "hackernews" }

// Fetch returns up to limit front-page stories.
func (s *HackerNewsSource) Fetch(ctx context.Context, limit int) ([]ideas.Idea, error) {
	resp, err := getJSON(ctx, s.client, s.url, s.userAgent, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Hits []struct {
			ObjectID  string `json:"objectID"`
			Title     string `json:"title"`
			URL       string `json:"url"`
			StoryText string `json:"story_text"`
			Points    int    `json:"points"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding search: %w", err)
	}

	var out []ideas.Idea
	for _, hit := range result.Hits {
		title := strings.TrimSpace(hit.Title)
		if hit.ObjectID == "" || title == "" {
			continue
		}
		link := hit.URL
		if link == "" {
			link = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}
		out = append(out, ideas.Idea{
			ID:        "hn-" + hit.ObjectID,
			Title:     title,
			Summary:   stripHTML(hit.StoryText),
			SourceURL: link,
			Interest:  interestFromScore(hit.Points, 100, 400),
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
