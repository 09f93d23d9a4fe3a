package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/TobiSchelling/AIStudio/internal/ideas"
)

// RedditSource reads a subreddit listing such as /r/worldnews/top.json.
type RedditSource struct {
	url       string
	userAgent string
	client    *http.Client
}

// NewRedditSource creates a Reddit listing source.
func NewRedditSource(listingURL, userAgent string, client *http.Client) *RedditSource {
	return &RedditSource{url: listingURL, userAgent: userAgent, client: client}
}

func (s *RedditSource) Name() string { return "reddit" }

// Fetch returns up to limit posts from the listing.
func (s *RedditSource) Fetch(ctx context.Context, limit int) ([]ideas.Idea, error) {
	resp, err := getJSON(ctx, s.client, withLimit(s.url, limit), s.userAgent, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var listing struct {
		Data struct {
			Children []struct {
				Data struct {
					ID        string `json:"id"`
					Title     string `json:"title"`
					Selftext  string `json:"selftext"`
					URL       string `json:"url"`
					Permalink string `json:"permalink"`
					Score     int    `json:"score"`
					Over18    bool   `json:"over_18"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decoding listing: %w", err)
	}

	var out []ideas.Idea
	for _, child := range listing.Data.Children {
		post := child.Data
		title := strings.TrimSpace(post.Title)
		if post.ID == "" || title == "" || post.Over18 {
			continue
		}
		link := post.URL
		if link == "" && post.Permalink != "" {
			link = "https://www.reddit.com" + post.Permalink
		}
		out = append(out, ideas.Idea{
			ID:        "reddit-" + post.ID,
			Title:     title,
			Summary:   stripHTML(post.Selftext),
			SourceURL: link,
			Interest:  interestFromScore(post.Score, 5000, 20000),
		})
	}
	return out, nil
}

func withLimit(rawURL string, limit int) string {
	if strings.Contains(rawURL, "limit=") || limit <= 0 {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%slimit=%d", rawURL, sep, limit)
}
