package collect

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/AIStudio/internal/ideas"
)

const maxPerFeed = 20

// FeedConfig represents a single feed configuration.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedSource reads RSS/Atom feeds and merges them newest first.
type FeedSource struct {
	feeds  []FeedConfig
	parser *gofeed.Parser
}

// NewFeedSource creates a feed source.
func NewFeedSource(feeds []FeedConfig, userAgent string, client *http.Client) *FeedSource {
	parser := gofeed.NewParser()
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	if client != nil {
		parser.Client = client
	}
	return &FeedSource{feeds: feeds, parser: parser}
}

func (s *FeedSource) Name() string { return "feeds" }

type datedIdea struct {
	idea      ideas.Idea
	published time.Time
}

// Fetch parses every feed. A failing feed is skipped; only when all fail is
// an error returned.
func (s *FeedSource) Fetch(ctx context.Context, limit int) ([]ideas.Idea, error) {
	var all []datedIdea
	var lastErr error
	for _, fc := range s.feeds {
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		feed, err := s.parser.ParseURLWithContext(fc.URL, ctx)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fc.URL, err)
			lastErr = err
			continue
		}

		n := 0
		for _, item := range feed.Items {
			if n >= maxPerFeed {
				break
			}
			if d, ok := parseItem(item); ok {
				all = append(all, d)
				n++
			}
		}
		log.Printf("Parsed %d entries from %s", n, name)
	}

	if len(all) == 0 && lastErr != nil {
		return nil, lastErr
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].published.After(all[j].published)
	})

	out := make([]ideas.Idea, 0, len(all))
	for i, d := range all {
		d.idea.Interest = recencyInterest(i, len(all))
		out = append(out, d.idea)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func parseItem(item *gofeed.Item) (datedIdea, bool) {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if itemURL == "" || title == "" {
		return datedIdea{}, false
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}

	return datedIdea{
		idea: ideas.Idea{
			ID:        "feed-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(itemURL)).String(),
			Title:     title,
			Summary:   stripHTML(summary),
			SourceURL: itemURL,
		},
		published: published,
	}, true
}

// recencyInterest rates the newest third high and the oldest third low.
func recencyInterest(rank, total int) ideas.Interest {
	switch {
	case rank*3 < total:
		return ideas.InterestHigh
	case rank*3 < total*2:
		return ideas.InterestMedium
	default:
		return ideas.InterestLow
	}
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&#x27;", "'",
	).Replace(result.String())

	return strings.Join(strings.Fields(s), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
