package collect

import "github.com/TobiSchelling/AIStudio/internal/ideas"

// FallbackIdeas is the static set served when every live source fails.
func FallbackIdeas() []ideas.Idea {
	return []ideas.Idea{
		{
			ID:        "fallback-1",
			Title:     "AI investment surges as enterprises fast-track automation",
			Summary:   "Global organizations accelerate AI adoption to streamline operations and uncover new revenue streams.",
			SourceURL: "https://example.com/ai-investment",
			Sentiment: ideas.SentimentPositive,
			Interest:  ideas.InterestHigh,
		},
		{
			ID:        "fallback-2",
			Title:     "Climate tech startups introduce carbon-negative building materials",
			Summary:   "New carbon-negative materials gain traction among sustainable architects and developers.",
			SourceURL: "https://example.com/climate-tech",
			Sentiment: ideas.SentimentPositive,
			Interest:  ideas.InterestMedium,
		},
	}
}
