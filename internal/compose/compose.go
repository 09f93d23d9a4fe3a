package compose

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/TobiSchelling/AIStudio/internal/ideas"
	"github.com/TobiSchelling/AIStudio/internal/llm"
)

// ErrNoApprovedIdeas is returned when there is nothing to write a script about.
var ErrNoApprovedIdeas = errors.New("no approved ideas")

const scriptPrompt = `You are a scriptwriter for short news explainer videos.

Write a narration script covering these approved story ideas:

%s

Rules:
- One spoken sentence per line, no blank lines.
- Open with a hook line, give each idea two or three lines, close with a sign-off line.
- Plain text only: no headings, no bullet markers, no stage directions.

Respond with ONLY this JSON:
{
    "lines": [
        "First spoken line",
        "Second spoken line"
    ]
}`

// Composer turns approved ideas into a draft narration script.
type Composer struct {
	provider  llm.Provider
	maxTokens int
}

// NewComposer creates a composer. A nil provider always uses the template.
func NewComposer(provider llm.Provider, maxTokens int) *Composer {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Composer{provider: provider, maxTokens: maxTokens}
}

// DeriveScript writes a script from the approved ideas, one line per sentence.
func (c *Composer) DeriveScript(ctx context.Context, approved []ideas.Idea) (string, error) {
	if len(approved) == 0 {
		return "", ErrNoApprovedIdeas
	}
	if c.provider == nil {
		return templateScript(approved), nil
	}

	var parts []string
	for i, idea := range approved {
		parts = append(parts, fmt.Sprintf("%d. %s\n   %s", i+1, idea.Title, idea.Summary))
	}

	responseText, err := c.provider.Generate(ctx, fmt.Sprintf(scriptPrompt, strings.Join(parts, "\n")), c.maxTokens)
	if err != nil {
		log.Printf("Script generation failed, using template: %v", err)
		return templateScript(approved), nil
	}

	if parsed := llm.ParseJSONResponse(responseText); parsed != nil {
		if lines := cleanLines(llm.Strings(parsed, "lines")); len(lines) > 0 {
			return strings.Join(lines, "\n"), nil
		}
	}

	if lines := cleanLines(strings.Split(responseText, "\n")); len(lines) > 0 {
		return strings.Join(lines, "\n"), nil
	}
	return templateScript(approved), nil
}

func templateScript(approved []ideas.Idea) string {
	lines := []string{"Here's what's moving the world today."}
	for _, idea := range approved {
		lines = append(lines, sentence(idea.Title))
		if s := strings.TrimSpace(idea.Summary); s != "" {
			lines = append(lines, s)
		}
	}
	lines = append(lines, "That's the rundown. Stay curious and we'll see you next time.")
	return strings.Join(cleanLines(lines), "\n")
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s[len(s)-1:], ".!?") {
		return s
	}
	return s + "."
}

// cleanLines trims lines, strips list markers and drops blanks.
func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimLeft(l, "-*• ")
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
