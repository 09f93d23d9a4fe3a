package visualize

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/TobiSchelling/AIStudio/internal/llm"
	"github.com/TobiSchelling/AIStudio/internal/prompts"
)

const visualPrompt = `You are a director of photography planning b-roll for a narrated news video.

For each numbered narration line below, write one text-to-video prompt describing a single shot:
subject, setting, camera movement, lighting and mood. Keep each prompt under 40 words.
Do not put any text, captions or logos in the shot.

Narration:
%s

Respond with ONLY this JSON, with exactly %d prompts in the same order as the lines:
{
    "prompts": [
        "Prompt for line 1",
        "Prompt for line 2"
    ]
}`

// Deriver derives one visual prompt per non-blank script line.
type Deriver struct {
	provider  llm.Provider
	maxTokens int
}

// NewDeriver creates a prompt deriver. A nil provider always uses the template.
func NewDeriver(provider llm.Provider, maxTokens int) *Deriver {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Deriver{provider: provider, maxTokens: maxTokens}
}

// DerivePrompts implements prompts.Deriver. Lines the model skips get the
// template prompt, so the result always has one entry per script line.
func (d *Deriver) DerivePrompts(ctx context.Context, script string) ([]prompts.Derived, error) {
	lines := ScriptLines(script)
	if len(lines) == 0 {
		return nil, nil
	}

	generated := d.generate(ctx, lines)

	out := make([]prompts.Derived, len(lines))
	fromTemplate := 0
	for i, line := range lines {
		p := ""
		if i < len(generated) {
			p = strings.TrimSpace(generated[i])
		}
		if p == "" {
			p = TemplatePrompt(line)
			fromTemplate++
		}
		out[i] = prompts.Derived{Line: line, GeneratedPrompt: p}
	}
	if d.provider != nil && fromTemplate > 0 {
		log.Printf("%d of %d prompts used the template", fromTemplate, len(lines))
	}
	return out, nil
}

func (d *Deriver) generate(ctx context.Context, lines []string) []string {
	if d.provider == nil {
		return nil
	}

	var numbered strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&numbered, "%d. %s\n", i+1, line)
	}

	responseText, err := d.provider.Generate(ctx, fmt.Sprintf(visualPrompt, numbered.String(), len(lines)), d.maxTokens)
	if err != nil {
		log.Printf("Prompt generation failed, using templates: %v", err)
		return nil
	}
	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		return nil
	}
	generated := llm.Strings(parsed, "prompts")
	if len(generated) != len(lines) {
		log.Printf("Model returned %d prompts for %d lines", len(generated), len(lines))
	}
	return generated
}

// ScriptLines splits a script into its non-blank, trimmed lines.
func ScriptLines(script string) []string {
	var lines []string
	for _, l := range strings.Split(script, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// TemplatePrompt is the deterministic prompt for a script line.
func TemplatePrompt(line string) string {
	return fmt.Sprintf("Cinematic b-roll illustrating: %s. Wide establishing shot, slow dolly movement, natural lighting, shallow depth of field, 16:9.",
		strings.TrimRight(line, ".!? "))
}
