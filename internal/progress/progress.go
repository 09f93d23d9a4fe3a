// Package progress computes per-stage completion of the production workflow.
// Nothing here is cached; call Compute whenever the underlying state changes.
package progress

import (
	"math"
	"strings"

	"github.com/TobiSchelling/AIStudio/internal/clips"
	"github.com/TobiSchelling/AIStudio/internal/ideas"
	"github.com/TobiSchelling/AIStudio/internal/prompts"
)

// Snapshot is the read-only state Compute works from.
type Snapshot struct {
	Ideas        []ideas.Idea
	Draft        string
	VersionCount int
	Prompts      []prompts.Entry
	Clips        []clips.Clip
}

// Stage is the completion of one workflow step.
type Stage struct {
	Label     string `json:"label"`
	Step      int    `json:"step"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// Percent returns completion rounded to a whole percent within [0, 100].
func (s Stage) Percent() int {
	total := max(s.Total, 1)
	p := int(math.Round(100 * float64(s.Completed) / float64(total)))
	return min(max(p, 0), 100)
}

// Compute returns the four stages in workflow order.
func Compute(snap Snapshot) []Stage {
	approved := 0
	for _, idea := range snap.Ideas {
		if idea.Approved == ideas.Approved {
			approved++
		}
	}

	scriptDone := 0
	if strings.TrimSpace(snap.Draft) != "" {
		scriptDone++
	}
	if snap.VersionCount > 0 {
		scriptDone++
	}
	if len(snap.Prompts) > 0 {
		scriptDone++
	}

	promptTotal := max(len(snap.Prompts), 1)

	current := make(map[string]bool, len(snap.Prompts))
	for _, p := range snap.Prompts {
		current[p.ID] = true
	}
	withVideo := make(map[string]bool)
	for _, c := range snap.Clips {
		if c.Status == clips.StatusReady && current[c.PromptID] {
			withVideo[c.PromptID] = true
		}
	}

	return []Stage{
		{Label: "Ideation", Step: 1, Completed: approved, Total: max(len(snap.Ideas), 1)},
		{Label: "Script", Step: 2, Completed: scriptDone, Total: 3},
		{Label: "Prompts", Step: 3, Completed: min(len(snap.Prompts), promptTotal), Total: promptTotal},
		{Label: "Video", Step: 4, Completed: len(withVideo), Total: promptTotal},
	}
}
