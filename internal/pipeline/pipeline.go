package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/TobiSchelling/AIStudio/internal/clips"
	"github.com/TobiSchelling/AIStudio/internal/ideas"
	"github.com/TobiSchelling/AIStudio/internal/script"
	"github.com/TobiSchelling/AIStudio/internal/workspace"
)

const totalSteps = 5

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Steps []StepResult
}

// Failed reports whether any step returned an error.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline drives a workspace from ideas to clips in one go.
type Pipeline struct {
	ws *workspace.Workspace

	// Refresh re-fetches ideas even when some are already loaded. A refresh
	// replaces the idea set, so earlier review decisions are dropped.
	Refresh bool
}

// New creates a new pipeline.
func New(ws *workspace.Workspace) *Pipeline {
	return &Pipeline{ws: ws}
}

// Run executes ideas -> script -> commit -> prompts -> clips. It stops at the
// first step without which later steps have nothing to work on.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{}

	step := p.runIdeas(ctx)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	step = p.runScript(ctx)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	step = p.runCommit()
	r.Steps = append(r.Steps, step)

	step = p.runPrompts(ctx)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	r.Steps = append(r.Steps, p.runClips(ctx))
	return r
}

// DryRun shows what would be done without executing.
func (p *Pipeline) DryRun() *Result {
	r := &Result{}
	ws := p.ws

	stats := ws.Ideas.Stats()
	total := stats.Approved + stats.Rejected + stats.Pending
	switch {
	case total == 0:
		r.Steps = append(r.Steps, StepResult{Name: "Ideas", Summary: "[dry-run] No ideas yet, would refresh from sources"})
	case p.Refresh:
		r.Steps = append(r.Steps, StepResult{
			Name:    "Ideas",
			Summary: fmt.Sprintf("[dry-run] Would replace %d ideas from sources, dropping %d approvals", total, stats.Approved),
		})
	case stats.Approved == 0:
		r.Steps = append(r.Steps, StepResult{
			Name:    "Ideas",
			Summary: fmt.Sprintf("[dry-run] %d ideas loaded, none approved; would auto-approve %d by interest", total, len(p.autoApprovable())),
		})
	default:
		r.Steps = append(r.Steps, StepResult{
			Name:    "Ideas",
			Summary: fmt.Sprintf("[dry-run] %d ideas loaded, %d approved", total, stats.Approved),
		})
	}

	if strings.TrimSpace(ws.Script.Draft()) == "" {
		r.Steps = append(r.Steps, StepResult{Name: "Script", Summary: fmt.Sprintf("[dry-run] Would draft a script from %d approved ideas", stats.Approved)})
	} else {
		r.Steps = append(r.Steps, StepResult{Name: "Script", Summary: "[dry-run] Draft already exists"})
	}

	r.Steps = append(r.Steps, StepResult{
		Name:    "Commit",
		Summary: fmt.Sprintf("[dry-run] Would add revision %d", len(ws.Script.State().Versions)+1),
	})

	if ws.Prompts.Len() == 0 {
		r.Steps = append(r.Steps, StepResult{Name: "Prompts", Summary: "[dry-run] Would derive prompts from the script"})
	} else {
		r.Steps = append(r.Steps, StepResult{Name: "Prompts", Summary: fmt.Sprintf("[dry-run] %d prompts already exist", ws.Prompts.Len())})
	}

	r.Steps = append(r.Steps, StepResult{
		Name:    "Clips",
		Summary: fmt.Sprintf("[dry-run] %d prompts need a clip", len(p.promptsNeedingClips())),
	})
	return r
}

func (p *Pipeline) runIdeas(ctx context.Context) StepResult {
	stats := p.ws.Ideas.Stats()
	loaded := stats.Approved + stats.Rejected + stats.Pending

	var err error
	if loaded == 0 || p.Refresh {
		log.Printf("Step 1/%d: Refreshing ideas...", totalSteps)
		err = p.ws.RefreshIdeas(ctx)
		stats = p.ws.Ideas.Stats()
		if err != nil && stats.Approved+stats.Rejected+stats.Pending == 0 {
			return StepResult{Name: "Ideas", Err: err}
		}
	} else {
		log.Printf("Step 1/%d: Using %d loaded ideas", totalSteps, loaded)
	}

	// With nothing approved, take the undecided high-interest ideas.
	// Rejections are never overridden.
	autoApproved := 0
	if stats.Approved == 0 {
		for _, id := range p.autoApprovable() {
			if p.ws.SetApproval(id, ideas.Approved) {
				autoApproved++
			}
		}
		stats = p.ws.Ideas.Stats()
	}

	summary := fmt.Sprintf("%d ideas, %d approved", stats.Approved+stats.Rejected+stats.Pending, stats.Approved)
	if autoApproved > 0 {
		summary += fmt.Sprintf(" (%d auto-approved by interest)", autoApproved)
	}
	if err != nil {
		summary += fmt.Sprintf("; refresh failed, kept previous ideas: %v", err)
	}
	return StepResult{Name: "Ideas", Summary: summary}
}

func (p *Pipeline) autoApprovable() []string {
	var ids []string
	for _, idea := range p.ws.Ideas.Ideas() {
		if idea.Approved == ideas.Undecided && idea.Interest == ideas.InterestHigh {
			ids = append(ids, idea.ID)
		}
	}
	return ids
}

func (p *Pipeline) runScript(ctx context.Context) StepResult {
	log.Printf("Step 2/%d: Drafting script...", totalSteps)
	text, err := p.ws.GenerateScript(ctx)
	if err != nil {
		return StepResult{Name: "Script", Err: err}
	}
	return StepResult{
		Name:    "Script",
		Summary: fmt.Sprintf("Drafted %d lines with %s", len(strings.Split(text, "\n")), p.ws.ModelName()),
	}
}

func (p *Pipeline) runCommit() StepResult {
	log.Printf("Step 3/%d: Committing revision...", totalSteps)
	v, err := p.ws.Commit()
	if errors.Is(err, script.ErrEmptyCommit) {
		return StepResult{Name: "Commit", Summary: "Draft is empty, nothing committed"}
	}
	if err != nil {
		return StepResult{Name: "Commit", Err: err}
	}
	return StepResult{Name: "Commit", Summary: fmt.Sprintf("Committed %s", v.Title)}
}

func (p *Pipeline) runPrompts(ctx context.Context) StepResult {
	log.Printf("Step 4/%d: Deriving prompts...", totalSteps)
	if err := p.ws.GeneratePrompts(ctx); err != nil {
		return StepResult{Name: "Prompts", Err: err}
	}
	return StepResult{Name: "Prompts", Summary: fmt.Sprintf("Derived %d prompts", p.ws.Prompts.Len())}
}

func (p *Pipeline) runClips(ctx context.Context) StepResult {
	log.Printf("Step 5/%d: Generating clips...", totalSteps)
	var requested []string
	for _, id := range p.promptsNeedingClips() {
		if c, ok := p.ws.RequestClip(ctx, id); ok {
			requested = append(requested, c.ID)
		}
	}
	p.ws.Clips.Wait()

	ready, failed := 0, 0
	for _, id := range requested {
		c, _ := p.ws.Clips.Get(id)
		switch c.Status {
		case clips.StatusReady:
			ready++
		case clips.StatusError:
			failed++
		}
	}
	return StepResult{
		Name:    "Clips",
		Summary: fmt.Sprintf("Generated %d clips, %d failed", ready, failed),
	}
}

// promptsNeedingClips lists prompts with no ready or generating clip.
func (p *Pipeline) promptsNeedingClips() []string {
	var ids []string
	for _, e := range p.ws.Prompts.Entries() {
		covered := false
		for _, c := range p.ws.Clips.ForPrompt(e.ID) {
			if c.Status != clips.StatusError {
				covered = true
				break
			}
		}
		if !covered {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
