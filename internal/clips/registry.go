package clips

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/TobiSchelling/AIStudio/internal/prompts"
)

// ErrGenerationFailed wraps every failed generation attempt.
var ErrGenerationFailed = errors.New("video generation failed")

// Status is a clip's generation state.
type Status string

const (
	StatusGenerating Status = "generating"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// Clip is one generated video for a prompt. Prompt is a copy of the prompt
// text taken when the clip was requested; later prompt edits do not touch it.
type Clip struct {
	ID         string `json:"id"`
	PromptID   string `json:"promptId"`
	ScriptLine string `json:"scriptLine"`
	Prompt     string `json:"prompt"`
	VideoURL   string `json:"videoUrl"`
	Duration   int    `json:"duration"`
	Status     Status `json:"status"`
	TrimStart  int    `json:"trimStart"`
	TrimEnd    int    `json:"trimEnd"`
	LastError  string `json:"lastError,omitempty"`
}

// Result is what a generator returns for one prompt. Duration is in seconds.
type Result struct {
	VideoURL string `json:"videoUrl"`
	Duration int    `json:"duration"`
}

// Generator renders a prompt into a video.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Result, error)
}

// PromptSource resolves prompt ids to their current entry.
type PromptSource interface {
	Lookup(id string) (prompts.Entry, bool)
}

// Registry tracks clips and runs generations in the background.
type Registry struct {
	prompts PromptSource
	gen     Generator

	// OnSettled, if set, is called with a copy of each clip whose generation
	// finished, successfully or not.
	OnSettled func(Clip)

	mu    sync.Mutex
	clips []Clip
	wg    sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry(src PromptSource, gen Generator) *Registry {
	return &Registry{prompts: src, gen: gen}
}

// RequestClip starts generating a new clip for promptID. It reports false
// and does nothing when the prompt does not exist.
func (r *Registry) RequestClip(ctx context.Context, promptID string) (Clip, bool) {
	entry, ok := r.prompts.Lookup(promptID)
	if !ok {
		return Clip{}, false
	}

	clip := Clip{
		ID:         uuid.NewString(),
		PromptID:   entry.ID,
		ScriptLine: entry.Line,
		Prompt:     entry.EditablePrompt,
		Status:     StatusGenerating,
	}

	r.mu.Lock()
	r.clips = append(r.clips, clip)
	r.mu.Unlock()

	r.start(ctx, clip.ID, clip.Prompt, false)
	return clip, true
}

// Regenerate reruns generation for clipID from its stored prompt. The clip is
// marked generating immediately. It reports false for an unknown id.
func (r *Registry) Regenerate(ctx context.Context, clipID string) bool {
	r.mu.Lock()
	i := r.index(clipID)
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	r.clips[i].Status = StatusGenerating
	prompt := r.clips[i].Prompt
	r.mu.Unlock()

	r.start(ctx, clipID, prompt, true)
	return true
}

// SetTrim sets the trim range, keeping start strictly before end. On a ready
// clip the range is then clamped into [0, duration].
func (r *Registry) SetTrim(clipID string, start, end int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(clipID)
	if i < 0 {
		return false
	}
	c := &r.clips[i]
	start, end = min(start, end-1), max(end, start+1)
	if c.Status == StatusReady && c.Duration > 0 {
		end = max(min(end, c.Duration), 1)
		start = max(0, min(start, end-1))
	}
	c.TrimStart, c.TrimEnd = start, end
	return true
}

// Wait blocks until every in-flight generation has settled.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// Clips returns a copy of all clips in request order.
func (r *Registry) Clips() []Clip {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Clip(nil), r.clips...)
}

// ForPrompt returns the clips requested for promptID.
func (r *Registry) ForPrompt(promptID string) []Clip {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Clip
	for _, c := range r.clips {
		if c.PromptID == promptID {
			out = append(out, c)
		}
	}
	return out
}

// Get returns the clip with the given id.
func (r *Registry) Get(clipID string) (Clip, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.index(clipID); i >= 0 {
		return r.clips[i], true
	}
	return Clip{}, false
}

// Replace installs previously saved clips. Clips saved while generating
// cannot resume and are marked as errors.
func (r *Registry) Replace(clips []Clip) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clips = make([]Clip, len(clips))
	for i, c := range clips {
		if c.Status == StatusGenerating {
			c.Status = StatusError
			c.LastError = "interrupted before completion"
		}
		r.clips[i] = c
	}
}

func (r *Registry) index(clipID string) int {
	for i := range r.clips {
		if r.clips[i].ID == clipID {
			return i
		}
	}
	return -1
}

func (r *Registry) start(ctx context.Context, clipID, prompt string, regenerate bool) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		res, err := r.generate(ctx, prompt)
		if clip, ok := r.settle(clipID, res, err, regenerate); ok && r.OnSettled != nil {
			r.OnSettled(clip)
		}
	}()
}

func (r *Registry) generate(ctx context.Context, prompt string) (Result, error) {
	res, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if res.Duration <= 0 || res.VideoURL == "" {
		return Result{}, fmt.Errorf("%w: invalid result (url %q, duration %d)", ErrGenerationFailed, res.VideoURL, res.Duration)
	}
	return res, nil
}

// settle applies a finished generation. Completions apply in the order they
// arrive, so an older attempt finishing late overwrites a newer one.
func (r *Registry) settle(clipID string, res Result, err error, regenerate bool) (Clip, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(clipID)
	if i < 0 {
		return Clip{}, false
	}
	c := &r.clips[i]

	if err != nil {
		c.Status = StatusError
		c.LastError = err.Error()
		log.Printf("Clip %s failed: %v", c.ID, err)
		return *c, true
	}

	c.VideoURL = res.VideoURL
	c.Duration = res.Duration
	c.Status = StatusReady
	c.LastError = ""
	if regenerate {
		c.TrimStart = min(c.TrimStart, res.Duration-1)
	} else {
		c.TrimStart = 0
	}
	c.TrimEnd = res.Duration
	log.Printf("Clip %s ready (%ds)", c.ID, c.Duration)
	return *c, true
}
