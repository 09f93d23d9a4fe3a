package clips

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/TobiSchelling/AIStudio/internal/prompts"
)

type stubPrompts map[string]prompts.Entry

func (s stubPrompts) Lookup(id string) (prompts.Entry, bool) {
	e, ok := s[id]
	return e, ok
}

// mockGenerator returns queued results in order, then repeats the last one.
type mockGenerator struct {
	mu      sync.Mutex
	results []Result
	errs    []error
	prompts []string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	var res Result
	var err error
	if len(m.results) > 0 {
		res = m.results[0]
		if len(m.results) > 1 {
			m.results = m.results[1:]
		}
	}
	if len(m.errs) > 0 {
		err = m.errs[0]
		if len(m.errs) > 1 {
			m.errs = m.errs[1:]
		}
	}
	return res, err
}

// gatedGenerator blocks every call until release is closed.
type gatedGenerator struct {
	release chan struct{}
	res     Result
}

func (g *gatedGenerator) Generate(ctx context.Context, _ string) (Result, error) {
	<-g.release
	return g.res, nil
}

func testPrompts() stubPrompts {
	return stubPrompts{
		"p1": {ID: "p1", Line: "Opening line", GeneratedPrompt: "wide shot", EditablePrompt: "wide shot, dusk"},
	}
}

func TestRequestClipReady(t *testing.T) {
	gen := &mockGenerator{results: []Result{{VideoURL: "https://cdn/a.mp4", Duration: 12}}}
	reg := NewRegistry(testPrompts(), gen)

	clip, ok := reg.RequestClip(context.Background(), "p1")
	if !ok {
		t.Fatal("expected request to succeed")
	}
	if clip.Status != StatusGenerating || clip.Duration != 0 || clip.TrimEnd != 0 {
		t.Errorf("expected fresh generating clip, got %+v", clip)
	}
	if clip.Prompt != "wide shot, dusk" || clip.ScriptLine != "Opening line" {
		t.Errorf("expected snapshot of editable prompt and line, got %+v", clip)
	}

	reg.Wait()
	got, _ := reg.Get(clip.ID)
	if got.Status != StatusReady || got.Duration != 12 || got.TrimStart != 0 || got.TrimEnd != 12 {
		t.Errorf("expected ready clip trimmed 0..12, got %+v", got)
	}
	if got.VideoURL != "https://cdn/a.mp4" {
		t.Errorf("expected url set, got %q", got.VideoURL)
	}
}

func TestRequestClipUnknownPrompt(t *testing.T) {
	reg := NewRegistry(testPrompts(), &mockGenerator{})
	if _, ok := reg.RequestClip(context.Background(), "nope"); ok {
		t.Error("expected unknown prompt to report false")
	}
	if len(reg.Clips()) != 0 {
		t.Error("expected no clip created")
	}
}

func TestRequestClipFailure(t *testing.T) {
	gen := &mockGenerator{errs: []error{errors.New("renderer down")}}
	reg := NewRegistry(testPrompts(), gen)

	clip, _ := reg.RequestClip(context.Background(), "p1")
	reg.Wait()

	got, _ := reg.Get(clip.ID)
	if got.Status != StatusError {
		t.Errorf("expected error status, got %s", got.Status)
	}
	if got.VideoURL != "" || got.Duration != 0 {
		t.Errorf("expected url/duration untouched, got %+v", got)
	}
	if got.LastError == "" {
		t.Error("expected lastError recorded")
	}
}

func TestInvalidResultIsFailure(t *testing.T) {
	gen := &mockGenerator{results: []Result{{VideoURL: "https://cdn/a.mp4", Duration: 0}}}
	reg := NewRegistry(testPrompts(), gen)

	clip, _ := reg.RequestClip(context.Background(), "p1")
	reg.Wait()
	if got, _ := reg.Get(clip.ID); got.Status != StatusError {
		t.Errorf("expected zero duration treated as failure, got %s", got.Status)
	}
}

func TestRegenerateClampsTrimStart(t *testing.T) {
	gen := &mockGenerator{results: []Result{
		{VideoURL: "https://cdn/a.mp4", Duration: 20},
		{VideoURL: "https://cdn/b.mp4", Duration: 8},
	}}
	reg := NewRegistry(testPrompts(), gen)
	ctx := context.Background()

	clip, _ := reg.RequestClip(ctx, "p1")
	reg.Wait()
	reg.SetTrim(clip.ID, 15, 18)

	if !reg.Regenerate(ctx, clip.ID) {
		t.Fatal("expected regenerate to succeed")
	}
	reg.Wait()

	got, _ := reg.Get(clip.ID)
	if got.TrimStart != 7 || got.TrimEnd != 8 || got.Duration != 8 {
		t.Errorf("expected trim 7..8 of 8s, got %d..%d of %ds", got.TrimStart, got.TrimEnd, got.Duration)
	}
	if got.VideoURL != "https://cdn/b.mp4" {
		t.Errorf("expected new url, got %q", got.VideoURL)
	}
}

func TestRegenerateUsesFrozenPrompt(t *testing.T) {
	src := testPrompts()
	gen := &mockGenerator{results: []Result{{VideoURL: "u", Duration: 5}}}
	reg := NewRegistry(src, gen)
	ctx := context.Background()

	clip, _ := reg.RequestClip(ctx, "p1")
	reg.Wait()
	e := src["p1"]
	e.EditablePrompt = "changed later"
	src["p1"] = e

	reg.Regenerate(ctx, clip.ID)
	reg.Wait()
	if gen.prompts[1] != "wide shot, dusk" {
		t.Errorf("expected frozen prompt, got %q", gen.prompts[1])
	}
}

func TestRegenerateFailureKeepsTrims(t *testing.T) {
	gen := &mockGenerator{
		results: []Result{{VideoURL: "u", Duration: 10}},
		errs:    []error{nil, errors.New("boom")},
	}
	reg := NewRegistry(testPrompts(), gen)
	ctx := context.Background()

	clip, _ := reg.RequestClip(ctx, "p1")
	reg.Wait()
	reg.SetTrim(clip.ID, 2, 6)
	reg.Regenerate(ctx, clip.ID)
	reg.Wait()

	got, _ := reg.Get(clip.ID)
	if got.Status != StatusError || got.TrimStart != 2 || got.TrimEnd != 6 || got.Duration != 10 {
		t.Errorf("expected error with trims/duration untouched, got %+v", got)
	}
}

func TestRegenerateMarksGeneratingImmediately(t *testing.T) {
	gate := &gatedGenerator{release: make(chan struct{}), res: Result{VideoURL: "u", Duration: 9}}
	reg := NewRegistry(testPrompts(), gate)
	ctx := context.Background()

	clip, _ := reg.RequestClip(ctx, "p1")
	reg.Regenerate(ctx, clip.ID)
	if got, _ := reg.Get(clip.ID); got.Status != StatusGenerating {
		t.Errorf("expected generating, got %s", got.Status)
	}
	close(gate.release)
	reg.Wait()
	if got, _ := reg.Get(clip.ID); got.Status != StatusReady {
		t.Errorf("expected ready, got %s", got.Status)
	}
}

func TestRegenerateUnknown(t *testing.T) {
	reg := NewRegistry(testPrompts(), &mockGenerator{})
	if reg.Regenerate(context.Background(), "missing") {
		t.Error("expected unknown clip to report false")
	}
}

func TestSetTrim(t *testing.T) {
	reg := NewRegistry(testPrompts(), &mockGenerator{results: []Result{{VideoURL: "u", Duration: 10}}})
	clip, _ := reg.RequestClip(context.Background(), "p1")
	reg.Wait()

	tests := []struct {
		start, end         int
		wantStart, wantEnd int
	}{
		{2, 8, 2, 8},
		{5, 5, 4, 6},
		{7, 3, 2, 8},
		{0, 10, 0, 10},
		{10, 5, 4, 10},
		{-3, 4, 0, 4},
		{12, 20, 9, 10},
		{-6, -2, 0, 1},
	}
	for _, tt := range tests {
		reg.SetTrim(clip.ID, tt.start, tt.end)
		got, _ := reg.Get(clip.ID)
		if got.TrimStart != tt.wantStart || got.TrimEnd != tt.wantEnd {
			t.Errorf("SetTrim(%d, %d): expected %d..%d, got %d..%d",
				tt.start, tt.end, tt.wantStart, tt.wantEnd, got.TrimStart, got.TrimEnd)
		}
	}

	if reg.SetTrim("missing", 1, 2) {
		t.Error("expected unknown clip to report false")
	}
}

func TestSetTrimWhileGeneratingIsNotClamped(t *testing.T) {
	gate := &gatedGenerator{release: make(chan struct{}), res: Result{VideoURL: "u", Duration: 9}}
	reg := NewRegistry(testPrompts(), gate)
	clip, _ := reg.RequestClip(context.Background(), "p1")

	reg.SetTrim(clip.ID, 10, 5)
	got, _ := reg.Get(clip.ID)
	if got.TrimStart != 4 || got.TrimEnd != 11 {
		t.Errorf("expected raw trim 4..11, got %d..%d", got.TrimStart, got.TrimEnd)
	}
	close(gate.release)
	reg.Wait()
}

func TestOnSettledAndForPrompt(t *testing.T) {
	reg := NewRegistry(testPrompts(), &mockGenerator{results: []Result{{VideoURL: "u", Duration: 6}}})
	var mu sync.Mutex
	var settled []Clip
	reg.OnSettled = func(c Clip) {
		mu.Lock()
		settled = append(settled, c)
		mu.Unlock()
	}

	ctx := context.Background()
	reg.RequestClip(ctx, "p1")
	reg.RequestClip(ctx, "p1")
	reg.Wait()

	if len(settled) != 2 {
		t.Errorf("expected 2 settled callbacks, got %d", len(settled))
	}
	if n := len(reg.ForPrompt("p1")); n != 2 {
		t.Errorf("expected 2 clips for prompt, got %d", n)
	}
}

func TestReplaceMarksInterrupted(t *testing.T) {
	reg := NewRegistry(testPrompts(), &mockGenerator{})
	reg.Replace([]Clip{
		{ID: "c1", PromptID: "p1", Status: StatusGenerating},
		{ID: "c2", PromptID: "p1", Status: StatusReady, Duration: 5, TrimEnd: 5},
	})

	c1, _ := reg.Get("c1")
	if c1.Status != StatusError {
		t.Errorf("expected interrupted clip marked error, got %s", c1.Status)
	}
	c2, _ := reg.Get("c2")
	if c2.Status != StatusReady {
		t.Errorf("expected ready clip kept, got %s", c2.Status)
	}
}
