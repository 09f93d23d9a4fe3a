package compose

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/TobiSchelling/AIStudio/internal/ideas"
)

type mockProvider struct {
	response string
	err      error
	prompt   string
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	m.prompt = prompt
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }
func (m *mockProvider) Name() string       { return "mock/test" }

var approved = []ideas.Idea{
	{ID: "1", Title: "Battery breakthrough", Summary: "Solid-state cells hit mass production.", Approved: ideas.Approved},
	{ID: "2", Title: "Ocean cleanup milestone", Approved: ideas.Approved},
}

func TestDeriveScriptFromLLM(t *testing.T) {
	resp, _ := json.Marshal(map[string]any{
		"lines": []string{"Big news in batteries.", "  ", "- The ocean is getting cleaner."},
	})
	provider := &mockProvider{response: string(resp)}

	script, err := NewComposer(provider, 0).DeriveScript(context.Background(), approved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if script != "Big news in batteries.\nThe ocean is getting cleaner." {
		t.Errorf("unexpected script %q", script)
	}
	if !strings.Contains(provider.prompt, "Battery breakthrough") || !strings.Contains(provider.prompt, "Ocean cleanup milestone") {
		t.Error("expected prompt to list every approved idea")
	}
}

func TestDeriveScriptPlainTextResponse(t *testing.T) {
	provider := &mockProvider{response: "Line one.\n\nLine two."}
	script, _ := NewComposer(provider, 0).DeriveScript(context.Background(), approved)
	if script != "Line one.\nLine two." {
		t.Errorf("unexpected script %q", script)
	}
}

func TestDeriveScriptFallsBackOnError(t *testing.T) {
	provider := &mockProvider{err: errors.New("timeout")}
	script, err := NewComposer(provider, 0).DeriveScript(context.Background(), approved)
	if err != nil {
		t.Fatalf("expected template fallback, got %v", err)
	}
	if script != templateScript(approved) {
		t.Errorf("expected template script, got %q", script)
	}
}

func TestTemplateScript(t *testing.T) {
	script, _ := NewComposer(nil, 0).DeriveScript(context.Background(), approved)
	lines := strings.Split(script, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), script)
	}
	if lines[1] != "Battery breakthrough." || lines[2] != "Solid-state cells hit mass production." {
		t.Errorf("unexpected idea lines %q", lines[1:3])
	}
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			t.Error("expected no blank lines")
		}
	}
}

func TestDeriveScriptNoIdeas(t *testing.T) {
	_, err := NewComposer(nil, 0).DeriveScript(context.Background(), nil)
	if !errors.Is(err, ErrNoApprovedIdeas) {
		t.Errorf("expected ErrNoApprovedIdeas, got %v", err)
	}
}
