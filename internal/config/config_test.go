package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated")
	}
	if cfg.Sources.RedditURL == "" || cfg.Sources.HackerNewsURL == "" {
		t.Error("expected reddit and hacker news sources")
	}
	if cfg.Sources.MaxIdeas != 15 {
		t.Errorf("expected 15 ideas, got %d", cfg.Sources.MaxIdeas)
	}
	if cfg.Summarization.Provider != "ollama" {
		t.Errorf("expected provider 'ollama', got %q", cfg.Summarization.Provider)
	}
	if cfg.Video.Provider != "mock" || cfg.Video.MinDuration != 5 || cfg.Video.MaxDuration != 24 {
		t.Errorf("unexpected video config %+v", cfg.Video)
	}
	if cfg.Collaboration.Heartbeat() != 5*time.Second || cfg.Collaboration.StaleAfter() != 15*time.Second {
		t.Errorf("unexpected collaboration timing %+v", cfg.Collaboration)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
summarization:
  provider: openai
  model: gpt-4o
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Summarization.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", cfg.Summarization.Provider)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Summarization.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.Summarization.OllamaURL)
	}
	if !cfg.Sources.StaticFallback {
		t.Error("expected static fallback on by default")
	}
	if cfg.Collaboration.Workspace != "default" {
		t.Errorf("expected default workspace, got %q", cfg.Collaboration.Workspace)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown provider":   "video:\n  provider: sora\n",
		"http sans endpoint": "video:\n  provider: http\n",
		"inverted durations": "video:\n  min_duration: 10\n  max_duration: 3\n",
		"stale <= heartbeat": "collaboration:\n  heartbeat_seconds: 5\n  stale_seconds: 5\n",
	}
	for name, data := range tests {
		if _, err := parse([]byte(data)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated from file")
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit path")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("AISTUDIO_TEST_ENV_A=from-file\nAISTUDIO_TEST_ENV_B=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AISTUDIO_TEST_ENV_B", "preset")
	os.Unsetenv("AISTUDIO_TEST_ENV_A")
	t.Cleanup(func() { os.Unsetenv("AISTUDIO_TEST_ENV_A") })

	if err := LoadEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("AISTUDIO_TEST_ENV_A"); got != "from-file" {
		t.Errorf("expected 'from-file', got %q", got)
	}
	if got := os.Getenv("AISTUDIO_TEST_ENV_B"); got != "preset" {
		t.Errorf("expected existing env kept, got %q", got)
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
	if cfg.DBPath() != filepath.Join("/custom/path", "aistudio.db") {
		t.Errorf("unexpected db path %q", cfg.DBPath())
	}
}

func TestAuthorName(t *testing.T) {
	cfg := &Config{Author: "Dana"}
	if cfg.AuthorName() != "Dana" {
		t.Errorf("expected 'Dana', got %q", cfg.AuthorName())
	}
	t.Setenv("USER", "")
	if (&Config{}).AuthorName() != "producer" {
		t.Error("expected fallback author")
	}
}
