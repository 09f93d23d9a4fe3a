// Package videogen provides clip generators: an in-process mock that
// mimics a slow renderer, and an HTTP client for a real rendering service.
package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/TobiSchelling/AIStudio/internal/clips"
	"github.com/TobiSchelling/AIStudio/internal/config"
)

// ErrEmptyPrompt is returned for a blank prompt.
var ErrEmptyPrompt = errors.New("prompt is required")

// SampleVideos are the stock clips the mock hands out.
var SampleVideos = []string{
	"https://storage.googleapis.com/coverr-main/mp4/Mt_Baker.mp4",
	"https://storage.googleapis.com/coverr-main/mp4/Mt_Baker.mp4#t=5",
	"https://storage.googleapis.com/coverr-main/mp4/Footboys.mp4",
	"https://storage.googleapis.com/coverr-main/mp4/Snowboarding.mp4",
}

// Mock returns a random sample video with a random whole-second duration
// in [MinDuration, MaxDuration] after Delay.
type Mock struct {
	MinDuration int
	MaxDuration int
	Delay       time.Duration
	Videos      []string
}

// NewMock creates a mock generator.
func NewMock(minDuration, maxDuration int, delay time.Duration) *Mock {
	return &Mock{MinDuration: minDuration, MaxDuration: maxDuration, Delay: delay, Videos: SampleVideos}
}

// Generate implements clips.Generator.
func (m *Mock) Generate(ctx context.Context, prompt string) (clips.Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return clips.Result{}, ErrEmptyPrompt
	}

	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return clips.Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	videos := m.Videos
	if len(videos) == 0 {
		videos = SampleVideos
	}
	lo, hi := max(m.MinDuration, 1), max(m.MaxDuration, m.MinDuration, 1)
	return clips.Result{
		VideoURL: videos[rand.IntN(len(videos))],
		Duration: lo + rand.IntN(hi-lo+1),
	}, nil
}

// HTTPGenerator posts {"prompt": ...} to Endpoint and expects
// {"videoUrl": ..., "duration": N} back.
type HTTPGenerator struct {
	Endpoint string
	APIKey   string
	client   *http.Client
}

// NewHTTPGenerator creates a generator for endpoint, reading an optional
// bearer token from apiKeyEnv.
func NewHTTPGenerator(endpoint, apiKeyEnv string, timeout time.Duration) *HTTPGenerator {
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	g := &HTTPGenerator{Endpoint: endpoint, client: &http.Client{Timeout: timeout}}
	if apiKeyEnv != "" {
		g.APIKey = os.Getenv(apiKeyEnv)
	}
	return g
}

// Generate implements clips.Generator.
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (clips.Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return clips.Result{}, ErrEmptyPrompt
	}

	data, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return clips.Result{}, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewReader(data))
	if err != nil {
		return clips.Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return clips.Result{}, fmt.Errorf("video API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return clips.Result{}, fmt.Errorf("video API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var res clips.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return clips.Result{}, fmt.Errorf("decoding response: %w", err)
	}
	return res, nil
}

// FromConfig builds the generator selected by cfg.
func FromConfig(cfg config.Video) clips.Generator {
	if cfg.Provider == "http" {
		return NewHTTPGenerator(cfg.Endpoint, cfg.APIKeyEnv, time.Duration(cfg.TimeoutSeconds)*time.Second)
	}
	return NewMock(cfg.MinDuration, cfg.MaxDuration, time.Duration(cfg.DelayMillis)*time.Millisecond)
}
