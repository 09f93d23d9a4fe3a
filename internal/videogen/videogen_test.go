package videogen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/TobiSchelling/AIStudio/internal/config"
)

func TestMockDurationRange(t *testing.T) {
	m := NewMock(5, 24, 0)
	for range 200 {
		res, err := m.Generate(context.Background(), "aerial shot")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Duration < 5 || res.Duration > 24 {
			t.Fatalf("duration %d outside [5, 24]", res.Duration)
		}
		if !slices.Contains(SampleVideos, res.VideoURL) {
			t.Fatalf("unexpected url %q", res.VideoURL)
		}
	}
}

func TestMockRejectsEmptyPrompt(t *testing.T) {
	if _, err := NewMock(5, 24, 0).Generate(context.Background(), "  "); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestMockHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMock(5, 24, time.Minute).Generate(ctx, "shot"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestHTTPGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Prompt string `json:"prompt"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Prompt != "city at night" {
			t.Errorf("expected prompt forwarded, got %q", body.Prompt)
		}
		if r.Header.Get("Authorization") != "Bearer vk" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"videoUrl": "https://cdn/x.mp4", "duration": 11}`))
	}))
	defer srv.Close()

	t.Setenv("AISTUDIO_TEST_VIDEO_KEY", "vk")
	res, err := NewHTTPGenerator(srv.URL, "AISTUDIO_TEST_VIDEO_KEY", time.Second).Generate(context.Background(), "city at night")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.VideoURL != "https://cdn/x.mp4" || res.Duration != 11 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestHTTPGeneratorErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "Failed to generate video"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewHTTPGenerator(srv.URL, "", time.Second).Generate(context.Background(), "x"); err == nil {
		t.Error("expected error for 500")
	}
}

func TestFromConfig(t *testing.T) {
	if _, ok := FromConfig(config.Video{Provider: "mock", MinDuration: 5, MaxDuration: 24}).(*Mock); !ok {
		t.Error("expected mock generator")
	}
	if _, ok := FromConfig(config.Video{Provider: "http", Endpoint: "http://x"}).(*HTTPGenerator); !ok {
		t.Error("expected http generator")
	}
}
