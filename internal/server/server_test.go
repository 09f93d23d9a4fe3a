package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/AIStudio/internal/clips"
	"github.com/TobiSchelling/AIStudio/internal/collab"
	"github.com/TobiSchelling/AIStudio/internal/ideas"
	"github.com/TobiSchelling/AIStudio/internal/videogen"
	"github.com/TobiSchelling/AIStudio/internal/workspace"
)

type fakeSource struct {
	items []ideas.Idea
}

func (f *fakeSource) FetchIdeas(context.Context) ([]ideas.Idea, error) {
	return f.items, nil
}

type fakeGenerator struct{}

func (fakeGenerator) Generate(context.Context, string) (clips.Result, error) {
	return clips.Result{VideoURL: "https://cdn.example/clip.mp4", Duration: 12}, nil
}

func newTestServer(t *testing.T) (*Server, *workspace.Workspace) {
	t.Helper()
	ws := workspace.New(nil, workspace.Deps{
		Source: &fakeSource{items: []ideas.Idea{
			{ID: "1", Title: "Harbour reopens", Summary: "Repairs finished.", Sentiment: ideas.SentimentPositive, Interest: ideas.InterestHigh},
			{ID: "2", Title: "Rail strike", Sentiment: ideas.SentimentNegative, Interest: ideas.InterestLow},
		}},
		Generator: fakeGenerator{},
		Author:    "tester",
	})
	t.Cleanup(ws.Close)

	srv, err := New(ws, videogen.NewMock(5, 24, 0))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	t.Cleanup(srv.hub.Close)
	return srv, ws
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexRoute(t *testing.T) {
	srv, ws := newTestServer(t)
	ws.RefreshIdeas(context.Background())

	rec := do(t, srv, "GET", "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Harbour reopens", "Ideation", "Video", "Refresh ideas"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response body", want)
		}
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	if rec := do(t, srv, "GET", "/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestVideosEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, "POST", "/api/videos", `{"prompt": "Aerial shot of a harbour"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res clips.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if res.VideoURL == "" || res.Duration < 5 || res.Duration > 24 {
		t.Errorf("unexpected result %+v", res)
	}

	rec = do(t, srv, "POST", "/api/videos", `{"prompt": "   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank prompt, got %d", rec.Code)
	}
	rec = do(t, srv, "POST", "/api/videos", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing prompt, got %d", rec.Code)
	}
}

func TestAPIWorkflow(t *testing.T) {
	srv, ws := newTestServer(t)

	if rec := do(t, srv, "POST", "/api/ideas/refresh", ""); rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", rec.Code)
	}
	if rec := do(t, srv, "PUT", "/api/ideas/1/approval", `{"approved": true}`); rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d", rec.Code)
	}
	if rec := do(t, srv, "PUT", "/api/ideas/missing/approval", `{"approved": true}`); rec.Code != http.StatusNotFound {
		t.Errorf("approve unknown: expected 404, got %d", rec.Code)
	}

	if rec := do(t, srv, "POST", "/api/script/commit", ""); rec.Code != http.StatusConflict {
		t.Errorf("empty commit: expected 409, got %d", rec.Code)
	}
	if rec := do(t, srv, "POST", "/api/script/generate", ""); rec.Code != http.StatusOK {
		t.Fatalf("generate script: expected 200, got %d", rec.Code)
	}
	rec := do(t, srv, "POST", "/api/script/commit", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("commit: expected 201, got %d", rec.Code)
	}

	if rec := do(t, srv, "POST", "/api/prompts/generate", ""); rec.Code != http.StatusOK {
		t.Fatalf("generate prompts: expected 200, got %d", rec.Code)
	}
	entries := ws.Prompts.Entries()

	rec = do(t, srv, "POST", "/api/prompts/bulk", `{"text": "first\n\n  second  "}`)
	var bulk struct {
		Applied int `json:"applied"`
	}
	json.Unmarshal(rec.Body.Bytes(), &bulk)
	if bulk.Applied != 2 {
		t.Errorf("expected 2 prompts applied, got %d", bulk.Applied)
	}
	if e, _ := ws.Prompts.Lookup(entries[1].ID); e.EditablePrompt != "second" {
		t.Errorf("expected positional bulk apply, got %q", e.EditablePrompt)
	}

	rec = do(t, srv, "POST", "/api/clips", `{"promptId": "`+entries[0].ID+`"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("request clip: expected 202, got %d", rec.Code)
	}
	var clip clips.Clip
	json.Unmarshal(rec.Body.Bytes(), &clip)
	if clip.Prompt != "first" {
		t.Errorf("expected frozen prompt 'first', got %q", clip.Prompt)
	}
	ws.Clips.Wait()

	rec = do(t, srv, "PUT", "/api/clips/"+clip.ID+"/trim", `{"start": 4, "end": 3}`)
	json.Unmarshal(rec.Body.Bytes(), &clip)
	if clip.TrimStart != 2 || clip.TrimEnd != 5 {
		t.Errorf("expected trim 2..5, got %d..%d", clip.TrimStart, clip.TrimEnd)
	}

	if rec := do(t, srv, "POST", "/api/clips", `{"promptId": "missing"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown prompt: expected 404, got %d", rec.Code)
	}

	rec = do(t, srv, "GET", "/api/progress", "")
	var stages []struct {
		Label     string `json:"label"`
		Completed int    `json:"completed"`
	}
	json.Unmarshal(rec.Body.Bytes(), &stages)
	if len(stages) != 4 || stages[3].Completed != 1 {
		t.Errorf("unexpected progress %+v", stages)
	}
}

func TestRestoreUnknownVersion(t *testing.T) {
	srv, _ := newTestServer(t)
	if rec := do(t, srv, "POST", "/api/script/restore/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestInvalidJSON(t *testing.T) {
	srv, _ := newTestServer(t)
	if rec := do(t, srv, "PUT", "/api/script/draft", `{"content":`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestDashboardForms(t *testing.T) {
	srv, ws := newTestServer(t)

	rec := postForm(t, srv, "/script/draft", url.Values{"content": {"Line one\nLine two"}})
	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/#script" {
		t.Errorf("expected redirect to script anchor, got %q", loc)
	}
	postForm(t, srv, "/script/commit", nil)

	state := ws.Script.State()
	if len(state.Versions) != 1 {
		t.Fatalf("expected one version, got %d", len(state.Versions))
	}

	rec = do(t, srv, "GET", "/versions/"+state.Versions[0].ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<p>Line two</p>") {
		t.Error("expected each script line rendered as a paragraph")
	}

	postForm(t, srv, "/ideas/refresh", nil)
	postForm(t, srv, "/ideas/2/approval", url.Values{"value": {"reject"}})
	if idea, _ := ws.Ideas.Get("2"); idea.Approved != ideas.Rejected {
		t.Errorf("expected idea rejected, got %v", idea.Approved)
	}
}

func TestStaticRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, "GET", "/static/style.css", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "font-sans") {
		t.Error("expected CSS content")
	}
}

func TestRelayRoomCountsClients(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	clients := func(room string) int {
		var body struct {
			Clients int `json:"clients"`
		}
		json.Unmarshal(do(t, srv, "GET", "/api/collab/"+room, "").Body.Bytes(), &body)
		return body.Clients
	}
	if got := clients("studio"); got != 0 {
		t.Errorf("expected empty room, got %d", got)
	}

	bus, err := collab.DialBus(context.Background(), "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/collab", "studio")
	if err != nil {
		t.Fatalf("DialBus: %v", err)
	}
	defer bus.Close()

	deadline := time.Now().Add(2 * time.Second)
	for clients("studio") != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected one client in studio, got %d", clients("studio"))
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := clients("other"); got != 0 {
		t.Errorf("expected other room empty, got %d", got)
	}
}
