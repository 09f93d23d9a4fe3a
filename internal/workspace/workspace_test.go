package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/TobiSchelling/AIStudio/internal/clips"
	"github.com/TobiSchelling/AIStudio/internal/collab"
	"github.com/TobiSchelling/AIStudio/internal/collect"
	"github.com/TobiSchelling/AIStudio/internal/database"
	"github.com/TobiSchelling/AIStudio/internal/ideas"
)

type fakeSource struct {
	items []ideas.Idea
	err   error
}

func (f *fakeSource) FetchIdeas(context.Context) ([]ideas.Idea, error) {
	return f.items, f.err
}

type fakeGenerator struct{}

func (fakeGenerator) Generate(ctx context.Context, prompt string) (clips.Result, error) {
	if err := ctx.Err(); err != nil {
		return clips.Result{}, err
	}
	return clips.Result{VideoURL: "https://cdn.example/" + prompt[:3] + ".mp4", Duration: 8}, nil
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestWorkspace(t *testing.T, db *database.DB, src *fakeSource) *Workspace {
	t.Helper()
	w := New(db, Deps{Source: src, Generator: fakeGenerator{}, Author: "tester"})
	t.Cleanup(w.Close)
	return w
}

var testIdeas = []ideas.Idea{
	{ID: "1", Title: "Harbour reopens", Summary: "Repairs finished early.", Sentiment: ideas.SentimentPositive, Interest: ideas.InterestHigh},
	{ID: "2", Title: "Rail strike", Sentiment: ideas.SentimentNegative, Interest: ideas.InterestMedium},
}

func TestWorkflowPersistsAcrossReload(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	w := newTestWorkspace(t, db, &fakeSource{items: testIdeas})

	if err := w.RefreshIdeas(ctx); err != nil {
		t.Fatalf("RefreshIdeas: %v", err)
	}
	if !w.SetApproval("1", ideas.Approved) {
		t.Fatal("expected approval to succeed")
	}
	if w.SetApproval("missing", ideas.Approved) {
		t.Error("expected unknown idea to report false")
	}

	text, err := w.GenerateScript(ctx)
	if err != nil {
		t.Fatalf("GenerateScript: %v", err)
	}
	if !strings.Contains(text, "Harbour reopens") || strings.Contains(text, "Rail strike") {
		t.Errorf("expected script from approved ideas only, got %q", text)
	}
	v, err := w.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if v.Author != "tester" {
		t.Errorf("expected author tester, got %q", v.Author)
	}

	if err := w.GeneratePrompts(ctx); err != nil {
		t.Fatalf("GeneratePrompts: %v", err)
	}
	entries := w.Prompts.Entries()
	if len(entries) != len(strings.Split(text, "\n")) {
		t.Fatalf("expected one prompt per line, got %d", len(entries))
	}
	w.UpdatePrompt(entries[0].ID, "Drone shot over the harbour")

	clip, ok := w.RequestClip(ctx, entries[0].ID)
	if !ok {
		t.Fatal("expected clip request to succeed")
	}
	w.Clips.Wait()
	w.SetTrim(clip.ID, 2, 6)

	reloaded := newTestWorkspace(t, db, &fakeSource{})
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := reloaded.Ideas.Stats(); got.Approved != 1 || got.Pending != 1 {
		t.Errorf("unexpected idea stats %+v", got)
	}
	if reloaded.Script.Draft() != text {
		t.Errorf("expected draft restored, got %q", reloaded.Script.Draft())
	}
	if active, ok := reloaded.Script.Active(); !ok || active.ID != v.ID {
		t.Errorf("expected active version %s, got %+v", v.ID, active)
	}
	if e, _ := reloaded.Prompts.Lookup(entries[0].ID); e.EditablePrompt != "Drone shot over the harbour" {
		t.Errorf("expected edited prompt restored, got %q", e.EditablePrompt)
	}
	got, ok := reloaded.Clips.Get(clip.ID)
	if !ok {
		t.Fatal("expected clip restored")
	}
	if got.Status != clips.StatusReady || got.Prompt != "Drone shot over the harbour" || got.TrimStart != 2 || got.TrimEnd != 6 {
		t.Errorf("unexpected restored clip %+v", got)
	}

	stages := reloaded.Progress()
	if stages[0].Completed != 1 || stages[0].Total != 2 {
		t.Errorf("unexpected ideation stage %+v", stages[0])
	}
	if stages[1].Completed != 3 {
		t.Errorf("expected script stage complete, got %+v", stages[1])
	}
	if stages[3].Completed != 1 {
		t.Errorf("expected one prompt with a ready clip, got %+v", stages[3])
	}
}

func TestRefreshFailureKeepsIdeas(t *testing.T) {
	src := &fakeSource{items: testIdeas}
	w := newTestWorkspace(t, nil, src)
	w.RefreshIdeas(context.Background())

	src.items, src.err = nil, errors.New("offline")
	err := w.RefreshIdeas(context.Background())
	if !errors.Is(err, ideas.ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
	if len(w.Ideas.Ideas()) != 2 {
		t.Errorf("expected previous ideas kept, got %d", len(w.Ideas.Ideas()))
	}
}

func TestGeneratePromptsNeedsScript(t *testing.T) {
	w := newTestWorkspace(t, nil, &fakeSource{})
	if err := w.GeneratePrompts(context.Background()); !errors.Is(err, ErrNoScript) {
		t.Errorf("expected ErrNoScript, got %v", err)
	}
}

func TestScriptTextFallsBackToActiveVersion(t *testing.T) {
	w := newTestWorkspace(t, nil, &fakeSource{})
	w.EditDraft("Committed line")
	w.Commit()
	w.EditDraft("   ")

	if got := w.ScriptText(); got != "Committed line" {
		t.Errorf("expected active version text, got %q", got)
	}
}

func TestClipOutlivesRequestContext(t *testing.T) {
	w := newTestWorkspace(t, nil, &fakeSource{})
	w.EditDraft("Only line")
	w.GeneratePrompts(context.Background())
	id := w.Prompts.Entries()[0].ID

	ctx, cancel := context.WithCancel(context.Background())
	clip, _ := w.RequestClip(ctx, id)
	cancel()
	w.Clips.Wait()

	if got, _ := w.Clips.Get(clip.ID); got.Status != clips.StatusReady {
		t.Errorf("expected ready clip, got %s (%s)", got.Status, got.LastError)
	}
}

func TestAttachMirrorsPeerEdits(t *testing.T) {
	db := openTestDB(t)
	w := newTestWorkspace(t, db, &fakeSource{})
	bus := collab.NewLocalBus()

	ctx := context.Background()
	if _, err := w.Attach(ctx, bus, collab.NewSession("me"), collab.Options{}); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	peer := collab.NewChannel(bus, collab.NewSession("peer"), nopDraft{}, collab.Options{})
	if err := peer.Start(ctx); err != nil {
		t.Fatalf("peer Start: %v", err)
	}
	defer peer.Close()
	peer.Edit("Edited by a peer")

	deadline := time.Now().Add(2 * time.Second)
	for w.Script.Draft() != "Edited by a peer" {
		if time.Now().After(deadline) {
			t.Fatalf("expected peer edit mirrored, got %q", w.Script.Draft())
		}
		time.Sleep(5 * time.Millisecond)
	}

	deadline = time.Now().Add(2 * time.Second)
	for {
		_, draft, err := db.LoadScript()
		if err != nil {
			t.Fatalf("LoadScript: %v", err)
		}
		if draft == "Edited by a peer" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected peer edit persisted, got %q", draft)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type nopDraft struct{}

func (nopDraft) SetDraft(string) {}

type recordingDraft struct {
	mu      sync.Mutex
	history []string
}

func (d *recordingDraft) SetDraft(content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = append(d.history, content)
}

func (d *recordingDraft) received() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.history...)
}

func waitForHistory(t *testing.T, d *recordingDraft, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got := d.received()
		if len(got) >= n {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d peer updates, got %q", n, got)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRestoreIsNotBroadcast(t *testing.T) {
	w := newTestWorkspace(t, nil, &fakeSource{})
	bus := collab.NewLocalBus()
	ctx := context.Background()
	if _, err := w.Attach(ctx, bus, collab.NewSession("me"), collab.Options{}); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	peerDraft := &recordingDraft{}
	peer := collab.NewChannel(bus, collab.NewSession("peer"), peerDraft, collab.Options{})
	if err := peer.Start(ctx); err != nil {
		t.Fatalf("peer Start: %v", err)
	}
	defer peer.Close()

	w.EditDraft("First take")
	v, err := w.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	w.EditDraft("Second take")
	waitForHistory(t, peerDraft, 2)

	if !w.Restore(v.ID) {
		t.Fatal("expected restore to succeed")
	}
	if got := w.Script.Draft(); got != "First take" {
		t.Errorf("expected restored local draft, got %q", got)
	}

	// Delivery is in order, so a later edit arriving first proves the
	// restore sent nothing.
	w.EditDraft("Third take")
	got := waitForHistory(t, peerDraft, 3)
	want := []string{"First take", "Second take", "Third take"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("expected peer updates %q, got %q", want, got)
	}
}

func TestIdeationProgressTracksApprovals(t *testing.T) {
	w := newTestWorkspace(t, nil, &fakeSource{items: append(testIdeas, ideas.Idea{ID: "3", Title: "Solar record"})})
	if err := w.RefreshIdeas(context.Background()); err != nil {
		t.Fatalf("RefreshIdeas: %v", err)
	}

	steps := []struct {
		id    string
		value ideas.Approval
		want  int
	}{
		{"1", ideas.Approved, 1},
		{"2", ideas.Approved, 2},
		{"1", ideas.Rejected, 1},
		{"3", ideas.Rejected, 1},
		{"2", ideas.Undecided, 0},
		{"3", ideas.Approved, 1},
		{"1", ideas.Approved, 2},
		{"missing", ideas.Approved, 2},
	}
	for _, st := range steps {
		w.SetApproval(st.id, st.value)
		stage := w.Progress()[0]
		if stage.Completed != st.want || stage.Total != 3 {
			t.Errorf("after %s=%v: expected ideation %d/3, got %d/%d", st.id, st.value, st.want, stage.Completed, stage.Total)
		}
		if stage.Completed != w.Ideas.Stats().Approved {
			t.Errorf("after %s=%v: expected completed to match approved count %d, got %d",
				st.id, st.value, w.Ideas.Stats().Approved, stage.Completed)
		}
	}
}

func TestApprovalPersistsWithoutFullSave(t *testing.T) {
	db := openTestDB(t)
	w := newTestWorkspace(t, db, &fakeSource{items: testIdeas})
	w.RefreshIdeas(context.Background())
	w.SetApproval("2", ideas.Rejected)

	stored, err := db.LoadIdeas()
	if err != nil {
		t.Fatalf("LoadIdeas: %v", err)
	}
	if stored[1].Approved != ideas.Rejected || stored[0].Approved != ideas.Undecided {
		t.Errorf("expected rejection stored, got %v / %v", stored[0].Approved, stored[1].Approved)
	}
}

func TestImportSnapshotReplacesWorkspace(t *testing.T) {
	src := newTestWorkspace(t, nil, &fakeSource{items: testIdeas})
	src.RefreshIdeas(context.Background())
	src.SetApproval("1", ideas.Approved)
	src.EditDraft("Imported line")
	v, _ := src.Commit()

	data, err := json.Marshal(src.Snapshot())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var snap database.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	db := openTestDB(t)
	dst := newTestWorkspace(t, db, &fakeSource{})
	dst.EditDraft("Local line")
	dst.Commit()
	dst.Apply(snap)
	if err := dst.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := newTestWorkspace(t, db, &fakeSource{})
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Script.Draft() != "Imported line" {
		t.Errorf("expected imported draft, got %q", reloaded.Script.Draft())
	}
	st := reloaded.Script.State()
	if len(st.Versions) != 1 || st.ActiveVersionID != v.ID {
		t.Errorf("expected only the imported revision active, got %+v", st)
	}
	if reloaded.Ideas.Stats().Approved != 1 {
		t.Errorf("expected imported approval, got %+v", reloaded.Ideas.Stats())
	}
}

func TestIdeaSourceNamesServingProvider(t *testing.T) {
	w := New(nil, Deps{Source: collect.NewChain(nil, testIdeas, 10, nil, nil), Generator: fakeGenerator{}})
	t.Cleanup(w.Close)
	if got := w.IdeaSource(); got != "" {
		t.Errorf("expected no source before a refresh, got %q", got)
	}
	if err := w.RefreshIdeas(context.Background()); err != nil {
		t.Fatalf("RefreshIdeas: %v", err)
	}
	if got := w.IdeaSource(); got != "fallback" {
		t.Errorf("expected fallback source, got %q", got)
	}

	if got := newTestWorkspace(t, nil, &fakeSource{}).IdeaSource(); got != "" {
		t.Errorf("expected empty name for a plain source, got %q", got)
	}
}
