package workspace

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/TobiSchelling/AIStudio/internal/clips"
	"github.com/TobiSchelling/AIStudio/internal/collab"
	"github.com/TobiSchelling/AIStudio/internal/collect"
	"github.com/TobiSchelling/AIStudio/internal/compose"
	"github.com/TobiSchelling/AIStudio/internal/config"
	"github.com/TobiSchelling/AIStudio/internal/database"
	"github.com/TobiSchelling/AIStudio/internal/ideas"
	"github.com/TobiSchelling/AIStudio/internal/llm"
	"github.com/TobiSchelling/AIStudio/internal/progress"
	"github.com/TobiSchelling/AIStudio/internal/prompts"
	"github.com/TobiSchelling/AIStudio/internal/script"
	"github.com/TobiSchelling/AIStudio/internal/triage"
	"github.com/TobiSchelling/AIStudio/internal/videogen"
	"github.com/TobiSchelling/AIStudio/internal/visualize"
)

// ErrNoScript is returned when prompts are requested before any script exists.
var ErrNoScript = errors.New("script is empty")

// Deps are the collaborators a workspace drives.
type Deps struct {
	Source    ideas.Source
	Generator clips.Generator
	Provider  llm.Provider
	Author    string
	MaxTokens int
}

// Workspace ties the stores together and persists them after every change.
type Workspace struct {
	Ideas   *ideas.Store
	Script  *script.Store
	Prompts *prompts.Table
	Clips   *clips.Registry

	db       *database.DB
	source   ideas.Source
	provider llm.Provider
	composer *compose.Composer

	saveMu  sync.Mutex
	chanMu  sync.Mutex
	channel *collab.Channel
}

// New creates a workspace. A nil db keeps everything in memory.
func New(db *database.DB, deps Deps) *Workspace {
	table := prompts.NewTable(visualize.NewDeriver(deps.Provider, deps.MaxTokens))
	w := &Workspace{
		Ideas:    ideas.NewStore(deps.Source),
		Script:   script.NewStore(deps.Author),
		Prompts:  table,
		Clips:    clips.NewRegistry(table, deps.Generator),
		db:       db,
		source:   deps.Source,
		provider: deps.Provider,
		composer: compose.NewComposer(deps.Provider, deps.MaxTokens),
	}
	w.Clips.OnSettled = func(c clips.Clip) { w.persistClip(c.ID) }
	return w
}

// FromConfig builds a workspace with the configured sources, LLM provider
// and video generator.
func FromConfig(cfg *config.Config, db *database.DB) *Workspace {
	summ := cfg.Summarization
	provider := llm.CreateProvider(summ.Provider, summ.Model, summ.OllamaURL, summ.OpenAIModel, summ.APIKeyEnv)

	return New(db, Deps{
		Source:    collect.NewChainFromConfig(cfg, triage.NewClassifier(provider)),
		Generator: videogen.FromConfig(cfg.Video),
		Provider:  provider,
		Author:    cfg.AuthorName(),
		MaxTokens: summ.MaxTokens,
	})
}

// ModelName names the script/prompt generator in use.
func (w *Workspace) ModelName() string {
	return llm.ProviderName(w.provider)
}

// Load restores the persisted workspace.
func (w *Workspace) Load() error {
	if w.db == nil {
		return nil
	}
	snap, err := w.db.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("loading workspace: %w", err)
	}
	w.Apply(snap)
	return nil
}

// Apply installs a saved snapshot without touching the database.
func (w *Workspace) Apply(snap database.Snapshot) {
	w.Ideas.Replace(snap.Ideas)
	w.Script.Load(snap.ScriptState, snap.Draft)
	w.Prompts.Replace(snap.Prompts)
	w.Clips.Replace(snap.Clips)
}

// Save writes the whole workspace in one transaction.
func (w *Workspace) Save() error {
	if w.db == nil {
		return nil
	}
	w.saveMu.Lock()
	defer w.saveMu.Unlock()
	return w.db.SaveSnapshot(w.Snapshot())
}

// Snapshot copies the current workspace state.
func (w *Workspace) Snapshot() database.Snapshot {
	return database.Snapshot{
		Ideas:       w.Ideas.Ideas(),
		ScriptState: w.Script.State(),
		Draft:       w.Script.Draft(),
		Prompts:     w.Prompts.Entries(),
		Clips:       w.Clips.Clips(),
	}
}

// persistClip stores the registry's current copy of the clip.
func (w *Workspace) persistClip(id string) {
	if w.db == nil {
		return
	}
	w.saveMu.Lock()
	defer w.saveMu.Unlock()
	c, ok := w.Clips.Get(id)
	if !ok {
		return
	}
	if err := w.db.UpsertClip(c); err != nil {
		log.Printf("Error saving clip %s: %v", c.ID, err)
	}
}

// persist runs one targeted write, serialised with other saves.
func (w *Workspace) persist(what string, fn func(db *database.DB) error) {
	if w.db == nil {
		return
	}
	w.saveMu.Lock()
	defer w.saveMu.Unlock()
	if err := fn(w.db); err != nil {
		log.Printf("Error saving %s: %v", what, err)
	}
}

func (w *Workspace) saveIdeas() {
	w.persist("ideas", func(db *database.DB) error { return db.ReplaceIdeas(w.Ideas.Ideas()) })
}

func (w *Workspace) saveScript() {
	w.persist("script", func(db *database.DB) error { return db.SaveScript(w.Script.State(), w.Script.Draft()) })
}

func (w *Workspace) savePrompts() {
	w.persist("prompts", func(db *database.DB) error { return db.ReplacePrompts(w.Prompts.Entries()) })
}

// RefreshIdeas replaces the idea set from the source. On failure the
// previous ideas stay and the error wraps ideas.ErrSourceUnavailable.
func (w *Workspace) RefreshIdeas(ctx context.Context) error {
	if err := w.Ideas.Refresh(ctx); err != nil {
		return err
	}
	w.saveIdeas()
	return nil
}

// IdeaSource names the provider that served the last refresh, or "" when the
// source does not report one.
func (w *Workspace) IdeaSource() string {
	if chain, ok := w.source.(*collect.Chain); ok {
		if r := chain.LastResult(); r != nil {
			return r.Source
		}
	}
	return ""
}

// SetApproval records a review decision. Unknown ids report false.
func (w *Workspace) SetApproval(id string, a ideas.Approval) bool {
	if !w.Ideas.SetApproval(id, a) {
		return false
	}
	w.persist("approval", func(db *database.DB) error {
		_, err := db.SetIdeaApproval(id, a)
		return err
	})
	return true
}

// GenerateScript drafts a script from the approved ideas and shares it with
// collaborators.
func (w *Workspace) GenerateScript(ctx context.Context) (string, error) {
	text, err := w.composer.DeriveScript(ctx, w.Ideas.Approved())
	if err != nil {
		return "", err
	}
	w.EditDraft(text)
	return text, nil
}

// EditDraft replaces the draft. When a collaboration channel is attached the
// edit is broadcast to peers.
func (w *Workspace) EditDraft(content string) {
	if ch := w.Channel(); ch != nil {
		if err := ch.Edit(content); err != nil {
			log.Printf("Error broadcasting draft: %v", err)
		}
	} else {
		w.Script.SetDraft(content)
	}
	w.saveScript()
}

// Commit snapshots the draft as a new version.
func (w *Workspace) Commit() (script.Version, error) {
	v, err := w.Script.Commit()
	if err != nil {
		return v, err
	}
	if ch := w.Channel(); ch != nil {
		if err := ch.Touch(); err != nil {
			log.Printf("Error broadcasting presence: %v", err)
		}
	}
	w.saveScript()
	return v, nil
}

// Restore makes a version active and loads it into the draft.
func (w *Workspace) Restore(id string) bool {
	if !w.Script.Restore(id) {
		return false
	}
	w.saveScript()
	return true
}

// ScriptText is the text prompts are derived from: the draft, or the active
// version when the draft is blank.
func (w *Workspace) ScriptText() string {
	if d := w.Script.Draft(); strings.TrimSpace(d) != "" {
		return d
	}
	if v, ok := w.Script.Active(); ok {
		return v.Content
	}
	return ""
}

// GeneratePrompts replaces the prompt table from the current script.
func (w *Workspace) GeneratePrompts(ctx context.Context) error {
	text := w.ScriptText()
	if strings.TrimSpace(text) == "" {
		return ErrNoScript
	}
	if err := w.Prompts.Generate(ctx, text); err != nil {
		return err
	}
	w.savePrompts()
	return nil
}

// UpdatePrompt edits one prompt. Unknown ids report false.
func (w *Workspace) UpdatePrompt(id, text string) bool {
	if !w.Prompts.UpdateOne(id, text) {
		return false
	}
	w.savePrompts()
	return true
}

// BulkApply overwrites editable prompts positionally from text, one per line.
func (w *Workspace) BulkApply(text string) int {
	n := w.Prompts.BulkApply(prompts.ParseBulk(text))
	if n > 0 {
		w.savePrompts()
	}
	return n
}

// RequestClip starts a generation for promptID. Generation outlives ctx's
// cancellation so a finished request does not abort it.
func (w *Workspace) RequestClip(ctx context.Context, promptID string) (clips.Clip, bool) {
	c, ok := w.Clips.RequestClip(context.WithoutCancel(ctx), promptID)
	if ok {
		w.persistClip(c.ID)
	}
	return c, ok
}

// Regenerate re-runs a clip's generation from its frozen prompt.
func (w *Workspace) Regenerate(ctx context.Context, clipID string) bool {
	if !w.Clips.Regenerate(context.WithoutCancel(ctx), clipID) {
		return false
	}
	w.persistClip(clipID)
	return true
}

// SetTrim adjusts a clip's trim range.
func (w *Workspace) SetTrim(clipID string, start, end int) bool {
	if !w.Clips.SetTrim(clipID, start, end) {
		return false
	}
	w.persistClip(clipID)
	return true
}

// Progress computes the stage bars from the current state.
func (w *Workspace) Progress() []progress.Stage {
	return progress.Compute(progress.Snapshot{
		Ideas:        w.Ideas.Ideas(),
		Draft:        w.Script.Draft(),
		VersionCount: len(w.Script.State().Versions),
		Prompts:      w.Prompts.Entries(),
		Clips:        w.Clips.Clips(),
	})
}

// Attach joins the collaboration bus as self. Peer edits land in the draft
// and are persisted.
func (w *Workspace) Attach(ctx context.Context, bus collab.Bus, self collab.Session, opts collab.Options) (*collab.Channel, error) {
	onUpdate := opts.OnUpdate
	opts.OnUpdate = func(senderID, content string) {
		w.saveScript()
		if onUpdate != nil {
			onUpdate(senderID, content)
		}
	}

	ch := collab.NewChannel(bus, self, w.Script, opts)
	if err := ch.Start(ctx); err != nil {
		return nil, err
	}
	w.chanMu.Lock()
	w.channel = ch
	w.chanMu.Unlock()
	return ch, nil
}

// Channel returns the attached collaboration channel, if any.
func (w *Workspace) Channel() *collab.Channel {
	w.chanMu.Lock()
	defer w.chanMu.Unlock()
	return w.channel
}

// Close detaches from collaboration and waits for in-flight generations.
func (w *Workspace) Close() {
	w.chanMu.Lock()
	ch := w.channel
	w.channel = nil
	w.chanMu.Unlock()
	if ch != nil {
		ch.Close()
	}
	w.Clips.Wait()
}
