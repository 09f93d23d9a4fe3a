package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/AIStudio/internal/clips"
	"github.com/TobiSchelling/AIStudio/internal/collab"
	"github.com/TobiSchelling/AIStudio/internal/config"
	"github.com/TobiSchelling/AIStudio/internal/ideas"
	"github.com/TobiSchelling/AIStudio/internal/videogen"
	"github.com/TobiSchelling/AIStudio/internal/workspace"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server serves the production dashboard, the JSON API, the mock video
// endpoint and the collaboration relay.
type Server struct {
	ws     *workspace.Workspace
	videos clips.Generator
	hub    *collab.Hub
	pages  map[string]*template.Template
	mux    *http.ServeMux
}

// New creates a new Server. videos backs POST /api/videos; nil uses the
// default mock generator.
func New(ws *workspace.Workspace, videos clips.Generator) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"approval": func(a ideas.Approval) string { return a.String() },
		"timestamp": func(t time.Time) string {
			return t.Local().Format("2006-01-02 15:04")
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so {{define "content"}} does not clash.
	pageNames := []string{"index.html", "version.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	if videos == nil {
		videos = videogen.NewMock(5, 24, 0)
	}
	s := &Server{ws: ws, videos: videos, hub: collab.NewHub(), pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Dashboard
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /versions/{id}", s.handleVersion)
	s.mux.HandleFunc("POST /ideas/refresh", s.handleRefreshForm)
	s.mux.HandleFunc("POST /ideas/{id}/approval", s.handleApprovalForm)
	s.mux.HandleFunc("POST /script/draft", s.handleDraftForm)
	s.mux.HandleFunc("POST /script/generate", s.handleGenerateScriptForm)
	s.mux.HandleFunc("POST /script/commit", s.handleCommitForm)
	s.mux.HandleFunc("POST /script/restore/{id}", s.handleRestoreForm)
	s.mux.HandleFunc("POST /prompts/generate", s.handleGeneratePromptsForm)
	s.mux.HandleFunc("POST /prompts/bulk", s.handleBulkForm)
	s.mux.HandleFunc("POST /prompts/{id}", s.handlePromptForm)
	s.mux.HandleFunc("POST /clips", s.handleRequestClipForm)
	s.mux.HandleFunc("POST /clips/{id}/regenerate", s.handleRegenerateForm)
	s.mux.HandleFunc("POST /clips/{id}/trim", s.handleTrimForm)

	s.apiRoutes()

	s.mux.Handle("GET /ws/collab", s.hub)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ws := s.ws
	state := ws.Script.State()

	var refreshErr string
	if err := ws.Ideas.LastError(); err != nil {
		refreshErr = err.Error()
	}

	s.render(w, "index.html", map[string]any{
		"Stages":        ws.Progress(),
		"Ideas":         ws.Ideas.Ideas(),
		"IdeaStats":     ws.Ideas.Stats(),
		"RefreshError":  refreshErr,
		"Draft":         ws.Script.Draft(),
		"Versions":      state.Versions,
		"ActiveID":      state.ActiveVersionID,
		"Prompts":       ws.Prompts.Entries(),
		"BulkText":      ws.Prompts.BulkText(),
		"Clips":         ws.Clips.Clips(),
		"Collaborators": s.collaborators(),
		"Model":         ws.ModelName(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	state := s.ws.Script.State()
	for _, v := range state.Versions {
		if v.ID == id {
			s.render(w, "version.html", map[string]any{
				"Version": v,
				"Active":  v.ID == state.ActiveVersionID,
			})
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) handleRefreshForm(w http.ResponseWriter, r *http.Request) {
	// The error is shown on the dashboard from the store's error state.
	s.ws.RefreshIdeas(r.Context())
	http.Redirect(w, r, "/#ideas", http.StatusFound)
}

func (s *Server) handleApprovalForm(w http.ResponseWriter, r *http.Request) {
	if a, err := ideas.ParseApproval(r.FormValue("value")); err == nil {
		s.ws.SetApproval(r.PathValue("id"), a)
	}
	http.Redirect(w, r, "/#ideas", http.StatusFound)
}

func (s *Server) handleDraftForm(w http.ResponseWriter, r *http.Request) {
	s.ws.EditDraft(r.FormValue("content"))
	http.Redirect(w, r, "/#script", http.StatusFound)
}

func (s *Server) handleGenerateScriptForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ws.GenerateScript(r.Context()); err != nil {
		log.Printf("Error generating script: %v", err)
	}
	http.Redirect(w, r, "/#script", http.StatusFound)
}

func (s *Server) handleCommitForm(w http.ResponseWriter, r *http.Request) {
	s.ws.Commit()
	http.Redirect(w, r, "/#script", http.StatusFound)
}

func (s *Server) handleRestoreForm(w http.ResponseWriter, r *http.Request) {
	s.ws.Restore(r.PathValue("id"))
	http.Redirect(w, r, "/#script", http.StatusFound)
}

func (s *Server) handleGeneratePromptsForm(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.GeneratePrompts(r.Context()); err != nil {
		log.Printf("Error generating prompts: %v", err)
	}
	http.Redirect(w, r, "/#prompts", http.StatusFound)
}

func (s *Server) handlePromptForm(w http.ResponseWriter, r *http.Request) {
	s.ws.UpdatePrompt(r.PathValue("id"), r.FormValue("prompt"))
	http.Redirect(w, r, "/#prompts", http.StatusFound)
}

func (s *Server) handleBulkForm(w http.ResponseWriter, r *http.Request) {
	s.ws.BulkApply(r.FormValue("text"))
	http.Redirect(w, r, "/#prompts", http.StatusFound)
}

func (s *Server) handleRequestClipForm(w http.ResponseWriter, r *http.Request) {
	s.ws.RequestClip(r.Context(), r.FormValue("prompt_id"))
	http.Redirect(w, r, "/#clips", http.StatusFound)
}

func (s *Server) handleRegenerateForm(w http.ResponseWriter, r *http.Request) {
	s.ws.Regenerate(r.Context(), r.PathValue("id"))
	http.Redirect(w, r, "/#clips", http.StatusFound)
}

func (s *Server) handleTrimForm(w http.ResponseWriter, r *http.Request) {
	start, err1 := strconv.Atoi(r.FormValue("start"))
	end, err2 := strconv.Atoi(r.FormValue("end"))
	if err1 == nil && err2 == nil {
		s.ws.SetTrim(r.PathValue("id"), start, end)
	}
	http.Redirect(w, r, "/#clips", http.StatusFound)
}

func (s *Server) collaborators() []collab.Presence {
	if ch := s.ws.Channel(); ch != nil {
		return ch.ActiveCollaborators()
	}
	return nil
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

// renderMarkdown renders script text. Each script line is its own paragraph.
func renderMarkdown(text string) template.HTML {
	text = strings.Join(strings.Split(strings.TrimSpace(text), "\n"), "\n\n")
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve runs the server on port until ctx ends. The server's own workspace
// joins the relay it hosts, so dashboard edits reach CLI collaborators.
func Serve(ctx context.Context, cfg *config.Config, ws *workspace.Workspace, port int) error {
	srv, err := New(ws, videogen.NewMock(cfg.Video.MinDuration, cfg.Video.MaxDuration,
		time.Duration(cfg.Video.DelayMillis)*time.Millisecond))
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	httpSrv := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Serve(ln) }()
	log.Printf("Server listening on http://%s", addr)

	relay := fmt.Sprintf("ws://%s/ws/collab", addr)
	bus, err := collab.DialBus(ctx, relay, cfg.Collaboration.Workspace)
	if err != nil {
		log.Printf("Collaboration disabled: %v", err)
	} else {
		defer bus.Close()
		opts := collab.Options{HeartbeatInterval: cfg.Collaboration.Heartbeat(), StaleAfter: cfg.Collaboration.StaleAfter()}
		if _, err := ws.Attach(ctx, bus, collab.NewSession(cfg.AuthorName()), opts); err != nil {
			log.Printf("Collaboration disabled: %v", err)
		}
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	srv.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
