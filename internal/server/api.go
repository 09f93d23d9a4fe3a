package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/TobiSchelling/AIStudio/internal/compose"
	"github.com/TobiSchelling/AIStudio/internal/ideas"
	"github.com/TobiSchelling/AIStudio/internal/script"
	"github.com/TobiSchelling/AIStudio/internal/videogen"
	"github.com/TobiSchelling/AIStudio/internal/workspace"
)

const maxRequestBytes = 1 << 20

func (s *Server) apiRoutes() {
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("GET /api/progress", s.handleProgress)

	s.mux.HandleFunc("GET /api/ideas", s.handleIdeas)
	s.mux.HandleFunc("POST /api/ideas/refresh", s.handleRefresh)
	s.mux.HandleFunc("PUT /api/ideas/{id}/approval", s.handleApproval)

	s.mux.HandleFunc("GET /api/script", s.handleScript)
	s.mux.HandleFunc("PUT /api/script/draft", s.handleDraft)
	s.mux.HandleFunc("POST /api/script/generate", s.handleGenerateScript)
	s.mux.HandleFunc("POST /api/script/commit", s.handleCommit)
	s.mux.HandleFunc("POST /api/script/restore/{id}", s.handleRestore)

	s.mux.HandleFunc("GET /api/prompts", s.handlePrompts)
	s.mux.HandleFunc("POST /api/prompts/generate", s.handleGeneratePrompts)
	s.mux.HandleFunc("POST /api/prompts/bulk", s.handleBulk)
	s.mux.HandleFunc("PUT /api/prompts/{id}", s.handleUpdatePrompt)

	s.mux.HandleFunc("GET /api/clips", s.handleClips)
	s.mux.HandleFunc("POST /api/clips", s.handleRequestClip)
	s.mux.HandleFunc("POST /api/clips/{id}/regenerate", s.handleRegenerate)
	s.mux.HandleFunc("PUT /api/clips/{id}/trim", s.handleTrim)

	s.mux.HandleFunc("POST /api/videos", s.handleVideos)

	s.mux.HandleFunc("GET /api/collab/{room}", s.handleRelayRoom)
}

func (s *Server) handleRelayRoom(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	writeJSON(w, http.StatusOK, map[string]any{"room": room, "clients": s.hub.Clients(room)})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ws := s.ws
	writeJSON(w, http.StatusOK, map[string]any{
		"ideas":         ws.Ideas.Ideas(),
		"ideaStats":     ws.Ideas.Stats(),
		"ideasError":    errString(ws.Ideas.LastError()),
		"loading":       ws.Ideas.Loading(),
		"draft":         ws.Script.Draft(),
		"scriptState":   ws.Script.State(),
		"prompts":       ws.Prompts.Entries(),
		"clips":         ws.Clips.Clips(),
		"progress":      ws.Progress(),
		"collaborators": s.collaborators(),
		"model":         ws.ModelName(),
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.Progress())
}

func (s *Server) handleIdeas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ideas": s.ws.Ideas.Ideas(),
		"stats": s.ws.Ideas.Stats(),
		"error": errString(s.ws.Ideas.LastError()),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.RefreshIdeas(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": err.Error(),
			"ideas": s.ws.Ideas.Ideas(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ideas": s.ws.Ideas.Ideas(), "source": s.ws.IdeaSource()})
}

func (s *Server) handleApproval(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Approved ideas.Approval `json:"approved"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if !s.ws.SetApproval(r.PathValue("id"), body.Approved) {
		writeError(w, http.StatusNotFound, "idea not found")
		return
	}
	idea, _ := s.ws.Ideas.Get(r.PathValue("id"))
	writeJSON(w, http.StatusOK, idea)
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"draft": s.ws.Script.Draft(),
		"state": s.ws.Script.State(),
	})
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	s.ws.EditDraft(body.Content)
	writeJSON(w, http.StatusOK, map[string]any{"draft": s.ws.Script.Draft()})
}

func (s *Server) handleGenerateScript(w http.ResponseWriter, r *http.Request) {
	text, err := s.ws.GenerateScript(r.Context())
	if errors.Is(err, compose.ErrNoApprovedIdeas) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		log.Printf("Error generating script: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": text})
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	v, err := s.ws.Commit()
	if errors.Is(err, script.ErrEmptyCommit) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if !s.ws.Restore(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "version not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"draft": s.ws.Script.Draft(),
		"state": s.ws.Script.State(),
	})
}

func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"prompts":  s.ws.Prompts.Entries(),
		"bulkText": s.ws.Prompts.BulkText(),
	})
}

func (s *Server) handleGeneratePrompts(w http.ResponseWriter, r *http.Request) {
	err := s.ws.GeneratePrompts(r.Context())
	if errors.Is(err, workspace.ErrNoScript) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		log.Printf("Error generating prompts: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompts": s.ws.Prompts.Entries()})
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	n := s.ws.BulkApply(body.Text)
	writeJSON(w, http.StatusOK, map[string]any{
		"applied": n,
		"prompts": s.ws.Prompts.Entries(),
	})
}

func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if !s.ws.UpdatePrompt(r.PathValue("id"), body.Prompt) {
		writeError(w, http.StatusNotFound, "prompt not found")
		return
	}
	e, _ := s.ws.Prompts.Lookup(r.PathValue("id"))
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleClips(w http.ResponseWriter, r *http.Request) {
	if promptID := r.URL.Query().Get("promptId"); promptID != "" {
		writeJSON(w, http.StatusOK, map[string]any{"clips": s.ws.Clips.ForPrompt(promptID)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clips": s.ws.Clips.Clips()})
}

func (s *Server) handleRequestClip(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PromptID string `json:"promptId"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	c, ok := s.ws.RequestClip(r.Context(), body.PromptID)
	if !ok {
		writeError(w, http.StatusNotFound, "prompt not found")
		return
	}
	writeJSON(w, http.StatusAccepted, c)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.ws.Regenerate(r.Context(), id) {
		writeError(w, http.StatusNotFound, "clip not found")
		return
	}
	c, _ := s.ws.Clips.Get(id)
	writeJSON(w, http.StatusAccepted, c)
}

func (s *Server) handleTrim(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Start int `json:"start"`
		End   int `json:"end"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	id := r.PathValue("id")
	if !s.ws.SetTrim(id, body.Start, body.End) {
		writeError(w, http.StatusNotFound, "clip not found")
		return
	}
	c, _ := s.ws.Clips.Get(id)
	writeJSON(w, http.StatusOK, c)
}

// handleVideos is the mock render endpoint: {prompt} -> {videoUrl, duration}.
func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	res, err := s.videos.Generate(r.Context(), body.Prompt)
	if errors.Is(err, videogen.ErrEmptyPrompt) {
		writeError(w, http.StatusBadRequest, "Prompt is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
