package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func requestUserID(r *http.Request) string {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "default_user"
	}
	return userID
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	metas, err := s.DB.ListSessions(requestUserID(r), limit)
	if err != nil {
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}

	jsonOK(w, map[string]any{"sessions": metas})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		jsonError(w, "session id is required", http.StatusBadRequest)
		return
	}

	if err := s.DB.DeleteSession(requestUserID(r), sessionID); err != nil {
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}

	jsonOK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	// An empty user_id means the global summary.
	summary, err := s.DB.GetLLMUsageSummary(r.URL.Query().Get("user_id"))
	if err != nil {
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}

	jsonOK(w, summary)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	// Redacted config, no secrets.
	jsonOK(w, map[string]any{
		"llm_provider":        s.Config.LLM.Provider,
		"model":               s.Config.LLM.Model,
		"max_tokens":          s.Config.LLM.MaxTokens,
		"max_tool_iterations": s.Config.Agent.MaxToolIterations,
		"voice_backend":       s.Config.Voice.Backend,
		"web_host":            s.Config.Web.Host,
		"web_port":            s.Config.Web.Port,
	})
}
