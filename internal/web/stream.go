package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/moot-ai/moot-backend/internal/agent"
	"github.com/moot-ai/moot-backend/internal/stream"
)

// ChatRequest is the body of /chat/stream and each /chat/ws message.
type ChatRequest struct {
	Message     string          `json:"message"`
	UserID      string          `json:"user_id"`
	SessionID   string          `json:"session_id"`
	AgentID     string          `json:"agent_id"`
	VoiceID     string          `json:"voice_id"`
	CaseContext json.RawMessage `json:"case_context,omitempty"`
}

func (c *ChatRequest) normalize() {
	if c.UserID == "" {
		c.UserID = "default_user"
	}
	if c.SessionID == "" {
		c.SessionID = uuid.NewString()
	}
	if c.AgentID == "" {
		c.AgentID = "legal_agent"
	}
}

// agentSupported reports whether the requested agent id routes to the legal
// agent. The judge persona ("shisui") is an alias for it.
func agentSupported(agentID string) bool {
	return strings.Contains(agentID, "legal") || strings.Contains(agentID, "shisui")
}

// handleChatStream runs one chat turn and streams the typed event frames
// over SSE: session first, then content/tool_call/audio interleaved, then
// done (or a single error frame on pipeline failure).
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		jsonError(w, "message is required", http.StatusBadRequest)
		return
	}
	req.normalize()

	if err := s.checkRateLimit(req.UserID); err != nil {
		jsonError(w, err.Error(), http.StatusTooManyRequests)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Unknown agents get the session frame and a terminal error frame.
	if !agentSupported(req.AgentID) {
		writeSSE(w, flusher, stream.SessionEvent(req.SessionID))
		writeSSE(w, flusher, stream.ErrorEvent(fmt.Sprintf("Agent %s not implemented", req.AgentID)))
		return
	}

	src := s.Runtime.Process(r.Context(), agent.Request{
		UserID:      req.UserID,
		SessionID:   req.SessionID,
		Message:     req.Message,
		CaseContext: agent.ParseCaseContext(req.CaseContext),
	})

	for ev := range s.Mux.Run(r.Context(), req.SessionID, src, req.VoiceID) {
		if err := writeSSE(w, flusher, ev); err != nil {
			// Client went away; the context cancellation unwinds the run.
			log.Printf("[web] stream write failed for session %s: %v", req.SessionID, err)
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev stream.OutputEvent) error {
	data, err := sonic.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
