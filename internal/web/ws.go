package web

import (
	"fmt"
	"log"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/moot-ai/moot-backend/internal/agent"
	"github.com/moot-ai/moot-backend/internal/stream"
)

// handleChatWS serves the WebSocket chat transport. Each client text message
// is one ChatRequest; the server answers with the same typed event frames as
// the SSE endpoint, one JSON object per WebSocket message.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range s.Config.Web.CORSAllowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[web] websocket read error: %v", err)
			}
			return
		}

		var req ChatRequest
		if err := sonic.Unmarshal(payload, &req); err != nil || req.Message == "" {
			s.writeWSError(conn, "invalid request")
			continue
		}
		req.normalize()

		if err := s.checkRateLimit(req.UserID); err != nil {
			s.writeWSError(conn, err.Error())
			continue
		}

		if !agentSupported(req.AgentID) {
			s.writeWSEvent(conn, stream.SessionEvent(req.SessionID))
			s.writeWSError(conn, fmt.Sprintf("Agent %s not implemented", req.AgentID))
			continue
		}

		src := s.Runtime.Process(r.Context(), agent.Request{
			UserID:      req.UserID,
			SessionID:   req.SessionID,
			Message:     req.Message,
			CaseContext: agent.ParseCaseContext(req.CaseContext),
		})

		for ev := range s.Mux.Run(r.Context(), req.SessionID, src, req.VoiceID) {
			data, err := sonic.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("[web] websocket write failed for session %s: %v", req.SessionID, err)
				return
			}
		}
	}
}

func (s *Server) writeWSEvent(conn *websocket.Conn, ev stream.OutputEvent) {
	data, err := sonic.Marshal(ev)
	if err != nil {
		return
	}
	conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) writeWSError(conn *websocket.Conn, msg string) {
	s.writeWSEvent(conn, stream.ErrorEvent(msg))
}
