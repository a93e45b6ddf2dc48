package web

import (
	"net/http"

	"github.com/moot-ai/moot-backend/internal/voice"
)

// handleListVoices returns the voices the speech backend offers. With no
// backend configured the list is empty rather than an error, so clients can
// probe availability with a plain GET.
func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	if s.Voices == nil {
		jsonOK(w, map[string]any{"voices": []voice.Voice{}})
		return
	}

	voices, err := s.Voices.ListVoices(r.Context())
	if err != nil {
		jsonError(w, "fetching voices failed", http.StatusBadGateway)
		return
	}
	if voices == nil {
		voices = []voice.Voice{}
	}
	jsonOK(w, map[string]any{"voices": voices})
}
