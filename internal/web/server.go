package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/moot-ai/moot-backend/internal/agent"
	"github.com/moot-ai/moot-backend/internal/config"
	"github.com/moot-ai/moot-backend/internal/logging"
	"github.com/moot-ai/moot-backend/internal/storage"
	"github.com/moot-ai/moot-backend/internal/stream"
	"github.com/moot-ai/moot-backend/internal/voice"
)

// ChatRuntime starts one chat turn and yields its generation events.
type ChatRuntime interface {
	Process(ctx context.Context, req agent.Request) stream.Source
}

// VoiceLister enumerates the speech voices available to clients.
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]voice.Voice, error)
}

// Server holds web server shared state.
type Server struct {
	Config  *config.Config
	DB      *storage.Database
	Runtime ChatRuntime
	Mux     *stream.Multiplexer
	Voices  VoiceLister // nil when no speech backend is configured

	// Rate limiting per user.
	requests   map[string][]time.Time
	requestsMu sync.Mutex
}

// NewServer wires the HTTP layer. Voices may be nil.
func NewServer(cfg *config.Config, db *storage.Database, runtime ChatRuntime, mux *stream.Multiplexer, voices VoiceLister) *Server {
	return &Server{
		Config:   cfg,
		DB:       db,
		Runtime:  runtime,
		Mux:      mux,
		Voices:   voices,
		requests: make(map[string][]time.Time),
	}
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.Config.Web.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, map[string]string{"status": "ok"})
	})

	// Auth routes stay reachable without a session cookie.
	r.Route("/auth", func(r chi.Router) {
		r.Get("/status", s.handleAuthStatus)
		r.Post("/password", s.handleSetPassword)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
	})

	// Streaming routes. No request timeout here: a chat turn with tool calls
	// and synthesis legitimately runs for minutes.
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/chat/stream", s.handleChatStream)
		r.Get("/chat/ws", s.handleChatWS)
	})

	// Plain JSON routes.
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/voices", s.handleListVoices)
		r.Post("/upload-pdf", s.handleUploadPDF)
		r.Get("/documents/{name}", s.handleGetDocument)

		r.Get("/sessions", s.handleListSessions)
		r.Delete("/sessions/{sessionID}", s.handleDeleteSession)
		r.Get("/usage", s.handleUsage)
		r.Get("/config", s.handleGetConfig)
		r.Get("/logs", s.handleRecentLogs)
	})

	return r
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Config.Web.Host, s.Config.Web.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("[web] server starting on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// requireAuth gates requests behind the login cookie once a password is set.
// A database with no password hash runs open, which is the local default.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasPassword, err := s.DB.GetAuthPasswordHash()
		if err != nil {
			jsonError(w, "database error", http.StatusInternalServerError)
			return
		}
		if !hasPassword {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(sessionCookieName)
		if err == nil {
			if ok, _ := s.DB.ValidateAuthSession(cookie.Value); ok {
				next.ServeHTTP(w, r)
				return
			}
		}
		jsonError(w, "authentication required", http.StatusUnauthorized)
	})
}

func (s *Server) checkRateLimit(userID string) error {
	s.requestsMu.Lock()
	defer s.requestsMu.Unlock()

	now := time.Now()
	cutoff := now.Add(-time.Duration(s.Config.Web.RateWindowSeconds) * time.Second)
	var recent []time.Time
	for _, t := range s.requests[userID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= s.Config.Web.MaxRequestsPerWindow {
		s.requests[userID] = recent
		return fmt.Errorf("rate limit exceeded for user %q", userID)
	}
	recent = append(recent, now)
	s.requests[userID] = recent
	return nil
}

// handleRecentLogs returns the tail of the rotating log files as plain text.
func (s *Server) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	lines := 200
	if l, err := strconv.Atoi(r.URL.Query().Get("lines")); err == nil && l > 0 && l <= 5000 {
		lines = l
	}

	out, err := logging.ReadRecentLogs(filepath.Join(s.Config.DataDir, "logs"), lines)
	if err != nil {
		jsonError(w, "reading logs failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(out))
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
