package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookieName = "moot_session"

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	_, hasPassword, _ := s.DB.GetAuthPasswordHash()
	jsonOK(w, map[string]any{
		"has_password": hasPassword,
	})
}

func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
		Current  string `json:"current_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if len(body.Password) < 8 {
		jsonError(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	// Changing an existing password requires the current one.
	hash, hasPassword, _ := s.DB.GetAuthPasswordHash()
	if hasPassword {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(body.Current)) != nil {
			jsonError(w, "current password is incorrect", http.StatusUnauthorized)
			return
		}
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := s.DB.UpsertAuthPasswordHash(string(newHash)); err != nil {
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}

	jsonOK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}

	hash, found, _ := s.DB.GetAuthPasswordHash()
	if !found {
		jsonError(w, "no password set", http.StatusBadRequest)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(body.Password)); err != nil {
		jsonError(w, "invalid password", http.StatusUnauthorized)
		return
	}

	ttl := time.Duration(s.Config.Web.AuthSessionTTLHours) * time.Hour
	token := uuid.NewString()
	expiresAt := time.Now().UTC().Add(ttl).Format(time.RFC3339)
	if err := s.DB.CreateAuthSession(token, "web_login", expiresAt); err != nil {
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl / time.Second),
	})

	jsonOK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil {
		s.DB.RevokeAuthSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	jsonOK(w, map[string]string{"status": "ok"})
}
