// Package voice provides speech-synthesis backends. Clients are stateless
// per call and safe to share across concurrent requests; a missing API key
// is reported through ErrNotConfigured so callers can degrade to text-only
// delivery instead of failing the request.
package voice

import (
	"errors"
	"fmt"
)

// ErrNotConfigured indicates no speech backend credentials are present.
var ErrNotConfigured = errors.New("no speech backend configured")

// SynthesisError wraps a failed synthesis call with its backend.
type SynthesisError struct {
	Backend string
	Status  int
	Message string
	Cause   error
}

func (e *SynthesisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s synthesis: %s: %v", e.Backend, e.Message, e.Cause)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s synthesis: status %d: %s", e.Backend, e.Status, e.Message)
	}
	return fmt.Sprintf("%s synthesis: %s", e.Backend, e.Message)
}

func (e *SynthesisError) Unwrap() error { return e.Cause }

// Voice describes one selectable voice for the /voices listing.
type Voice struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}
