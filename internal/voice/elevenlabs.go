package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultElevenLabsModel = "eleven_turbo_v2"

// ElevenLabsClient synthesizes speech through the ElevenLabs REST API.
type ElevenLabsClient struct {
	client  *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewElevenLabsClient builds a client. model and baseURL may be empty for
// the defaults.
func NewElevenLabsClient(apiKey, model, baseURL string) *ElevenLabsClient {
	if model == "" {
		model = defaultElevenLabsModel
	}
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io"
	}
	return &ElevenLabsClient{
		client:  &http.Client{},
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Synthesize converts text to audio bytes using the given voice.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if voiceID == "" {
		return nil, &SynthesisError{Backend: "elevenlabs", Message: "voice id is required"}
	}

	body := map[string]any{
		"text":     text,
		"model_id": c.model,
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, &SynthesisError{Backend: "elevenlabs", Message: "encoding request", Cause: err}
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, &SynthesisError{Backend: "elevenlabs", Message: "creating request", Cause: err}
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &SynthesisError{Backend: "elevenlabs", Message: "http request", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &SynthesisError{Backend: "elevenlabs", Status: resp.StatusCode, Message: string(errBody)}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SynthesisError{Backend: "elevenlabs", Message: "reading audio", Cause: err}
	}
	return audio, nil
}

// ListVoices fetches the available voices. Returns an empty list when the
// client has no API key.
func (c *ElevenLabsClient) ListVoices(ctx context.Context) ([]Voice, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("voices request failed (status %d): %s", resp.StatusCode, string(errBody))
	}

	var parsed struct {
		Voices []struct {
			VoiceID  string `json:"voice_id"`
			Name     string `json:"name"`
			Category string `json:"category"`
		} `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding voices: %w", err)
	}

	voices := make([]Voice, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		category := v.Category
		if category == "" {
			category = "custom"
		}
		voices = append(voices, Voice{VoiceID: v.VoiceID, Name: v.Name, Category: category})
	}
	return voices, nil
}
