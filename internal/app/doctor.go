package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/moot-ai/moot-backend/internal/config"
)

// Check represents a single diagnostic check result.
type Check struct {
	Name   string
	Status string // "ok", "warn", "fail"
	Detail string
}

// RunDoctor performs preflight diagnostics.
func RunDoctor(cfg *config.Config) []Check {
	var checks []Check

	checks = append(checks, checkConfig(cfg))
	checks = append(checks, checkDataDir(cfg.DataDir))
	checks = append(checks, checkLLMKey(cfg))
	checks = append(checks, checkVoiceKey(cfg))

	if cfg.Search.PerplexityAPIKey != "" {
		checks = append(checks, Check{Name: "search", Status: "ok", Detail: "Perplexity key configured"})
	} else {
		checks = append(checks, Check{Name: "search", Status: "warn", Detail: "No Perplexity key, web_search falls back to DuckDuckGo"})
	}

	if cfg.Retention.FileTTLHours > 0 {
		checks = append(checks, Check{Name: "retention", Status: "ok",
			Detail: fmt.Sprintf("Documents kept %dh (%s)", cfg.Retention.FileTTLHours, cfg.Retention.SweepSchedule)})
	} else {
		checks = append(checks, Check{Name: "retention", Status: "warn", Detail: "Disabled, documents kept forever"})
	}

	return checks
}

func checkConfig(cfg *config.Config) Check {
	if err := cfg.Validate(); err != nil {
		return Check{Name: "config", Status: "fail", Detail: err.Error()}
	}
	return Check{Name: "config", Status: "ok",
		Detail: fmt.Sprintf("Provider: %s, Model: %s", cfg.LLM.Provider, cfg.LLM.Model)}
}

func checkDataDir(dataDir string) Check {
	if info, err := os.Stat(dataDir); err != nil {
		if os.IsNotExist(err) {
			return Check{Name: "data_dir", Status: "warn", Detail: fmt.Sprintf("%s does not exist (will be created)", dataDir)}
		}
		return Check{Name: "data_dir", Status: "fail", Detail: err.Error()}
	} else if !info.IsDir() {
		return Check{Name: "data_dir", Status: "fail", Detail: fmt.Sprintf("%s is not a directory", dataDir)}
	}
	return Check{Name: "data_dir", Status: "ok", Detail: dataDir}
}

func checkLLMKey(cfg *config.Config) Check {
	if cfg.LLM.APIKey == "" {
		return Check{Name: "llm_api_key", Status: "fail", Detail: "API key not set"}
	}
	return Check{Name: "llm_api_key", Status: "ok", Detail: fmt.Sprintf("Set (%s)", maskKey(cfg.LLM.APIKey))}
}

func checkVoiceKey(cfg *config.Config) Check {
	key := cfg.Voice.ElevenLabsAPIKey
	if cfg.Voice.Backend == "deepgram" {
		key = cfg.Voice.DeepgramAPIKey
	}
	if key == "" {
		return Check{Name: "voice", Status: "warn",
			Detail: fmt.Sprintf("No %s key, responses will be text-only", cfg.Voice.Backend)}
	}
	return Check{Name: "voice", Status: "ok",
		Detail: fmt.Sprintf("%s (%s)", cfg.Voice.Backend, maskKey(key))}
}

func maskKey(key string) string {
	if len(key) < 9 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// FormatChecks formats diagnostic results for display.
func FormatChecks(checks []Check) string {
	var sb strings.Builder
	for _, c := range checks {
		icon := "✓"
		switch c.Status {
		case "warn":
			icon = "!"
		case "fail":
			icon = "✗"
		}
		sb.WriteString(fmt.Sprintf("[%s] %s: %s\n", icon, c.Name, c.Detail))
	}
	return sb.String()
}
