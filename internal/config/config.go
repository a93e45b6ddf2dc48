package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/moot-ai/moot-backend/internal/core"
)

// Config holds all Moot backend configuration.
type Config struct {
	DataDir string `yaml:"data_dir"`

	LLM       LLMConfig       `yaml:"llm"`
	Agent     AgentConfig     `yaml:"agent"`
	Voice     VoiceConfig     `yaml:"voice"`
	Search    SearchConfig    `yaml:"search"`
	Web       WebConfig       `yaml:"web"`
	Retention RetentionConfig `yaml:"retention"`
}

// LLMConfig selects and configures the model backend.
type LLMConfig struct {
	Provider  string  `yaml:"provider"` // "gemini" or "openai"
	APIKey    string  `yaml:"api_key"`
	Model     string  `yaml:"model"`
	BaseURL   *string `yaml:"base_url"`
	MaxTokens uint32  `yaml:"max_tokens"`
}

// AgentConfig bounds the agentic loop.
type AgentConfig struct {
	MaxToolIterations     int    `yaml:"max_tool_iterations"`
	MaxSessionMessages    int    `yaml:"max_session_messages"`
	CompactKeepRecent     int    `yaml:"compact_keep_recent"`
	CompactionTimeoutSecs int    `yaml:"compaction_timeout_secs"`
	InstructionPath       string `yaml:"instruction_path"`
}

// VoiceConfig selects and configures speech synthesis.
type VoiceConfig struct {
	Backend              string `yaml:"backend"` // "elevenlabs" or "deepgram"
	ElevenLabsAPIKey     string `yaml:"elevenlabs_api_key"`
	ElevenLabsModel      string `yaml:"elevenlabs_model"`
	DeepgramAPIKey       string `yaml:"deepgram_api_key"`
	SynthesisTimeoutSecs int    `yaml:"synthesis_timeout_secs"`
}

// SearchConfig configures the web_search tool.
type SearchConfig struct {
	PerplexityAPIKey string `yaml:"perplexity_api_key"`
}

// WebConfig configures the HTTP server.
type WebConfig struct {
	Host                 string   `yaml:"host"`
	Port                 uint16   `yaml:"port"`
	CORSAllowedOrigins   []string `yaml:"cors_allowed_origins"`
	Password             *string  `yaml:"password"` // enables login when set
	AuthSessionTTLHours  int      `yaml:"auth_session_ttl_hours"`
	MaxRequestsPerWindow int      `yaml:"max_requests_per_window"`
	RateWindowSeconds    uint64   `yaml:"rate_window_seconds"`
	MaxUploadSizeMB      int64    `yaml:"max_upload_size_mb"`
}

// RetentionConfig controls cleanup of uploaded and generated documents.
type RetentionConfig struct {
	FileTTLHours  int    `yaml:"file_ttl_hours"` // 0 disables the sweeper
	SweepSchedule string `yaml:"sweep_schedule"` // cron spec
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	return Config{
		DataDir: "./moot.data",
		LLM: LLMConfig{
			Provider:  "gemini",
			MaxTokens: 8192,
		},
		Agent: AgentConfig{
			MaxToolIterations:     25,
			MaxSessionMessages:    40,
			CompactKeepRecent:     20,
			CompactionTimeoutSecs: 180,
		},
		Voice: VoiceConfig{
			Backend:              "elevenlabs",
			SynthesisTimeoutSecs: 30,
		},
		Web: WebConfig{
			Host:                 "127.0.0.1",
			Port:                 8000,
			CORSAllowedOrigins:   []string{"http://localhost:3000"},
			AuthSessionTTLHours:  72,
			MaxRequestsPerWindow: 16,
			RateWindowSeconds:    10,
			MaxUploadSizeMB:      25,
		},
		Retention: RetentionConfig{
			FileTTLHours:  0,
			SweepSchedule: "@hourly",
		},
	}
}

// LoadConfig reads and parses the configuration file.
// Resolution order: MOOT_CONFIG env → ./moot.config.yaml → ./moot.config.yml
func LoadConfig() (*Config, error) {
	path := os.Getenv("MOOT_CONFIG")
	if path == "" {
		candidates := []string{"moot.config.yaml", "moot.config.yml"}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}
	if path == "" {
		return nil, fmt.Errorf("no config file found (set MOOT_CONFIG or create moot.config.yaml)")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.postDeserialize()
	return &cfg, nil
}

// postDeserialize normalizes config after YAML parsing. API keys fall back
// to the conventional environment variables so deployments can keep secrets
// out of the config file.
func (c *Config) postDeserialize() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.Voice.Backend = strings.ToLower(strings.TrimSpace(c.Voice.Backend))

	// Auto-select model by provider if empty.
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.Model = "gpt-4o-mini"
		default:
			c.LLM.Model = "gemini-2.0-flash"
		}
	}

	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		default:
			c.LLM.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		}
	}
	if c.Voice.ElevenLabsAPIKey == "" {
		c.Voice.ElevenLabsAPIKey = strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY"))
	}
	if c.Voice.DeepgramAPIKey == "" {
		c.Voice.DeepgramAPIKey = strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY"))
	}
	if c.Search.PerplexityAPIKey == "" {
		c.Search.PerplexityAPIKey = strings.TrimSpace(os.Getenv("PERPLEXITY_API_KEY"))
	}

	// Ensure critical limits have sane minimums.
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 8192
	}
	if c.Agent.MaxToolIterations <= 0 {
		c.Agent.MaxToolIterations = 25
	}
	if c.Agent.MaxSessionMessages <= 0 {
		c.Agent.MaxSessionMessages = 40
	}
	if c.Agent.CompactKeepRecent <= 0 {
		c.Agent.CompactKeepRecent = 20
	}
	if c.Agent.CompactionTimeoutSecs <= 0 {
		c.Agent.CompactionTimeoutSecs = 180
	}
	if c.Voice.SynthesisTimeoutSecs <= 0 {
		c.Voice.SynthesisTimeoutSecs = 30
	}
	if c.Web.MaxRequestsPerWindow <= 0 {
		c.Web.MaxRequestsPerWindow = 16
	}
	if c.Web.RateWindowSeconds == 0 {
		c.Web.RateWindowSeconds = 10
	}
	if c.Web.AuthSessionTTLHours <= 0 {
		c.Web.AuthSessionTTLHours = 72
	}
	if c.Web.MaxUploadSizeMB <= 0 {
		c.Web.MaxUploadSizeMB = 25
	}
	if c.Retention.SweepSchedule == "" {
		c.Retention.SweepSchedule = "@hourly"
	}
}

// Validate checks for configuration errors.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "openai", "":
	default:
		return core.NewConfigErrorf("unknown llm provider %q", c.LLM.Provider)
	}

	switch c.Voice.Backend {
	case "elevenlabs", "deepgram", "":
	default:
		return core.NewConfigErrorf("unknown voice backend %q", c.Voice.Backend)
	}

	// Require a password for non-local hosts.
	if !isLocalHost(c.Web.Host) {
		if c.Web.Password == nil || *c.Web.Password == "" {
			return core.NewConfigError("web.password is required when web.host is not localhost")
		}
	}

	return nil
}

func isLocalHost(host string) bool {
	return host == "127.0.0.1" || host == "localhost" || host == "::1" || host == ""
}

// UploadsDir returns the uploaded documents directory.
func (c *Config) UploadsDir() string {
	return filepath.Join(c.DataDir, "uploads")
}

// GeneratedDir returns the generated documents directory.
func (c *Config) GeneratedDir() string {
	return filepath.Join(c.DataDir, "generated")
}

// DBPath returns the SQLite database file path.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "moot.db")
}
