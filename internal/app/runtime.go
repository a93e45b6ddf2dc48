package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/moot-ai/moot-backend/internal/agent"
	"github.com/moot-ai/moot-backend/internal/config"
	"github.com/moot-ai/moot-backend/internal/llm"
	"github.com/moot-ai/moot-backend/internal/storage"
	"github.com/moot-ai/moot-backend/internal/stream"
	"github.com/moot-ai/moot-backend/internal/tools"
	"github.com/moot-ai/moot-backend/internal/voice"
	"github.com/moot-ai/moot-backend/internal/web"

	"golang.org/x/crypto/bcrypt"
)

// Run wires everything together and serves until a shutdown signal.
func Run(cfg *config.Config, db *storage.Database) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[app] shutting down...")
		cancel()
	}()

	if err := ensureDirectories(cfg); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}

	// LLM provider.
	provider := llm.CreateProvider(cfg)
	log.Printf("[app] LLM provider: %s (model: %s)", provider.ProviderName(), provider.ModelName())

	// Speech backend. Requests without a voice_id run text-only either way.
	synth, voices := buildVoiceBackend(cfg)
	if synth == nil {
		log.Println("[app] no speech backend configured, audio disabled")
	} else {
		log.Printf("[app] speech backend: %s", cfg.Voice.Backend)
	}

	// Tool registry.
	toolRegistry := tools.BuildStandardRegistry(tools.RegistryConfig{
		UploadsDir:    cfg.UploadsDir(),
		GeneratedDir:  cfg.GeneratedDir(),
		PerplexityKey: cfg.Search.PerplexityAPIKey,
	})
	log.Printf("[app] tools: %d registered", len(toolRegistry.ToolNames()))

	runtime := agent.NewRuntime(cfg, db, provider, toolRegistry)
	mux := stream.NewMultiplexer(synth, time.Duration(cfg.Voice.SynthesisTimeoutSecs)*time.Second)

	// Seed the access password from config on first start.
	if cfg.Web.Password != nil && *cfg.Web.Password != "" {
		if err := seedPassword(db, *cfg.Web.Password); err != nil {
			return fmt.Errorf("seeding web password: %w", err)
		}
	}

	// Document retention sweeper.
	if stop, err := startRetentionSweeper(cfg, db); err != nil {
		log.Printf("[app] retention sweeper disabled: %v", err)
	} else if stop != nil {
		defer stop()
		log.Printf("[app] retention sweeper started (%s, ttl %dh)",
			cfg.Retention.SweepSchedule, cfg.Retention.FileTTLHours)
	}

	server := web.NewServer(cfg, db, runtime, mux, voices)
	return server.Start(ctx)
}

// buildVoiceBackend returns the synthesizer and, when the backend supports
// it, the voice lister for /voices.
func buildVoiceBackend(cfg *config.Config) (stream.Synthesizer, web.VoiceLister) {
	switch cfg.Voice.Backend {
	case "deepgram":
		if cfg.Voice.DeepgramAPIKey == "" {
			return nil, nil
		}
		return voice.NewDeepgramClient(cfg.Voice.DeepgramAPIKey), nil
	default:
		if cfg.Voice.ElevenLabsAPIKey == "" {
			return nil, nil
		}
		client := voice.NewElevenLabsClient(cfg.Voice.ElevenLabsAPIKey, cfg.Voice.ElevenLabsModel, "")
		return client, client
	}
}

// seedPassword stores the configured password hash unless one is already set
// through the API.
func seedPassword(db *storage.Database, password string) error {
	if _, has, err := db.GetAuthPasswordHash(); err != nil {
		return err
	} else if has {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.UpsertAuthPasswordHash(string(hash))
}

func ensureDirectories(cfg *config.Config) error {
	dirs := []string{
		cfg.UploadsDir(),
		cfg.GeneratedDir(),
		filepath.Join(cfg.DataDir, "archives"),
		filepath.Join(cfg.DataDir, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}
