package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alkime/scribe/internal/config"
	"github.com/alkime/scribe/internal/generate"
	"github.com/alkime/scribe/internal/keyring"
	"github.com/alkime/scribe/internal/logger"
	"github.com/alkime/scribe/internal/server"
	"github.com/alkime/scribe/internal/store"
	"github.com/alkime/scribe/internal/transcribe"
)

const pruneInterval = time.Hour

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.SetupLogger(cfg)
	logger.Info("Starting scribe server",
		"env", cfg.Env,
		"port", cfg.Port,
		"notes_provider", cfg.NotesProvider,
		"db_path", cfg.DBPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolveKeys(cfg, logger)

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	deps := server.Deps{
		Store:  st,
		Videos: transcribe.NewCaptions("en"),
	}
	if w, err := generate.New(cfg); err != nil {
		logger.Warn("Notes generation disabled", "error", err)
	} else {
		deps.Notes = w
	}
	if w, err := transcribe.NewWhisper(cfg.OpenAIAPIKey, ""); err != nil {
		logger.Warn("Audio transcription disabled", "error", err)
	} else {
		deps.Audio = w
	}

	if cfg.SessionTTL > 0 {
		go prune(ctx, st, cfg.SessionTTL, logger)
	}

	if err := server.Run(ctx, server.New(cfg, deps, logger)); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// resolveKeys fills provider keys missing from the environment from the
// system keychain, which is convenient for local development.
func resolveKeys(cfg *config.Config, logger *slog.Logger) {
	for key, dst := range map[keyring.APIKey]*string{
		keyring.OpenAI:    &cfg.OpenAIAPIKey,
		keyring.Anthropic: &cfg.AnthropicAPIKey,
		keyring.Groq:      &cfg.GroqAPIKey,
	} {
		v, err := keyring.Resolve(key, *dst)
		if err != nil {
			logger.Debug("API key not resolved", "key", key.DisplayName(), "error", err)
			continue
		}
		*dst = v
	}
}

func prune(ctx context.Context, st *store.Store, ttl time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := st.Prune(ctx, now.Add(-ttl))
			if err != nil {
				logger.Warn("Failed to prune sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("Pruned sessions", "count", n)
			}
		}
	}
}
