package factory

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/goibibo/mem0/internal/config"
	"github.com/goibibo/mem0/internal/embeddings"
	"github.com/goibibo/mem0/internal/embeddings/ollama"
)

// NewEmbeddingProvider creates an embedding provider based on config.
// Launches optional async warmup; returns provider immediately for fast startup.
func NewEmbeddingProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) embeddings.Provider {
	switch cfg.EmbedProvider {
	case "", "ollama":
	default:
		log.Warn().Str("provider", cfg.EmbedProvider).Msg("unknown embedding provider; using ollama")
	}
	provider := ollama.New(cfg.OllamaURL, cfg.EmbedModel)

	go func() {
		warmupCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.BootstrapTimeoutSeconds)*time.Second)
		defer cancel()

		if vec, err := provider.Embed(warmupCtx, "factory-warmup-check"); err != nil || len(vec) == 0 {
			log.Warn().Err(err).Int("vec_len", len(vec)).
				Str("model", cfg.EmbedModel).
				Msg("embedding provider warmup failed")
		} else {
			log.Debug().Str("model", cfg.EmbedModel).Int("dim", len(vec)).
				Msg("embedding provider warmup completed")
		}
	}()

	return provider
}
