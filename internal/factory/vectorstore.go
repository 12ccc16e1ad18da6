package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/goibibo/mem0/internal/config"
	"github.com/goibibo/mem0/internal/vectorstore"
)

// NewVectorStore creates the vector index selected by cfg.VectorStore. "none"
// returns a nil index; semantic search is then reported as unavailable.
// Weaviate schema bootstrap runs asynchronously with a short timeout so startup
// is not blocked on the remote store.
func NewVectorStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (vectorstore.Index, error) {
	switch cfg.VectorStore {
	case "weaviate":
		if cfg.WeaviateURL == "" {
			return nil, fmt.Errorf("%s_WEAVIATE_URL is required when VECTOR_STORE=weaviate", config.EnvPrefix)
		}
		idx, err := vectorstore.NewWeaviate(cfg.WeaviateURL, cfg.WeaviateClass)
		if err != nil {
			return nil, err
		}
		go func() {
			bootstrapCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.BootstrapTimeoutSeconds)*time.Second)
			defer cancel()

			if err := vectorstore.BootstrapWeaviate(bootstrapCtx, cfg.WeaviateURL, cfg.WeaviateClass); err != nil {
				log.Warn().Err(err).Str("url", cfg.WeaviateURL).Msg("vector store bootstrap failed")
			} else {
				log.Debug().Str("url", cfg.WeaviateURL).Str("class", cfg.WeaviateClass).Msg("vector store bootstrap completed")
			}
		}()
		return idx, nil

	case "chromem":
		idx, err := vectorstore.NewChromem(cfg.ChromemPath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.ChromemPath).Msg("embedded vector store ready")
		return idx, nil

	case "none", "":
		log.Warn().Msg("no vector store configured; semantic search disabled")
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown VECTOR_STORE: %s", cfg.VectorStore)
	}
}
