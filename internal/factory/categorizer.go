package factory

import (
	"github.com/rs/zerolog"

	"github.com/goibibo/mem0/internal/categorize"
	"github.com/goibibo/mem0/internal/config"
)

// NewCategorizer returns the LLM categorizer, or a no-op when none is configured.
func NewCategorizer(cfg *config.Config, log zerolog.Logger) categorize.Categorizer {
	if cfg.LLMProvider != "anthropic" {
		log.Info().Msg("automatic categorization disabled")
		return categorize.Noop{}
	}
	return categorize.NewAnthropic(cfg.LLMAPIKey, cfg.LLMModel, log)
}
