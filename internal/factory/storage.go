package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/goibibo/mem0/internal/config"
	storepkg "github.com/goibibo/mem0/internal/store"
	storepg "github.com/goibibo/mem0/internal/store/postgres"
	storesqlite "github.com/goibibo/mem0/internal/store/sqlite"
)

// NewStore returns the relational store selected by cfg.DBDriver with its schema
// applied. Postgres migrations are bounded by BootstrapTimeoutSeconds.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		st, err := storesqlite.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %s: %w", cfg.SQLitePath, err)
		}
		log.Info().Str("driver", "sqlite").Str("path", cfg.SQLitePath).Msg("store ready")
		return st, nil

	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("%s_POSTGRES_DSN is required when DB_DRIVER=postgres", config.EnvPrefix)
		}
		// Open connection synchronously since health checks need it immediately
		db, err := storepg.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		bootstrapCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.BootstrapTimeoutSeconds)*time.Second)
		defer cancel()
		if err := storepg.Bootstrap(bootstrapCtx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("postgres schema bootstrap: %w", err)
		}
		log.Info().Str("driver", "postgres").Msg("store ready")
		return storepg.NewWithDB(db), nil

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
