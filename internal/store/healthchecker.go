package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/goibibo/mem0/internal/health"
	"github.com/goibibo/mem0/internal/model"
)

// NewHealthChecker returns a checker named "store". Stores that implement
// health.HealthPinger are pinged directly; others get a cheap user lookup where
// a not-found answer counts as healthy.
func NewHealthChecker(s Store, log zerolog.Logger, probeTimeout time.Duration) *health.PingChecker {
	var p health.HealthPinger
	if hp, ok := s.(health.HealthPinger); ok {
		p = hp
	} else {
		p = health.PingFunc(func(ctx context.Context) error {
			_, err := s.Users().GetByUserID(ctx, "__health_check__")
			if err == nil || errors.Is(err, model.ErrNotFound) {
				return nil
			}
			return err
		})
	}
	return health.NewPingChecker("store", p, log, probeTimeout)
}
