// Package apiserver assembles and runs the OpenMemory HTTP service.
package apiserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/goibibo/mem0/internal/api"
	"github.com/goibibo/mem0/internal/categorize"
	"github.com/goibibo/mem0/internal/config"
	"github.com/goibibo/mem0/internal/embeddings"
	"github.com/goibibo/mem0/internal/factory"
	"github.com/goibibo/mem0/internal/health"
	"github.com/goibibo/mem0/internal/logger"
	"github.com/goibibo/mem0/internal/mcpserver"
	"github.com/goibibo/mem0/internal/services"
	"github.com/goibibo/mem0/internal/store"
	"github.com/goibibo/mem0/internal/vectorstore"
)

// deps holds the constructed backends.
type deps struct {
	store store.Store
	index vectorstore.Index
	emb   embeddings.Provider
	cat   categorize.Categorizer
}

// Run starts the API server and blocks until shutdown or error.
func Run() error {
	log := logger.New("openmemory-api")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	logger.SetLevel(cfg.LogLevel)

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Str("vector_store", cfg.VectorStore).
		Int("http_port", cfg.HTTPPort).
		Msg("OpenMemory API starting")

	ctx, stop := newServerContext()
	defer stop()

	d, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.store.Close(); err != nil {
			log.Warn().Err(err).Msg("closing store")
		}
	}()

	svcHealth := startHealthCheckers(ctx, cfg, log, d)

	handler, closeServices, err := buildHandler(cfg, log, d, svcHealth)
	if err != nil {
		return err
	}
	defer closeServices()

	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, handler)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// initDependencies constructs the backends. Only the store is mandatory; a
// missing vector store disables semantic search.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*deps, error) {
	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return nil, err
	}

	idx, err := factory.NewVectorStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Vector store adapter unavailable")
		_ = st.Close()
		return nil, err
	}

	d := &deps{store: st, index: idx, cat: factory.NewCategorizer(cfg, log)}
	if idx != nil {
		d.emb = factory.NewEmbeddingProvider(ctx, cfg, log)
	}
	return d, nil
}

// buildHandler wires services, the REST router and the MCP endpoint. The
// returned func releases service resources.
func buildHandler(cfg *config.Config, log zerolog.Logger, d *deps, h api.HealthReporter) (http.Handler, func(), error) {
	users, err := services.NewUserService(d.store, cfg.UserCacheSize, log)
	if err != nil {
		return nil, nil, fmt.Errorf("user service: %w", err)
	}
	svc := api.Services{
		Users:      users,
		Apps:       services.NewAppService(d.store, users),
		Categories: services.NewCategoryService(d.store, users),
		Memories:   services.NewMemoryService(d.store, users, d.index, d.emb, d.cat, log),
	}
	mcp := mcpserver.NewHandler(mcpserver.NewMCPServer(svc.Memories, users, log))

	router := api.NewRouter(svc, api.Options{
		MaxPageSize:     cfg.MaxPageSize,
		SearchThreshold: cfg.SearchThreshold,
		Health:          h,
		MCP:             mcp,
		Log:             log,
	})
	return router, users.Close, nil
}

// startHealthCheckers starts component checkers and the service-level aggregator.
// The store decides service health; the vector store and embedder are reported
// as components only.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, d *deps) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	storeChecker := store.NewHealthChecker(d.store, log, probeTimeout)
	go storeChecker.Start(ctx, interval)
	svcHealth := health.NewServiceHealthChecker(log, storeChecker)

	if p, ok := d.index.(health.HealthPinger); ok {
		c := health.NewPingChecker("vector_store", p, log, probeTimeout)
		go c.Start(ctx, interval)
		svcHealth.WithOptional(c)
	}
	if p, ok := d.emb.(health.HealthPinger); ok {
		c := health.NewPingChecker("embedder", p, log, probeTimeout)
		go c.Start(ctx, interval)
		svcHealth.WithOptional(c)
	}

	go svcHealth.Start(ctx, interval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// no write timeout: MCP streams stay open
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// interval*2 with a minimum of 30 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 30 {
		return 30
	}
	return timeout
}

type healthFlag interface{ IsHealthy() bool }

// waitUntilHealthy blocks until the service reports healthy or the startup
// window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth healthFlag) error {
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a context cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
