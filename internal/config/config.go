package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// EnvPrefix is prepended to every variable name, e.g. OPENMEMORY_HTTP_PORT.
const EnvPrefix = "OPENMEMORY"

// Environment selects the default storage stack.
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvTesting     Environment = "test"
	EnvProduction  Environment = "prod"
)

// Config holds the configuration for the OpenMemory API service.
// Environment variables are parsed from the OPENMEMORY_ prefix; a .env file in the
// working directory is loaded first when present.
type Config struct {
	Environment Environment `envconfig:"ENV" default:"dev"`

	// Derived when "auto": dev uses sqlite+chromem, prod uses postgres+weaviate.
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	VectorStore string `envconfig:"VECTOR_STORE" default:"auto"`

	HTTPPort int    `envconfig:"HTTP_PORT" default:"8765"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	SQLitePath  string `envconfig:"SQLITE_PATH" default:""`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	WeaviateURL   string `envconfig:"WEAVIATE_URL" default:"localhost:8080"`
	WeaviateClass string `envconfig:"WEAVIATE_CLASS" default:"OpenMemory"`
	// Empty keeps the chromem collection in memory.
	ChromemPath string `envconfig:"CHROMEM_PATH" default:""`

	EmbedProvider string `envconfig:"EMBED_PROVIDER" default:"ollama"`
	EmbedModel    string `envconfig:"EMBED_MODEL" default:"nomic-embed-text"`
	OllamaURL     string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`

	// LLMProvider "auto" picks anthropic when an API key is present.
	LLMProvider string `envconfig:"LLM_PROVIDER" default:"auto"`
	LLMModel    string `envconfig:"LLM_MODEL" default:"claude-3-5-haiku-latest"`
	LLMAPIKey   string `envconfig:"LLM_API_KEY" default:""`

	MaxPageSize     int     `envconfig:"MAX_PAGE_SIZE" default:"100"`
	SearchThreshold float64 `envconfig:"SEARCH_THRESHOLD" default:"0.3"`
	UserCacheSize   int64   `envconfig:"USER_CACHE_SIZE" default:"10000"`

	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
	BootstrapTimeoutSeconds   int `envconfig:"BOOTSTRAP_TIMEOUT_SECONDS" default:"5"`
}

// ResolveDefaults validates Environment and derives DBDriver, VectorStore and
// LLMProvider when set to "auto" or empty.
func (c *Config) ResolveDefaults() error {
	var defaultDB, defaultVS string

	switch c.Environment {
	case EnvDevelopment, EnvTesting:
		defaultDB, defaultVS = "sqlite", "chromem"
	case EnvProduction:
		defaultDB, defaultVS = "postgres", "weaviate"
	default:
		return fmt.Errorf("unsupported ENV: %s", c.Environment)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = defaultDB
	}
	if c.VectorStore == "" || c.VectorStore == "auto" {
		c.VectorStore = defaultVS
	}
	if c.LLMProvider == "" || c.LLMProvider == "auto" {
		if c.LLMAPIKey != "" {
			c.LLMProvider = "anthropic"
		} else {
			c.LLMProvider = "none"
		}
	}

	switch c.DBDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			c.SQLitePath = filepath.Join("data", "openmemory.db")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("%s_POSTGRES_DSN is required when DB_DRIVER=postgres", EnvPrefix)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	switch c.VectorStore {
	case "weaviate", "chromem", "none":
	default:
		return fmt.Errorf("unsupported VECTOR_STORE: %s", c.VectorStore)
	}

	switch c.LLMProvider {
	case "anthropic":
		if c.LLMAPIKey == "" {
			return fmt.Errorf("%s_LLM_API_KEY is required when LLM_PROVIDER=anthropic", EnvPrefix)
		}
	case "none":
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER: %s", c.LLMProvider)
	}

	if c.MaxPageSize < 1 {
		return fmt.Errorf("MAX_PAGE_SIZE must be >= 1, got %d", c.MaxPageSize)
	}
	if c.SearchThreshold < 0 || c.SearchThreshold > 1 {
		return fmt.Errorf("SEARCH_THRESHOLD must be within [0,1], got %v", c.SearchThreshold)
	}
	if c.HealthIntervalSeconds < 1 {
		c.HealthIntervalSeconds = 1
	}
	return nil
}

// New creates a new Config from the environment.
// Example: OPENMEMORY_ENV=prod OPENMEMORY_POSTGRES_DSN=postgres://...
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Str("vector_store", cfg.VectorStore).
		Int("port", cfg.HTTPPort).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Str("llm_provider", cfg.LLMProvider).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Str("weaviate_url", cfg.WeaviateURL).
		Int("max_page_size", cfg.MaxPageSize).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	cfg := &Config{
		Environment:               EnvTesting,
		DBDriver:                  "sqlite",
		VectorStore:               "chromem",
		HTTPPort:                  8765,
		LogLevel:                  "debug",
		SQLitePath:                ":memory:",
		WeaviateURL:               "localhost:8082",
		WeaviateClass:             "OpenMemory",
		EmbedProvider:             "ollama",
		EmbedModel:                "nomic-embed-text",
		OllamaURL:                 "http://localhost:11434",
		LLMProvider:               "none",
		MaxPageSize:               100,
		SearchThreshold:           0.3,
		UserCacheSize:             1000,
		HealthIntervalSeconds:     1,
		HealthProbeTimeoutSeconds: 1,
		BootstrapTimeoutSeconds:   1,
	}
	return cfg
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
