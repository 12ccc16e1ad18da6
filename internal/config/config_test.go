package config

import (
	"testing"
)

func TestConfigLoad_Defaults(t *testing.T) {
	t.Setenv("OPENMEMORY_ENV", "dev")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "sqlite" || cfg.VectorStore != "chromem" {
		t.Fatalf("unexpected dev mapping: %s %s", cfg.DBDriver, cfg.VectorStore)
	}
	if cfg.SQLitePath == "" {
		t.Fatalf("expected derived sqlite path")
	}
	if cfg.HTTPPort != 8765 || cfg.MaxPageSize != 100 || cfg.SearchThreshold != 0.3 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.EmbedProvider != "ollama" || cfg.EmbedModel != "nomic-embed-text" {
		t.Fatalf("unexpected default embed config: %+v", cfg)
	}
}

func TestConfigLoad_LLMProviderAuto(t *testing.T) {
	t.Setenv("OPENMEMORY_LLM_API_KEY", "")
	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.LLMProvider != "none" {
		t.Fatalf("expected none without key, got %s", cfg.LLMProvider)
	}

	t.Setenv("OPENMEMORY_LLM_API_KEY", "sk-test")
	cfg, err = New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.LLMProvider != "anthropic" {
		t.Fatalf("expected anthropic with key, got %s", cfg.LLMProvider)
	}
}

func TestResolveDefaultsProductionRequiresDSN(t *testing.T) {
	t.Setenv("OPENMEMORY_ENV", "prod")
	t.Setenv("OPENMEMORY_POSTGRES_DSN", "")

	if _, err := New(); err == nil {
		t.Fatalf("expected error without postgres dsn")
	}

	t.Setenv("OPENMEMORY_POSTGRES_DSN", "postgres://u:p@localhost/openmemory")
	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "postgres" || cfg.VectorStore != "weaviate" {
		t.Fatalf("unexpected prod mapping: %s %s", cfg.DBDriver, cfg.VectorStore)
	}
}

func TestResolveDefaultsOverride(t *testing.T) {
	t.Setenv("OPENMEMORY_ENV", "prod")
	t.Setenv("OPENMEMORY_DB_DRIVER", "sqlite")
	t.Setenv("OPENMEMORY_VECTOR_STORE", "chromem")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "sqlite" || cfg.VectorStore != "chromem" {
		t.Fatalf("override failed, got %s %s", cfg.DBDriver, cfg.VectorStore)
	}
}

func TestResolveDefaultsRejectsUnknown(t *testing.T) {
	cases := map[string]Config{
		"env":       {Environment: "staging", MaxPageSize: 10},
		"driver":    {Environment: EnvDevelopment, DBDriver: "mysql", MaxPageSize: 10},
		"vector":    {Environment: EnvDevelopment, VectorStore: "qdrant", MaxPageSize: 10},
		"llm":       {Environment: EnvDevelopment, LLMProvider: "openai", MaxPageSize: 10},
		"page size": {Environment: EnvDevelopment, MaxPageSize: 0},
		"threshold": {Environment: EnvDevelopment, MaxPageSize: 10, SearchThreshold: 1.5},
	}
	for name, cfg := range cases {
		cfg := cfg
		if err := cfg.ResolveDefaults(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestConfigLoad_BootstrapTimeoutEnvOverride(t *testing.T) {
	t.Setenv("OPENMEMORY_BOOTSTRAP_TIMEOUT_SECONDS", "10")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.BootstrapTimeoutSeconds != 10 {
		t.Fatalf("bootstrap timeout env override failed, got %d", cfg.BootstrapTimeoutSeconds)
	}
}

func TestNewForTesting(t *testing.T) {
	cfg := NewForTesting()
	if !cfg.IsTesting() || cfg.IsProduction() {
		t.Fatalf("unexpected environment %s", cfg.Environment)
	}
	if cfg.GetHTTPAddr() != ":8765" {
		t.Fatalf("unexpected addr %s", cfg.GetHTTPAddr())
	}
}
