package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{
			APIKey:     "test-key",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database.addrs")
	}
}

func TestValidate_MissingModel(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding.model")
	}
}

func TestValidate_BadThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DefaultThreshold = 1.5
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for threshold out of range")
	}
	if !strings.Contains(err.Error(), "default_threshold") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestValidate_DefaultLimitAboveMax(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DefaultLimit = 500
	cfg.Search.MaxLimit = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for default_limit above max_limit")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Search.DefaultThreshold != 0.5 {
		t.Errorf("default threshold = %g, want 0.5", cfg.Search.DefaultThreshold)
	}
	if cfg.Search.DefaultLimit != 10 {
		t.Errorf("default limit = %d, want 10", cfg.Search.DefaultLimit)
	}
	if cfg.Indexing.Workers != 4 {
		t.Errorf("default workers = %d, want 4", cfg.Indexing.Workers)
	}
	if cfg.Indexing.MaxAttempts != 5 {
		t.Errorf("default max attempts = %d, want 5", cfg.Indexing.MaxAttempts)
	}
	if cfg.Storage.KeyPrefix != "loredex:" {
		t.Errorf("default key prefix = %q, want %q", cfg.Storage.KeyPrefix, "loredex:")
	}
	if cfg.Embedding.MaxInputChars != 8000 {
		t.Errorf("default max input chars = %d, want 8000", cfg.Embedding.MaxInputChars)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("LOREDEX_TEST_KEY", "secret")

	in := []byte("api_key: ${LOREDEX_TEST_KEY}\nbase_url: ${LOREDEX_TEST_URL:-https://api.openai.com/v1}")
	out := string(expandEnvVars(in))

	if !strings.Contains(out, "api_key: secret") {
		t.Errorf("env var not expanded: %s", out)
	}
	if !strings.Contains(out, "base_url: https://api.openai.com/v1") {
		t.Errorf("default not applied: %s", out)
	}
}
