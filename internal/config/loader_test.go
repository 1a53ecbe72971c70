package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/scopeql/internal/config"
)

const fullConfig = `
server:
  log_level: debug
  metrics_addr: ":9090"
cache:
  max_entries: 256
  ttl: 30s
resolver:
  max_depth: 6
repair:
  similarity_threshold: 0.85
  auto_map: true
storage:
  backend: memory
world:
  path: testdata/world.yaml
references:
  visible: actor.visible_clothing + target.visible_clothing
`

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(fullConfig))
	if err != nil {
		t.Fatalf("LoadFromReader: unexpected error: %v", err)
	}

	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Cache.MaxEntries != 256 {
		t.Errorf("max_entries = %d, want 256", cfg.Cache.MaxEntries)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("ttl = %s, want 30s", cfg.Cache.TTL)
	}
	if cfg.Resolver.MaxDepth != 6 {
		t.Errorf("max_depth = %d, want 6", cfg.Resolver.MaxDepth)
	}
	if cfg.Repair.SimilarityThreshold != 0.85 {
		t.Errorf("similarity_threshold = %v, want 0.85", cfg.Repair.SimilarityThreshold)
	}
	if !cfg.Repair.AutoMap {
		t.Error("auto_map = false, want true")
	}
	if cfg.Storage.Backend != config.BackendMemory {
		t.Errorf("backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.References["visible"] == "" {
		t.Error("references.visible missing")
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("server:\n  log_levle: debug\n"))
	if err == nil {
		t.Fatal("expected an error for a misspelt key")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "invalid log level",
			mutate:  func(c *config.Config) { c.Server.LogLevel = "verbose" },
			wantErr: "server.log_level",
		},
		{
			name:    "negative cache size",
			mutate:  func(c *config.Config) { c.Cache.MaxEntries = -1 },
			wantErr: "cache.max_entries",
		},
		{
			name:    "negative depth",
			mutate:  func(c *config.Config) { c.Resolver.MaxDepth = -2 },
			wantErr: "resolver.max_depth",
		},
		{
			name:    "threshold above one",
			mutate:  func(c *config.Config) { c.Repair.SimilarityThreshold = 1.5 },
			wantErr: "repair.similarity_threshold",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *config.Config) { c.Storage.Backend = "redis" },
			wantErr: "storage.backend",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *config.Config) { c.Storage.Backend = config.BackendPostgres },
			wantErr: "storage.postgres_dsn",
		},
		{
			name: "empty reference expression",
			mutate: func(c *config.Config) {
				c.References = map[string]string{"visible": ""}
			},
			wantErr: "references.visible",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &config.Config{}
			tt.mutate(cfg)
			err := config.Validate(cfg)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCollectsAllFailures(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Server.LogLevel = "loud"
	cfg.Cache.MaxEntries = -5
	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if !strings.Contains(err.Error(), "server.log_level") ||
		!strings.Contains(err.Error(), "cache.max_entries") {
		t.Fatalf("joined error should mention both failures: %v", err)
	}
}

func TestBackendIsValid(t *testing.T) {
	t.Parallel()

	if !config.BackendMemory.IsValid() || !config.BackendPostgres.IsValid() {
		t.Error("canonical backends must be valid")
	}
	if config.Backend("sqlite").IsValid() {
		t.Error("unknown backend must be invalid")
	}
}
