package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
productUrls:
  - https://shop.example/products/1
sellerHandles:
  - acme
keywords:
  - ceramic mug
categoryUrls:
  - https://shop.example/c/kitchen
region: GB
acceptLanguage: en-GB
userAgent: shopsignal-bot/1.0
maxConcurrency: 6
maxAttempts: 2
includeCreatorVideos: true
captureScreenshots: true
limits:
  maxProducts: 100
  maxProductsPerSeller: 10
  maxProductsPerCategory: 20
timeouts:
  navigationTimeoutSecs: 45
notify:
  enabled: true
  onlyOnChange: false
  sinks:
    - type: webhook
      url: https://hooks.example/notify
    - type: chat
      url: https://chat.example/incoming
headless:
  enabled: true
  maxParallel: 2
proxy:
  urls:
    - http://proxy-a:8080
storage:
  backend: gcs
  gcsBucket: shopsignal-snapshots
server:
  port: 9090
dataset:
  path: out/records.jsonl
selectors:
  productLinks: a.product-card
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.MaxConcurrency != 6 || cfg.MaxAttempts != 2 {
		t.Fatalf("expected pool overrides to apply: %+v", cfg)
	}
	if cfg.Region != "GB" || cfg.AcceptLanguage != "en-GB" {
		t.Fatalf("expected locale overrides to apply: %+v", cfg)
	}
	if cfg.Limits.MaxProducts != 100 || cfg.Limits.MaxProductsPerSeller != 10 {
		t.Fatalf("expected limits to be loaded: %+v", cfg.Limits)
	}
	if !cfg.Notify.Enabled || cfg.Notify.OnlyOnChange {
		t.Fatalf("expected notify gates to be loaded: %+v", cfg.Notify)
	}
	if len(cfg.Notify.Sinks) != 2 || cfg.Notify.Sinks[0].Type != "webhook" {
		t.Fatalf("expected sinks to be loaded: %+v", cfg.Notify.Sinks)
	}
	if cfg.Storage.Backend != "gcs" || cfg.Storage.GCSBucket != "shopsignal-snapshots" {
		t.Fatalf("expected storage backend overrides: %+v", cfg.Storage)
	}
	if len(cfg.SellerHandles) != 1 || cfg.SellerHandles[0] != "acme" {
		t.Fatalf("expected seed handles to be loaded: %+v", cfg.SellerHandles)
	}
	if cfg.Selectors.ProductLinks != "a.product-card" {
		t.Fatalf("expected selector override, got %q", cfg.Selectors.ProductLinks)
	}
	if got := cfg.NavigationTimeout(); got != 45*time.Second {
		t.Fatalf("expected navigation timeout 45s, got %v", got)
	}
	if got := cfg.SinkTimeout(); got != 10*time.Second {
		t.Fatalf("expected default sink timeout 10s, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MaxConcurrency != 4 || cfg.MaxAttempts != 3 {
		t.Fatalf("unexpected pool defaults: %+v", cfg)
	}
	if cfg.Storage.Backend != "memory" {
		t.Fatalf("expected memory storage default, got %q", cfg.Storage.Backend)
	}
	if !cfg.Notify.OnlyOnChange {
		t.Fatal("expected onlyOnChange default true")
	}
	if cfg.Limits.MaxProducts != 0 {
		t.Fatalf("expected unlimited products by default, got %d", cfg.Limits.MaxProducts)
	}
	if !strings.Contains(cfg.Seeds.SellerURLTemplate, "%s") {
		t.Fatalf("seller template must carry a handle slot: %q", cfg.Seeds.SellerURLTemplate)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		MaxConcurrency: 4,
		MaxAttempts:    3,
		Server:         ServerConfig{Port: 8080},
		Storage:        StorageConfig{Backend: "memory"},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "invalid concurrency",
			cfg: func() Config {
				c := base
				c.MaxConcurrency = 0
				return c
			}(),
			want: "maxConcurrency",
		},
		{
			name: "invalid attempts",
			cfg: func() Config {
				c := base
				c.MaxAttempts = 0
				return c
			}(),
			want: "maxAttempts",
		},
		{
			name: "headless missing max parallel",
			cfg: func() Config {
				c := base
				c.Headless.Enabled = true
				c.Headless.MaxParallel = 0
				return c
			}(),
			want: "headless.maxParallel",
		},
		{
			name: "local backend without base dir",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "local"
				return c
			}(),
			want: "storage.baseDir",
		},
		{
			name: "gcs backend without bucket",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "gcs"
				return c
			}(),
			want: "storage.gcsBucket",
		},
		{
			name: "postgres backend without dsn",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "postgres"
				return c
			}(),
			want: "storage.dsn",
		},
		{
			name: "unknown backend",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "redis"
				return c
			}(),
			want: "storage backend",
		},
		{
			name: "sink without url",
			cfg: func() Config {
				c := base
				c.Notify.Sinks = []SinkConfig{{Type: "webhook"}}
				return c
			}(),
			want: "notify.sinks[0].url",
		},
		{
			name: "sink with unknown type",
			cfg: func() Config {
				c := base
				c.Notify.Sinks = []SinkConfig{{Type: "carrier-pigeon", URL: "x"}}
				return c
			}(),
			want: "not supported",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
