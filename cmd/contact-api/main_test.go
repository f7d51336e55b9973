package main

import (
	"context"
	"testing"

	"github.com/shineum/contact-api/internal/config"
	"github.com/shineum/contact-api/internal/stats"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestSelectProvider(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		want   string
	}{
		{name: "default relay", modify: func(*config.Config) {}, want: "smtp"},
		{name: "explicit stdout", modify: func(c *config.Config) { c.Provider = config.ProviderStdout }, want: "stdout"},
		{name: "graph auto-detected", modify: func(c *config.Config) {
			c.Graph = config.GraphConfig{TenantID: "t", ClientID: "c", ClientSecret: "s", Sender: "web@example.com"}
		}, want: "graph"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Provider = ""
			cfg.Graph = config.GraphConfig{}
			cfg.SES = config.SESConfig{}
			tt.modify(cfg)

			p, err := selectProvider(context.Background(), cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := p.Name(); got != tt.want {
				t.Errorf("provider: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectProvider_Unknown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider = "carrier-pigeon"

	if _, err := selectProvider(context.Background(), cfg); err == nil {
		t.Error("expected error for unknown provider, got nil")
	}
}

func TestSetupStats_MemoryWithoutRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Stats.RedisAddr = ""

	rec, closeFn := setupStats(context.Background(), cfg)
	defer closeFn()

	if _, ok := rec.(*stats.Memory); !ok {
		t.Errorf("recorder: got %T, want *stats.Memory", rec)
	}
}
