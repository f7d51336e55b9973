// Package main is the entry point for the contact form API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shineum/contact-api/internal/api"
	"github.com/shineum/contact-api/internal/config"
	"github.com/shineum/contact-api/internal/email"
	"github.com/shineum/contact-api/internal/limiter"
	"github.com/shineum/contact-api/internal/logging"
	"github.com/shineum/contact-api/internal/mailer"
	"github.com/shineum/contact-api/internal/provider"
	"github.com/shineum/contact-api/internal/provider/graph"
	"github.com/shineum/contact-api/internal/provider/relay"
	"github.com/shineum/contact-api/internal/provider/ses"
	"github.com/shineum/contact-api/internal/provider/stdout"
	"github.com/shineum/contact-api/internal/stats"
	contacttls "github.com/shineum/contact-api/internal/tls"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	envFile := flag.String("env-file", ".env", "path to dotenv file, ignored when missing")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		slog.Error("failed to load env file", "error", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, logCloser := logging.New(cfg.Logging, os.Stdout)
	defer logCloser.Close()
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prov, err := selectProvider(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up mail provider", "error", err)
		os.Exit(1)
	}
	if prov.Name() == config.ProviderSMTP && !cfg.AuthEnabled() {
		slog.Warn("SMTP_USER or SMTP_PASS not set, relaying without authentication; messages may not be delivered",
			"relay", cfg.SMTPAddr(),
		)
	}

	recorder, closeStats := setupStats(ctx, cfg)
	defer closeStats()

	tlsConfig, err := contacttls.ServerConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.SelfSigned)
	if err != nil {
		slog.Error("failed to setup TLS", "error", err)
		os.Exit(1)
	}

	limit := limiter.New(cfg.RateLimit.Max, cfg.RateLimit.Window)
	limit.StartJanitor(ctx, cfg.RateLimit.CleanupInterval)

	dispatcher := mailer.New(mailer.Config{
		Template: email.Template{
			From:          cfg.Sender(),
			To:            cfg.Mail.Recipient,
			SubjectPrefix: cfg.Mail.SubjectPrefix,
		},
		Timeout: cfg.SMTP.Timeout,
	}, prov, logger)

	handler := api.New(api.Options{
		Limiter:          limit,
		Dispatcher:       dispatcher,
		Recorder:         recorder,
		Logger:           logger,
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		EnforceAllowlist: cfg.CORS.EnforceAllowlist,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           handler,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Leaves room for a full delivery attempt.
		WriteTimeout: cfg.SMTP.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	slog.Info("starting contact-api",
		"listen", cfg.Server.Listen,
		"provider", prov.Name(),
		"recipient", cfg.Mail.Recipient,
		"rate_limit", fmt.Sprintf("%d/%s", cfg.RateLimit.Max, cfg.RateLimit.Window),
		"tls", tlsConfig != nil,
		"cors_enforced", cfg.CORS.EnforceAllowlist,
		"stats", cfg.StatsEnabled(),
	)

	errCh := make(chan error, 1)
	go func() {
		if tlsConfig != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("received signal, initiating shutdown")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}

	if mem, ok := recorder.(*stats.Memory); ok {
		slog.Info("request outcomes", "counts", mem.Snapshot())
	}
	slog.Info("contact-api stopped")
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// selectProvider builds the delivery backend chosen by configuration.
func selectProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch name := cfg.ResolvedProvider(); name {
	case config.ProviderSMTP:
		slog.Info("using SMTP relay provider",
			"relay", cfg.SMTPAddr(),
			"auth_enabled", cfg.AuthEnabled(),
		)
		return relay.New(relay.Config{
			Addr:      cfg.SMTPAddr(),
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			Timeout:   cfg.SMTP.Timeout,
			TLSConfig: contacttls.ClientConfig(cfg.SMTP.Host, cfg.SMTP.InsecureSkipVerify),
		}), nil

	case config.ProviderSES:
		slog.Info("using AWS SES provider",
			"region", cfg.SES.Region,
			"sender", cfg.SES.Sender,
		)
		p, err := ses.New(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			Sender:          cfg.SES.Sender,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES provider: %w", err)
		}
		return p, nil

	case config.ProviderGraph:
		slog.Info("using Microsoft Graph provider",
			"sender", cfg.Graph.Sender,
		)
		return graph.New(graph.Config{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Sender:       cfg.Graph.Sender,
		}), nil

	case config.ProviderStdout:
		slog.Info("using stdout provider")
		return stdout.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// setupStats returns the Redis recorder when configured and reachable,
// otherwise in-memory counters.
func setupStats(ctx context.Context, cfg *config.Config) (stats.Recorder, func()) {
	if !cfg.StatsEnabled() {
		return stats.NewMemory(), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Stats.RedisAddr,
		Password: cfg.Stats.RedisPassword,
		DB:       cfg.Stats.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Warn("stats redis unreachable, counting in memory", "addr", cfg.Stats.RedisAddr, "error", err)
		_ = rdb.Close()
		return stats.NewMemory(), func() {}
	}

	slog.Info("recording stats in redis", "addr", cfg.Stats.RedisAddr, "prefix", cfg.Stats.Prefix)
	return stats.NewRedis(rdb, stats.WithPrefix(cfg.Stats.Prefix)), func() {
		if err := rdb.Close(); err != nil {
			slog.Warn("failed to close stats redis", "error", err)
		}
	}
}
