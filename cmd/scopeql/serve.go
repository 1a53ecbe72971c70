package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/MrWong99/scopeql/internal/config"
	"github.com/MrWong99/scopeql/internal/health"
	"github.com/MrWong99/scopeql/internal/observe"
)

// defaultMetricsAddr is used when the config does not set metrics_addr.
const defaultMetricsAddr = ":9090"

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the resolver service with metrics and health endpoints",
		Long: `Serve keeps the engine resident and exposes /metrics, /healthz, /readyz
and /statsz over HTTP. The configuration file is watched: log level,
reference expressions and repair tuning are hot-reloaded without restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "scopeql.yaml", "path to the YAML configuration file")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	shutdownOtel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "error", err)
		}
	}()

	s, err := newSetup(ctx, configPath)
	if err != nil {
		return err
	}
	defer s.close()

	watcher, err := config.NewWatcher(configPath, func(old, new *config.Config) {
		applyConfigChange(s, config.Diff(old, new), new)
	})
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer watcher.Stop()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(func() map[string]any {
		stats := s.engine.CacheStats()
		return map[string]any{
			"cache_hits":   stats.Hits,
			"cache_misses": stats.Misses,
			"cache_size":   stats.Size,
		}
	}, health.GatewayChecker(s.gw)).Register(mux)

	addr := s.cfg.Server.MetricsAddr
	if addr == "" {
		addr = defaultMetricsAddr
	}
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("resolver service listening", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

// applyConfigChange applies the hot-reloadable parts of a config change to a
// running setup. Storage and cache sizing changes require a restart and are
// ignored here.
func applyConfigChange(s *setup, diff config.ConfigDiff, cfg *config.Config) {
	if diff.LogLevelChanged {
		slog.SetDefault(newLogger(diff.NewLogLevel))
		slog.Info("log level changed", "level", diff.NewLogLevel)
	}

	if diff.ReferencesChanged {
		for _, rc := range diff.ReferenceChanges {
			switch {
			case rc.Removed:
				s.engine.UnregisterReference(rc.Name)
				slog.Info("reference removed", "name", rc.Name)
			case rc.Added, rc.Changed:
				if err := s.engine.RegisterReferenceExpression(rc.Name, rc.Expression); err != nil {
					slog.Warn("reference rejected on reload", "name", rc.Name, "error", err)
					continue
				}
				slog.Info("reference updated", "name", rc.Name)
			}
		}
	}

	if diff.RepairChanged {
		s.engine.RetuneRepair(repairOptions(cfg)...)
		slog.Info("repair tuning updated",
			"auto_map", cfg.Repair.AutoMap,
			"similarity_threshold", cfg.Repair.SimilarityThreshold)
	}
}
