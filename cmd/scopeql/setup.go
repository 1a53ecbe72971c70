package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/MrWong99/scopeql/internal/config"
	"github.com/MrWong99/scopeql/internal/equipcache"
	"github.com/MrWong99/scopeql/internal/gateway"
	"github.com/MrWong99/scopeql/internal/gateway/postgres"
	"github.com/MrWong99/scopeql/internal/repair"
	"github.com/MrWong99/scopeql/internal/scope"
	"github.com/MrWong99/scopeql/internal/world"
)

// setup is everything a command needs to resolve expressions: the loaded
// config, the storage gateway, and a fully wired engine.
type setup struct {
	cfg    *config.Config
	gw     gateway.Gateway
	engine *scope.Engine

	closers []func()
}

func (s *setup) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newSetup loads the config file, opens the configured storage backend,
// seeds it from the world fixture when one is configured, and builds the
// engine with the config's references registered.
func newSetup(ctx context.Context, configPath string) (*setup, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(cfg.Server.LogLevel))

	s := &setup{cfg: cfg}

	registry := config.NewRegistry()
	registry.Register(config.BackendPostgres, func(ctx context.Context, sc config.StorageConfig) (gateway.Gateway, error) {
		store, err := postgres.NewStore(ctx, sc.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		return store, nil
	})

	gw, err := registry.Create(ctx, cfg.Storage)
	if err != nil {
		s.close()
		return nil, err
	}
	s.gw = gw

	if cfg.World.Path != "" {
		wf, err := world.LoadFile(cfg.World.Path)
		if err != nil {
			s.close()
			return nil, err
		}
		n, err := world.Import(ctx, gw, wf)
		if err != nil {
			s.close()
			return nil, err
		}
		slog.Info("world fixture imported", "path", cfg.World.Path, "components", n)
	}

	var cacheOpts []equipcache.Option
	if cfg.Cache.MaxEntries > 0 {
		cacheOpts = append(cacheOpts, equipcache.WithMaxEntries(cfg.Cache.MaxEntries))
	}
	if cfg.Cache.TTL > 0 {
		cacheOpts = append(cacheOpts, equipcache.WithTTL(cfg.Cache.TTL))
	}

	engineOpts := []scope.Option{scope.WithCacheOptions(cacheOpts...)}
	if cfg.Resolver.MaxDepth > 0 {
		engineOpts = append(engineOpts, scope.WithMaxDepth(cfg.Resolver.MaxDepth))
	}

	engineOpts = append(engineOpts, scope.WithRepairOptions(repairOptions(cfg)...))

	s.engine = scope.New(gw, engineOpts...)

	for name, expr := range cfg.References {
		if err := s.engine.RegisterReferenceExpression(name, expr); err != nil {
			s.close()
			return nil, fmt.Errorf("reference %q: %w", name, err)
		}
	}

	return s, nil
}

// repairOptions derives recovery handler options from config. Shared by
// initial setup and hot reload.
func repairOptions(cfg *config.Config) []repair.Option {
	opts := []repair.Option{repair.WithAutoMap(cfg.Repair.AutoMap)}
	if t := cfg.Repair.SimilarityThreshold; t > 0 {
		opts = append(opts,
			repair.WithMatcher(repair.NewMatcher(repair.WithSimilarityThreshold(t))))
	}
	return opts
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
