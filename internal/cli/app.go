package cli

import (
	"context"
	"errors"
	"fmt"

	"familysavings/internal/amqp"
	"familysavings/internal/backend"
	"familysavings/internal/cache"
	"familysavings/internal/config"
	applog "familysavings/internal/log"
	"familysavings/internal/repository"
	"familysavings/internal/retry"
	"familysavings/internal/storage"
	"familysavings/internal/tracker"
)

// App is everything a CLI command needs, built once from the config.
type App struct {
	Config  *config.Config
	Logger  *applog.Logger
	Service *tracker.Service
	Caches  *cache.Manager
	Events  *amqp.Client

	closers []func() error
}

// Bootstrap builds the backend, repository, snapshot cache and tracker
// service. The snapshot store and the event publisher are optional: when
// they cannot be opened a warning is logged and the app runs without them.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	if res.Cleanup != nil {
		app.closers = append(app.closers, res.Cleanup)
	}

	repo := repository.New(res.Backend, retry.Policy{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   cfg.RetryDelay,
	}, logger)

	lru := cache.NewLRUCache[cache.PlanSnapshot](cfg.CacheSize, cfg.CacheTTL)
	app.Caches = cache.NewManager(logger)
	app.Caches.Register(lru)
	snapshots := cache.NewSnapshots(lru, cfg.MaxConcurrent)

	opts := []tracker.Option{
		tracker.WithLogger(logger),
		tracker.WithMaxParallel(cfg.MaxConcurrent),
	}

	if cfg.SnapshotDBPath != "" {
		store, err := storage.NewSnapshotStore(cfg.SnapshotDBPath)
		if err != nil {
			logger.Warn("Snapshot store unavailable, running without offline data",
				applog.FieldError, err.Error(), "path", cfg.SnapshotDBPath)
		} else {
			opts = append(opts, tracker.WithSnapshotStore(store))
			app.closers = append(app.closers, store.Close)
		}
	}

	if cfg.AMQPURL != "" {
		events, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Event broker unavailable, events will not be published",
				applog.FieldError, err.Error())
		} else {
			app.Events = events
			opts = append(opts, tracker.WithPublisher(events))
			app.closers = append(app.closers, events.Close)
		}
	}

	app.Service = tracker.NewService(repo, snapshots, opts...)
	return app, nil
}

// Close stops the cache cleanup and releases every opened resource.
func (a *App) Close() error {
	if a.Caches != nil {
		a.Caches.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
