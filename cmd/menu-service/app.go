// cmd/menu-service/app.go
package main

import (
	"context"
	"fmt"
	"time"

	commonaws "canteen-menu/internal/common/aws"
	"canteen-menu/internal/common/calendar"
	"canteen-menu/internal/common/config"
	"canteen-menu/internal/common/database"
	"canteen-menu/internal/common/logger"
	"canteen-menu/internal/common/observability"
	"canteen-menu/internal/fetcher"
	"canteen-menu/internal/notify"
	"canteen-menu/internal/pipeline"
	"canteen-menu/internal/storage"
	"canteen-menu/pkg/registry"
)

const runLockKey = "menu:pipeline:lock"

// app holds the components shared by the commands.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	location *time.Location
	pg       *database.PostgresClient
	redis    *database.RedisClient
	store    storage.Store
}

// newApp connects the store and, when enabled, Redis.
func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	loc, err := calendar.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, location: loc}

	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store, menus are lost on restart", nil)
		a.store = storage.NewMemoryStore(loc)
	default:
		if err := a.connectPostgres(ctx); err != nil {
			return nil, err
		}
		a.store = storage.NewPostgresStore(a.pg.DB, loc, log)
	}

	if cfg.Database.Redis.Enabled {
		if err := a.connectRedis(ctx); err != nil {
			a.close()
			return nil, err
		}
		a.store = storage.NewCachedStore(a.store, a.redis.Client, config.GetDuration(cfg.Cache.TTL), log)
	}
	return a, nil
}

func (a *app) connectPostgres(ctx context.Context) error {
	err := retryWithBackoff(ctx, func() error {
		var err error
		a.pg, err = database.NewPostgres(a.cfg.Database)
		if err != nil {
			return err
		}
		if err := a.pg.Ping(ctx); err != nil {
			a.pg.Close()
			return err
		}
		return nil
	}, 10, 2*time.Second, a.log, "PostgreSQL connection")
	if err != nil {
		return err
	}
	a.log.Info("PostgreSQL connected successfully", nil)
	return nil
}

func (a *app) connectRedis(ctx context.Context) error {
	a.redis = database.NewRedis(a.cfg.Database.Redis)
	err := retryWithBackoff(ctx, func() error {
		return a.redis.Ping(ctx)
	}, 5, time.Second, a.log, "Redis connection")
	if err != nil {
		return err
	}
	a.log.Info("Redis connected successfully", map[string]interface{}{"address": a.cfg.Database.Redis.Address})
	return nil
}

// runner assembles the acquisition pipeline for the configured source.
func (a *app) runner(ctx context.Context, obs *observability.Observability) (*pipeline.Runner, error) {
	source, err := registry.Default().Build(a.cfg.Fetcher.Source, registry.Deps{
		Config:   a.cfg,
		Location: a.location,
		Logger:   a.log,
	})
	if err != nil {
		return nil, err
	}

	f := fetcher.NewRetryingFetcher(source, fetcher.Options{
		MaxRetries: a.cfg.Fetcher.MaxRetries,
		RetryDelay: config.GetDuration(a.cfg.Fetcher.RetryDelay),
	}, a.log)

	var guard pipeline.Guard = pipeline.NewLocalGuard()
	if a.redis != nil {
		guard = pipeline.NewRedisGuard(a.redis.Client, runLockKey, config.GetDuration(a.cfg.Scheduler.LockTTL))
	}

	notifier, err := a.notifier(ctx)
	if err != nil {
		return nil, err
	}

	return pipeline.NewRunner(f, a.store, a.log,
		pipeline.WithGuard(guard),
		pipeline.WithNotifier(notifier),
		pipeline.WithObservability(obs),
	), nil
}

// notifier fans failure reports out to the enabled AWS channels.
func (a *app) notifier(ctx context.Context) (notify.Notifier, error) {
	n := a.cfg.Notifications
	multi := notify.NewMulti(a.log)

	clients, err := commonaws.NewAlertClients(ctx, n.AWS.Region, n.SNS.Enabled, n.SES.Enabled)
	if err != nil {
		return nil, fmt.Errorf("alert clients: %w", err)
	}
	if clients.SNS != nil {
		multi.Add("sns", notify.NewSNSNotifier(clients.SNS, n.SNS.TopicARN))
	}
	if clients.SES != nil {
		multi.Add("ses", notify.NewSESNotifier(clients.SES, n.SES.FromEmail, n.SES.ToEmails))
	}

	if multi.Len() == 0 {
		return notify.Nop{}, nil
	}
	return multi, nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.pg != nil {
		a.pg.Close()
	}
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%s aborted: %w", operationName, ctx.Err())
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
