// cmd/menu-service/serve.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"canteen-menu/internal/api"
	"canteen-menu/internal/common/auth"
	"canteen-menu/internal/common/calendar"
	"canteen-menu/internal/common/observability"
	"canteen-menu/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the menu API and run the weekday scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	log.Info("Starting menu service...", map[string]interface{}{"source": cfg.Fetcher.Source, "driver": cfg.Database.Driver})

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("metrics exporter unavailable", map[string]interface{}{"error": err})
	}
	defer obs.Shutdown()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	runner, err := a.runner(ctx, obs)
	if err != nil {
		return err
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		loc, err := calendar.LoadLocation(cfg.Scheduler.Timezone)
		if err != nil {
			return err
		}
		sched, err = scheduler.New(runner, scheduler.Config{
			Schedule:     cfg.Scheduler.Schedule,
			Location:     loc,
			RunOnStartup: cfg.Scheduler.RunOnStartup,
		}, log)
		if err != nil {
			return err
		}
		sched.Start(ctx)
	}

	var limiter *api.RateLimiter
	if cfg.Server.RateLimitRPS > 0 {
		limiter = api.NewRateLimiter(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst)
	}
	if cfg.Server.FetchSecret == "" {
		log.Warn("server.fetch_secret is empty, the fetch endpoint rejects every request", nil)
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Runner:       runner,
		Store:        a.store,
		Secret:       auth.NewSharedSecret(cfg.Server.FetchSecret),
		SecretHeader: cfg.Server.FetchSecretHeader,
		FetchLimiter: limiter,
		Location:     a.location,
		Logger:       log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// --- Graceful Shutdown ---
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, stopping...", nil)
	case err := <-serveErr:
		if err != nil {
			log.Error("HTTP server failed", map[string]interface{}{"error": err})
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", map[string]interface{}{"error": err})
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Warn("scheduler did not stop in time", map[string]interface{}{"error": err})
		}
	}

	log.Info("Menu service stopped", nil)
	return nil
}
