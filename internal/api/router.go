// Package api exposes the HTTP surface: health probes, the authenticated
// fetch trigger and the read endpoints over stored menus.
package api

import (
	"context"
	"time"

	"canteen-menu/internal/common/auth"
	"canteen-menu/internal/common/logger"
	"canteen-menu/internal/pipeline"
	"canteen-menu/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultSecretHeader = "X-Menu-Fetch-Password"

// PipelineRunner runs one acquisition.
type PipelineRunner interface {
	Run(ctx context.Context, trigger string) (pipeline.Result, error)
}

type Deps struct {
	Runner       PipelineRunner
	Store        storage.Store
	Secret       *auth.SharedSecret
	SecretHeader string
	// FetchLimiter throttles the fetch trigger per client IP; nil disables throttling.
	FetchLimiter *RateLimiter
	Location     *time.Location
	Logger       logger.Logger
	Now          func() time.Time
}

func NewRouter(d Deps) *gin.Engine {
	if d.SecretHeader == "" {
		d.SecretHeader = DefaultSecretHeader
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	h := &handler{deps: d, logger: d.Logger.WithFields(map[string]interface{}{"component": "api"})}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger))

	r.GET("/health", h.health)
	r.GET("/ready", h.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		fetch := v1.Group("/menu/fetch", d.FetchLimiter.Middleware(), requireSecret(d.Secret, d.SecretHeader, h.logger))
		fetch.GET("", h.fetch)
		fetch.POST("", h.fetch)

		v1.GET("/menu", h.menuForDate)
		v1.GET("/menu/week", h.menuForWeek)
	}
	return r
}
