package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"canteen-menu/internal/common/calendar"
	"canteen-menu/internal/common/logger"
	"canteen-menu/internal/pipeline"

	"github.com/gin-gonic/gin"
)

const (
	msgNotFound    = "No menu found for the specified date"
	msgUnavailable = "Database connection error. Please try again later."
)

type handler struct {
	deps   Deps
	logger logger.Logger
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": h.deps.Now().UTC().Format(time.RFC3339)})
}

func (h *handler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.deps.Store.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", map[string]interface{}{"error": err})
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// fetch runs the pipeline synchronously, detached from the request's
// cancellation.
func (h *handler) fetch(c *gin.Context) {
	res, err := h.deps.Runner.Run(context.WithoutCancel(c.Request.Context()), pipeline.TriggerHTTP)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "runId": res.RunID})
	default:
		dates := res.Dates
		if dates == nil {
			dates = []string{}
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Weekly menus fetched and stored successfully",
			"dates":   dates,
			"runId":   res.RunID,
		})
	}
}

// menuForDate serves one day. Without a date it serves the current week.
func (h *handler) menuForDate(c *gin.Context) {
	if c.Query("date") == "" {
		h.menuForWeek(c)
		return
	}
	date, ok := h.dateParam(c)
	if !ok {
		return
	}

	rec, found, err := h.deps.Store.GetMenuForDate(c.Request.Context(), date)
	if err != nil {
		h.logger.Error("failed to read menu", map[string]interface{}{"date": calendar.FormatDate(date), "error": err})
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgUnavailable})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// menuForWeek serves Monday through Sunday of the week containing date.
func (h *handler) menuForWeek(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}
	from, to := calendar.Week(date)

	records, err := h.deps.Store.GetMenusInRange(c.Request.Context(), from, to)
	if err != nil {
		h.logger.Error("failed to read weekly menus", map[string]interface{}{"from": calendar.FormatDate(from), "error": err})
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgUnavailable})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"from":  calendar.FormatDate(from),
		"to":    calendar.FormatDate(to),
		"menus": records,
	})
}

func (h *handler) dateParam(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return calendar.StartOfDay(h.deps.Now().In(h.deps.Location)), true
	}
	date, err := calendar.ParseDate(raw, h.deps.Location)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return time.Time{}, false
	}
	return date, true
}
