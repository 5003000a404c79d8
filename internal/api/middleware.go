package api

import (
	"errors"
	"net/http"
	"time"

	"canteen-menu/internal/common/auth"
	"canteen-menu/internal/common/logger"

	"github.com/gin-gonic/gin"
)

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
			"clientIp":   c.ClientIP(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("request failed", fields)
			return
		}
		log.Debug("request served", fields)
	}
}

// requireSecret rejects requests whose header does not carry the shared
// secret. Rejected requests never reach the handler.
func requireSecret(secret *auth.SharedSecret, header string, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := secret.Verify(c.GetHeader(header))
		if err == nil {
			c.Next()
			return
		}
		if errors.Is(err, auth.ErrNotConfigured) {
			log.Error("fetch trigger called but no secret is configured", nil)
		} else {
			log.Warn("unauthorized fetch attempt", map[string]interface{}{"clientIp": c.ClientIP(), "reason": err.Error()})
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
	}
}
