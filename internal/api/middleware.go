package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"monitoring-service/internal/logging"
	"monitoring-service/internal/models"
)

// AuditStore records unauthorized access attempts.
type AuditStore interface {
	AppendAudit(ctx context.Context, rec models.AuditRecord) error
}

func RequestLoggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		logger.Infof("Request: %s %s, Status: %d, Latency: %v", method, path, status, latency)
	}
}

// APIKeyMiddleware rejects callers without the configured key and records
// every rejection in the audit log before responding. An empty configured key
// disables the check.
func APIKeyMiddleware(key string, audit AuditStore, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" || c.GetHeader("X-API-Key") == key {
			c.Next()
			return
		}
		if err := audit.AppendAudit(c.Request.Context(), models.AuditRecord{
			Kind:      models.AuditUnauthorized,
			SubjectID: c.ClientIP(),
			Outcome:   "denied",
			Detail:    fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path),
		}); err != nil {
			logger.Errorf("Audit unauthorized attempt failed: %v", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
	}
}
