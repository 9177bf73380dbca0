package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"monitoring-service/internal/config"
	"monitoring-service/internal/logging"
)

func NewRouter(logger *logging.Logger, cfg config.Config, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	authorized := r.Group(cfg.API.BasePath)
	authorized.Use(APIKeyMiddleware(cfg.API.Key, h.db, logger))
	{
		authorized.POST("/alerts", h.CreateAlert)
		authorized.POST("/reminders", h.CreateReminder)
		authorized.GET("/reminders", h.GetReminders)
		authorized.GET("/health-states", h.GetHealthStates)
		authorized.GET("/audit", h.GetAudit)
	}

	r.GET("/ws", h.AlertFeed)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
