package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipeshare/internal/db"
)

type HealthHandler struct {
	logger *zap.Logger
	pinger db.Pinger
}

func NewHealthHandler(logger *zap.Logger, pinger db.Pinger) *HealthHandler {
	return &HealthHandler{logger: logger, pinger: pinger}
}

// Healthz maneja GET /healthz. Sin base configurada responde ok.
func (h *HealthHandler) Healthz(c *gin.Context) {
	if h.pinger != nil {
		if err := db.Ping(c.Request.Context(), h.pinger); err != nil {
			h.logger.Error("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
