package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"sofdesk/internal/config"
	"sofdesk/internal/service"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	cfg      *config.Config
	sessions service.SessionService
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(cfg *config.Config, sessions service.SessionService) *HealthHandler {
	return &HealthHandler{cfg: cfg, sessions: sessions}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz. All state is in memory, so the service is
// ready whenever its configuration is usable.
func (h *HealthHandler) Readiness(c *gin.Context) {
	if err := h.cfg.Validate(); err != nil {
		log.Printf("healthHandler.Readiness: configuration invalid: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "configuration invalid"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.sessions.Count()})
}
