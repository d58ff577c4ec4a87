package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/argo-backend/internal/services"
)

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

type ReadinessHandler struct {
	health *services.HealthService
}

func NewReadinessHandler(health *services.HealthService) *ReadinessHandler {
	return &ReadinessHandler{health: health}
}

func (h *ReadinessHandler) Ready(c *gin.Context) {
	report := h.health.Ready(c.Request.Context())
	status := http.StatusOK
	if !report.Ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
