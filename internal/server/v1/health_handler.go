package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nulzo/ai-bridge/internal/gateway"
)

type HealthHandler struct {
	service *gateway.Service
}

func NewHealthHandler(service *gateway.Service) *HealthHandler {
	return &HealthHandler{service: service}
}

// Health handles GET /api/health. The service itself is healthy as long as
// it can answer; upstream reachability is reported per provider.
func (h *HealthHandler) Health(c *gin.Context) {
	providers := h.service.AvailableProviders(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"providers": providers,
	})
}
