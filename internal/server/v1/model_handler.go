package v1

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nulzo/ai-bridge/internal/gateway"
	"github.com/nulzo/ai-bridge/pkg/api"
)

type ModelHandler struct {
	service *gateway.Service
}

func NewModelHandler(service *gateway.Service) *ModelHandler {
	return &ModelHandler{service: service}
}

// ListModels handles GET /api/models. The catalog is filtered down to
// providers that are currently reachable, and optionally to one provider
// via the ?provider= query parameter.
func (h *ModelHandler) ListModels(c *gin.Context) {
	var filter api.Provider
	if raw := c.Query("provider"); raw != "" {
		p, ok := api.ParseProvider(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, api.NewError(http.StatusBadRequest,
				api.CodeInvalidProvider, fmt.Sprintf("Invalid provider: %s", raw)).Envelope())
			return
		}
		filter = p
	}

	available := h.service.AvailableProviders(c.Request.Context())

	models := make([]api.Model, 0)
	for _, m := range h.service.Registry().ListAll() {
		if filter != "" && m.Provider != filter {
			continue
		}
		if !available[m.Provider] {
			continue
		}
		models = append(models, m)
	}

	c.JSON(http.StatusOK, gin.H{
		"models":    models,
		"providers": available,
	})
}

type providerInfo struct {
	Available bool        `json:"available"`
	Models    []api.Model `json:"models"`
}

// ListProviders handles GET /api/providers: per-provider availability plus
// each provider's catalog partition (empty while unreachable).
func (h *ModelHandler) ListProviders(c *gin.Context) {
	available := h.service.AvailableProviders(c.Request.Context())

	providers := make(map[api.Provider]providerInfo, len(api.Providers))
	for _, p := range api.Providers {
		info := providerInfo{Available: available[p], Models: []api.Model{}}
		if info.Available {
			info.Models = h.service.Registry().Partition(p)
		}
		providers[p] = info
	}

	c.JSON(http.StatusOK, gin.H{"providers": providers})
}
