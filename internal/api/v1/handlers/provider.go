package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"audio-transcriber/internal/api/middleware"
	"audio-transcriber/internal/api/v1/dto"
	"audio-transcriber/internal/app/api/provider"
)

const healthCheckTimeout = 5 * time.Second

// ProviderHandler handles provider-related API endpoints
type ProviderHandler struct {
	registry provider.ProviderRegistry
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(registry provider.ProviderRegistry) *ProviderHandler {
	return &ProviderHandler{
		registry: registry,
	}
}

// List handles GET /api/v1/providers
//
// @Summary List all available providers
// @Description Retrieves every registered transcription backend with its capabilities and current health
// @Tags providers
// @Produce json
// @Success 200 {object} dto.ProviderListResponse "List of providers"
// @Failure 500 {object} errors.APIError "Internal server error"
// @Router /api/v1/providers [get]
func (h *ProviderHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	health := h.registry.HealthCheckAll(ctx)
	defaultName := h.registry.DefaultProviderName()

	var lookupErr error
	providers := lo.FilterMap(h.registry.ListProviders(), func(name string, _ int) (dto.ProviderResponse, bool) {
		p, err := h.registry.GetProvider(name)
		if err != nil {
			lookupErr = err
			return dto.ProviderResponse{}, false
		}
		resp := dto.ToProviderResponse(p.GetProviderInfo(), health[name], name == defaultName)
		resp.ID = name
		return resp, true
	})
	if lookupErr != nil {
		middleware.HandleError(c, lookupErr)
		return
	}

	c.JSON(http.StatusOK, dto.ProviderListResponse{
		Providers: providers,
		Default:   defaultName,
		CheckedAt: time.Now().UTC(),
	})
}
