package dto

import (
	"time"

	"github.com/samber/lo"

	"audio-transcriber/internal/app/api/provider"
)

// Health status values reported for each provider
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

// ProviderResponse represents a provider in API responses
type ProviderResponse struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Type             string   `json:"type"`
	Available        bool     `json:"available"`
	HealthStatus     string   `json:"health_status"`
	HealthError      string   `json:"health_error,omitempty"`
	SupportedFormats []string `json:"supported_formats"`
	RequiresAPIKey   bool     `json:"requires_api_key"`
	IsDefault        bool     `json:"is_default"`
	DefaultModel     string   `json:"default_model,omitempty"`
	MaxFileSizeMB    int      `json:"max_file_size_mb,omitempty"`
}

// ProviderListResponse is the body of GET /api/v1/providers
type ProviderListResponse struct {
	Providers []ProviderResponse `json:"providers"`
	Default   string             `json:"default"`
	CheckedAt time.Time          `json:"checked_at"`
}

// ToProviderResponse converts provider info to response DTO
func ToProviderResponse(info provider.ProviderInfo, healthErr error, isDefault bool) ProviderResponse {
	formats := lo.Map(info.SupportedFormats, func(f provider.AudioFormat, _ int) string {
		return string(f)
	})

	healthStatus := HealthStatusHealthy
	var healthMessage string
	if healthErr != nil {
		healthStatus = HealthStatusUnhealthy
		healthMessage = healthErr.Error()
	}

	description := info.DisplayName
	if info.Type == provider.ProviderTypeLocal {
		description += " (local)"
	} else if info.Type == provider.ProviderTypeRemote {
		description += " (remote API)"
	}

	return ProviderResponse{
		ID:               info.Name,
		Name:             info.DisplayName,
		Description:      description,
		Type:             string(info.Type),
		Available:        healthErr == nil,
		HealthStatus:     healthStatus,
		HealthError:      healthMessage,
		SupportedFormats: formats,
		RequiresAPIKey:   info.RequiresAPIKey,
		IsDefault:        isDefault,
		DefaultModel:     info.DefaultModel,
		MaxFileSizeMB:    info.MaxFileSizeMB,
	}
}
