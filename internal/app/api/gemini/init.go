package gemini

import (
	"context"
	"fmt"

	"audio-transcriber/internal/app/api/provider"
)

func init() {
	provider.RegisterProvider(providerName, createGeminiProvider)
}

func createGeminiProvider(ctx context.Context, deps provider.Dependencies) (provider.TranscriptionProvider, error) {
	cfg := deps.Config.Providers.Gemini
	client, err := NewClient(ctx, cfg, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return NewGeminiProvider(client, cfg, deps.Logger), nil
}
