package assemblyai

import (
	"context"

	"audio-transcriber/internal/app/api/provider"
)

func init() {
	provider.RegisterProvider(providerName, createAssemblyAIProvider)
}

func createAssemblyAIProvider(_ context.Context, deps provider.Dependencies) (provider.TranscriptionProvider, error) {
	cfg := deps.Config.Providers.AssemblyAI
	client := NewClient(cfg, nil, deps.Logger)
	return NewAssemblyAIProvider(cfg, client, deps.Logger, deps.Metrics), nil
}
