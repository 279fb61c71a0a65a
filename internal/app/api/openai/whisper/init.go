package whisper

import (
	"context"

	openaiapi "audio-transcriber/internal/app/api/openai"
	"audio-transcriber/internal/app/api/provider"
)

func init() {
	provider.RegisterProvider(providerName, createOpenAIProvider)
}

func createOpenAIProvider(_ context.Context, deps provider.Dependencies) (provider.TranscriptionProvider, error) {
	cfg := deps.Config.Providers.OpenAI
	return NewRemoteTranscriber(openaiapi.NewClient(cfg), cfg, deps.Logger), nil
}
