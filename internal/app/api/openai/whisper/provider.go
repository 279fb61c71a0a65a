package whisper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"audio-transcriber/internal/app/api/provider"
	"audio-transcriber/internal/config"
)

const providerName = config.ProviderOpenAI

// maxFileSizeMB is the Whisper API upload limit
const maxFileSizeMB = 25

// RemoteTranscriber transcribes through the OpenAI audio API
type RemoteTranscriber struct {
	client *openai.Client
	config config.OpenAIConfig
	logger *zap.Logger
}

// NewRemoteTranscriber creates a new RemoteTranscriber instance.
func NewRemoteTranscriber(client *openai.Client, cfg config.OpenAIConfig, logger *zap.Logger) *RemoteTranscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteTranscriber{
		client: client,
		config: cfg,
		logger: logger.With(zap.String("provider", providerName)),
	}
}

// TranscriptWithOptions implements provider.TranscriptionProvider
func (rt *RemoteTranscriber) TranscriptWithOptions(ctx context.Context, request *provider.TranscriptionRequest) (*provider.TranscriptionResponse, error) {
	startTime := time.Now()

	if request.InputFilePath == "" {
		return nil, provider.InvalidInput(providerName, "input file path is required")
	}

	language := request.Language
	if language == "" {
		language = rt.config.Language
	}

	resp, err := rt.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    rt.config.Model,
		FilePath: request.InputFilePath,
		Language: language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return nil, rt.handleAPIError(ctx, err)
	}

	return &provider.TranscriptionResponse{
		Text:           resp.Text,
		Language:       language,
		ProcessingTime: time.Since(startTime),
		ModelUsed:      rt.config.Model,
	}, nil
}

// handleAPIError converts go-openai errors to TranscriptionError
func (rt *RemoteTranscriber) handleAPIError(ctx context.Context, err error) error {
	if ctxErr := provider.ContextError(ctx, providerName); ctxErr != nil {
		return ctxErr
	}

	status := 0
	message := err.Error()

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		message = apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == 0:
		return provider.Unavailable(providerName, "OpenAI API request failed", err)
	case status == http.StatusRequestEntityTooLarge:
		return provider.NewError(provider.KindTooLarge, "upload_too_large", providerName,
			fmt.Sprintf("audio file exceeds the %dMB OpenAI limit", maxFileSizeMB), err)
	case status == http.StatusBadRequest:
		return provider.NewError(provider.KindInvalidInput, "invalid_audio", providerName, message, err)
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return provider.Unavailable(providerName, fmt.Sprintf("OpenAI API returned HTTP %d", status), err)
	default:
		return provider.NewError(provider.KindBackend, "transcription_failed", providerName,
			fmt.Sprintf("OpenAI API error: %s", message), err)
	}
}

// GetProviderInfo implements provider.TranscriptionProvider
func (rt *RemoteTranscriber) GetProviderInfo() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:        providerName,
		DisplayName: "OpenAI Whisper API",
		Type:        provider.ProviderTypeRemote,
		SupportedFormats: []provider.AudioFormat{
			provider.FormatMP3, provider.FormatWAV, provider.FormatM4A,
			provider.FormatFLAC, provider.FormatOGG, provider.FormatWEBM,
		},
		MaxFileSizeMB:    maxFileSizeMB,
		RequiresInternet: true,
		RequiresAPIKey:   true,
		DefaultModel:     openai.Whisper1,
	}
}

// ValidateConfiguration implements provider.TranscriptionProvider
func (rt *RemoteTranscriber) ValidateConfiguration() error {
	if rt.config.APIKey == "" {
		return fmt.Errorf("openai api key is required")
	}
	if rt.config.Model == "" {
		return fmt.Errorf("openai model is required")
	}
	return nil
}

// HealthCheck lists models, the cheapest authenticated call
func (rt *RemoteTranscriber) HealthCheck(ctx context.Context) error {
	if _, err := rt.client.ListModels(ctx); err != nil {
		return fmt.Errorf("OpenAI API health check failed: %w", err)
	}
	return nil
}
