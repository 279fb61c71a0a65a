package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"audio-transcriber/internal/app/api/provider"
	"audio-transcriber/internal/config"
)

const providerName = config.ProviderGemini

// maxInlineMB is the request size limit for inline audio parts
const maxInlineMB = 20

var mimeTypes = map[string]string{
	".mp3":  "audio/mp3",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/ogg",
	".m4a":  "audio/aac",
	".aac":  "audio/aac",
	".webm": "audio/webm",
}

// GeminiProvider asks a Gemini model to transcribe inline audio
type GeminiProvider struct {
	client *genai.Client
	config config.GeminiConfig
	logger *zap.Logger
}

// NewClient creates a genai client for the Gemini API backend. baseURL is
// only set in tests.
func NewClient(ctx context.Context, cfg config.GeminiConfig, baseURL string) (*genai.Client, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	return genai.NewClient(ctx, clientConfig)
}

// NewGeminiProvider creates the provider
func NewGeminiProvider(client *genai.Client, cfg config.GeminiConfig, logger *zap.Logger) *GeminiProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiProvider{
		client: client,
		config: cfg,
		logger: logger.With(zap.String("provider", providerName)),
	}
}

// TranscriptWithOptions implements provider.TranscriptionProvider
func (g *GeminiProvider) TranscriptWithOptions(ctx context.Context, request *provider.TranscriptionRequest) (*provider.TranscriptionResponse, error) {
	startTime := time.Now()

	if request.InputFilePath == "" {
		return nil, provider.InvalidInput(providerName, "input file path is required")
	}

	info, err := os.Stat(request.InputFilePath)
	if err != nil {
		return nil, provider.StorageFailure("failed to stat staged upload", err)
	}
	if info.Size() > maxInlineMB*1024*1024 {
		return nil, provider.NewError(provider.KindTooLarge, "upload_too_large", providerName,
			fmt.Sprintf("audio file exceeds the %dMB Gemini inline limit", maxInlineMB), nil)
	}

	data, err := os.ReadFile(request.InputFilePath)
	if err != nil {
		return nil, provider.StorageFailure("failed to read staged upload", err)
	}

	prompt := g.config.Prompt
	if request.Language != "" {
		prompt = fmt.Sprintf("%s The audio is in language %q.", prompt, request.Language)
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(data, mimeTypeFor(request.InputFilePath)),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := g.client.Models.GenerateContent(ctx, g.config.Model, contents, nil)
	if err != nil {
		return nil, g.handleAPIError(ctx, err)
	}

	return &provider.TranscriptionResponse{
		Text:           strings.TrimSpace(result.Text()),
		Language:       request.Language,
		ProcessingTime: time.Since(startTime),
		ModelUsed:      g.config.Model,
	}, nil
}

func mimeTypeFor(path string) string {
	if mime, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "audio/mp3"
}

func (g *GeminiProvider) handleAPIError(ctx context.Context, err error) error {
	if ctxErr := provider.ContextError(ctx, providerName); ctxErr != nil {
		return ctxErr
	}

	code := 0
	message := err.Error()
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code, message = apiErr.Code, apiErr.Message
	case errors.As(err, &apiErrPtr):
		code, message = apiErrPtr.Code, apiErrPtr.Message
	}

	switch {
	case code == 0:
		return provider.Unavailable(providerName, "Gemini API request failed", err)
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return provider.Unavailable(providerName, fmt.Sprintf("Gemini API returned HTTP %d", code), err)
	case code == http.StatusBadRequest:
		return provider.NewError(provider.KindInvalidInput, "invalid_audio", providerName, message, err)
	default:
		return provider.NewError(provider.KindBackend, "transcription_failed", providerName,
			fmt.Sprintf("Gemini API error: %s", message), err)
	}
}

// GetProviderInfo implements provider.TranscriptionProvider
func (g *GeminiProvider) GetProviderInfo() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:        providerName,
		DisplayName: "Google Gemini",
		Type:        provider.ProviderTypeRemote,
		SupportedFormats: []provider.AudioFormat{
			provider.FormatMP3, provider.FormatWAV, provider.FormatM4A,
			provider.FormatFLAC, provider.FormatOGG, provider.FormatWEBM,
		},
		MaxFileSizeMB:    maxInlineMB,
		RequiresInternet: true,
		RequiresAPIKey:   true,
		DefaultModel:     g.config.Model,
	}
}

// ValidateConfiguration implements provider.TranscriptionProvider
func (g *GeminiProvider) ValidateConfiguration() error {
	if g.config.APIKey == "" {
		return fmt.Errorf("gemini api key is required")
	}
	if g.config.Model == "" || g.config.Prompt == "" {
		return fmt.Errorf("gemini model and prompt are required")
	}
	return nil
}

// HealthCheck fetches the configured model's metadata
func (g *GeminiProvider) HealthCheck(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.config.Model, nil); err != nil {
		return fmt.Errorf("Gemini API health check failed: %w", err)
	}
	return nil
}
