package provider

import (
	"context"
	"time"
)

// TranscriptionProvider is a backend that turns an audio file into text.
// Implementations must be safe for concurrent use.
type TranscriptionProvider interface {
	// TranscriptWithOptions transcribes request.InputFilePath. Failures are
	// returned as *TranscriptionError.
	TranscriptWithOptions(ctx context.Context, request *TranscriptionRequest) (*TranscriptionResponse, error)

	GetProviderInfo() ProviderInfo

	// ValidateConfiguration is checked once at registration
	ValidateConfiguration() error

	// HealthCheck verifies the provider is reachable / loadable
	HealthCheck(ctx context.Context) error
}

// ProviderRegistry manages multiple transcription providers
type ProviderRegistry interface {
	RegisterProvider(name string, provider TranscriptionProvider) error
	GetProvider(name string) (TranscriptionProvider, error)
	ListProviders() []string
	GetDefaultProvider() (TranscriptionProvider, error)
	DefaultProviderName() string
	SetDefaultProvider(name string) error
	HealthCheckAll(ctx context.Context) map[string]error
}

// ProviderMetrics records transcription outcomes
type ProviderMetrics interface {
	RecordSuccess(provider string, latency time.Duration)
	RecordFailure(provider string, kind ErrorKind)
	RecordPollAttempts(provider string, attempts int)
	// TrackInFlight increments the in-flight gauge and returns the matching
	// decrement.
	TrackInFlight() func()
}
