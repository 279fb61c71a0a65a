package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audio-transcriber/internal/config"
)

// MockTranscriptionProvider implements TranscriptionProvider interface for testing
type MockTranscriptionProvider struct {
	name            string
	transcriptFunc  func(*TranscriptionRequest) (string, error)
	validateFunc    func() error
	healthCheckFunc func(context.Context) error
}

func (m *MockTranscriptionProvider) TranscriptWithOptions(ctx context.Context, request *TranscriptionRequest) (*TranscriptionResponse, error) {
	text := "mock transcription result"
	if m.transcriptFunc != nil {
		var err error
		if text, err = m.transcriptFunc(request); err != nil {
			return nil, err
		}
	}
	return &TranscriptionResponse{
		Text:           text,
		ProcessingTime: 100 * time.Millisecond,
		ModelUsed:      "mock-model",
	}, nil
}

func (m *MockTranscriptionProvider) GetProviderInfo() ProviderInfo {
	return ProviderInfo{
		Name:             m.name,
		DisplayName:      "Mock Provider",
		Type:             ProviderTypeLocal,
		SupportedFormats: []AudioFormat{FormatWAV, FormatMP3},
	}
}

func (m *MockTranscriptionProvider) ValidateConfiguration() error {
	if m.validateFunc != nil {
		return m.validateFunc()
	}
	return nil
}

func (m *MockTranscriptionProvider) HealthCheck(ctx context.Context) error {
	if m.healthCheckFunc != nil {
		return m.healthCheckFunc(ctx)
	}
	return nil
}

func TestProviderRegistry_RegisterProvider(t *testing.T) {
	registry := NewProviderRegistry()

	provider := &MockTranscriptionProvider{name: "test-provider"}
	if err := registry.RegisterProvider("test-provider", provider); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := registry.RegisterProvider("test-provider", provider); err == nil {
		t.Error("Expected error for duplicate registration")
	}
	if err := registry.RegisterProvider("", provider); err == nil {
		t.Error("Expected error for empty provider name")
	}
	if err := registry.RegisterProvider("nil-provider", nil); err == nil {
		t.Error("Expected error for nil provider")
	}

	invalid := &MockTranscriptionProvider{
		name:         "invalid",
		validateFunc: func() error { return errors.New("missing api key") },
	}
	err := registry.RegisterProvider("invalid", invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing api key")
}

func TestProviderRegistry_GetProvider(t *testing.T) {
	registry := NewProviderRegistry()
	provider := &MockTranscriptionProvider{name: "test-provider"}
	require.NoError(t, registry.RegisterProvider("test-provider", provider))

	retrieved, err := registry.GetProvider("test-provider")
	require.NoError(t, err)
	assert.Same(t, provider, retrieved)

	_, err = registry.GetProvider("non-existent")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestProviderRegistry_ListProviders(t *testing.T) {
	registry := NewProviderRegistry()
	assert.Empty(t, registry.ListProviders())

	registry.RegisterProvider("provider2", &MockTranscriptionProvider{name: "provider2"})
	registry.RegisterProvider("provider1", &MockTranscriptionProvider{name: "provider1"})

	assert.Equal(t, []string{"provider1", "provider2"}, registry.ListProviders())
}

func TestProviderRegistry_DefaultProvider(t *testing.T) {
	registry := NewProviderRegistry()

	_, err := registry.GetDefaultProvider()
	assert.Error(t, err, "no default provider is set yet")

	provider := &MockTranscriptionProvider{name: "test-provider"}
	require.NoError(t, registry.RegisterProvider("test-provider", provider))

	defaultProvider, err := registry.GetDefaultProvider()
	require.NoError(t, err)
	assert.Same(t, provider, defaultProvider)
	assert.Equal(t, "test-provider", registry.DefaultProviderName())

	provider2 := &MockTranscriptionProvider{name: "provider2"}
	require.NoError(t, registry.RegisterProvider("provider2", provider2))
	require.NoError(t, registry.SetDefaultProvider("provider2"))

	defaultProvider, err = registry.GetDefaultProvider()
	require.NoError(t, err)
	assert.Same(t, provider2, defaultProvider)

	assert.Error(t, registry.SetDefaultProvider("non-existent"))
}

func TestProviderRegistry_HealthCheckAll(t *testing.T) {
	registry := NewProviderRegistry()

	registry.RegisterProvider("healthy", &MockTranscriptionProvider{name: "healthy"})
	registry.RegisterProvider("unhealthy", &MockTranscriptionProvider{
		name: "unhealthy",
		healthCheckFunc: func(ctx context.Context) error {
			return errors.New("provider is unhealthy")
		},
	})
	registry.RegisterProvider("timeout", &MockTranscriptionProvider{
		name: "timeout",
		healthCheckFunc: func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
				return nil
			}
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	results := registry.HealthCheckAll(ctx)
	require.Len(t, results, 3)
	assert.NoError(t, results["healthy"])
	assert.EqualError(t, results["unhealthy"], "provider is unhealthy")
	assert.ErrorIs(t, results["timeout"], context.DeadlineExceeded)
}

func TestBuildRegistry(t *testing.T) {
	RegisterProvider("test-registry-a", func(ctx context.Context, deps Dependencies) (TranscriptionProvider, error) {
		return &MockTranscriptionProvider{name: "a"}, nil
	})

	cfg := config.Default()
	cfg.Providers.AssemblyAI.APIKey = "key"

	// assemblyai is enabled by default; swap in a test creator for it
	original, origErr := GetProviderCreator(config.ProviderAssemblyAI)
	RegisterProvider(config.ProviderAssemblyAI, func(ctx context.Context, deps Dependencies) (TranscriptionProvider, error) {
		assert.Same(t, cfg, deps.Config)
		return &MockTranscriptionProvider{name: config.ProviderAssemblyAI}, nil
	})
	t.Cleanup(func() {
		creatorsLock.Lock()
		defer creatorsLock.Unlock()
		delete(creators, "test-registry-a")
		if origErr == nil {
			creators[config.ProviderAssemblyAI] = original
		} else {
			delete(creators, config.ProviderAssemblyAI)
		}
	})

	registry, err := BuildRegistry(context.Background(), Dependencies{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, []string{config.ProviderAssemblyAI}, registry.ListProviders())
	assert.Equal(t, config.ProviderAssemblyAI, registry.DefaultProviderName())
	assert.Contains(t, ListRegisteredProviders(), "test-registry-a")
}

func TestBuildRegistryCreatorFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.AssemblyAI.Enabled = false
	cfg.Providers.OpenAI.Enabled = true
	cfg.Gateway.DefaultProvider = config.ProviderOpenAI

	original, origErr := GetProviderCreator(config.ProviderOpenAI)
	RegisterProvider(config.ProviderOpenAI, func(ctx context.Context, deps Dependencies) (TranscriptionProvider, error) {
		return nil, errors.New("boom")
	})
	t.Cleanup(func() {
		creatorsLock.Lock()
		defer creatorsLock.Unlock()
		if origErr == nil {
			creators[config.ProviderOpenAI] = original
		} else {
			delete(creators, config.ProviderOpenAI)
		}
	})

	_, err := BuildRegistry(context.Background(), Dependencies{Config: cfg})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create provider openai")
}
