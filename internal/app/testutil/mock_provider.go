package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"audio-transcriber/internal/app/api/provider"
)

// MockProvider is a testify mock implementing provider.TranscriptionProvider
type MockProvider struct {
	mock.Mock

	Name string

	mu        sync.Mutex
	seenPaths []string
}

// NewMockProvider creates a MockProvider whose configuration is valid. Other
// expectations are up to the caller.
func NewMockProvider(name string) *MockProvider {
	m := &MockProvider{Name: name}
	m.On("ValidateConfiguration").Return(nil).Maybe()
	return m
}

// NewStaticProvider answers every request with text, or with err when set
func NewStaticProvider(name, text string, err error) *MockProvider {
	m := NewMockProvider(name)
	if err != nil {
		m.On("TranscriptWithOptions", mock.Anything, mock.Anything).Return(nil, err)
	} else {
		m.On("TranscriptWithOptions", mock.Anything, mock.Anything).
			Return(&provider.TranscriptionResponse{Text: text}, nil)
	}
	m.On("HealthCheck", mock.Anything).Return(nil).Maybe()
	return m
}

// TranscriptWithOptions implements provider.TranscriptionProvider
func (m *MockProvider) TranscriptWithOptions(ctx context.Context, request *provider.TranscriptionRequest) (*provider.TranscriptionResponse, error) {
	m.mu.Lock()
	m.seenPaths = append(m.seenPaths, request.InputFilePath)
	m.mu.Unlock()

	args := m.Called(ctx, request)
	var resp *provider.TranscriptionResponse
	if r := args.Get(0); r != nil {
		resp = r.(*provider.TranscriptionResponse)
	}
	return resp, args.Error(1)
}

// GetProviderInfo implements provider.TranscriptionProvider
func (m *MockProvider) GetProviderInfo() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:             m.Name,
		DisplayName:      "Mock " + m.Name,
		Type:             provider.ProviderTypeLocal,
		SupportedFormats: []provider.AudioFormat{provider.FormatMP3, provider.FormatWAV},
	}
}

// ValidateConfiguration implements provider.TranscriptionProvider
func (m *MockProvider) ValidateConfiguration() error {
	return m.Called().Error(0)
}

// HealthCheck implements provider.TranscriptionProvider
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// SeenPaths returns the input paths of every transcription call so far
func (m *MockProvider) SeenPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.seenPaths...)
}
