package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// DefaultProviderRegistry implements ProviderRegistry interface
type DefaultProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]TranscriptionProvider
	default_  string
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *DefaultProviderRegistry {
	return &DefaultProviderRegistry{
		providers: make(map[string]TranscriptionProvider),
	}
}

// RegisterProvider validates and registers a transcription provider. The
// first registered provider becomes the default.
func (r *DefaultProviderRegistry) RegisterProvider(name string, provider TranscriptionProvider) error {
	if name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider '%s' already registered", name)
	}

	if err := provider.ValidateConfiguration(); err != nil {
		return fmt.Errorf("provider validation failed: %w", err)
	}

	r.providers[name] = provider
	if r.default_ == "" {
		r.default_ = name
	}
	return nil
}

// GetProvider retrieves a provider by name
func (r *DefaultProviderRegistry) GetProvider(name string) (TranscriptionProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, NewError(KindNotFound, "provider_not_found", name,
			fmt.Sprintf("provider '%s' not found", name), nil)
	}
	return provider, nil
}

// ListProviders returns registered provider names in sorted order
func (r *DefaultProviderRegistry) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetDefaultProvider returns the default provider
func (r *DefaultProviderRegistry) GetDefaultProvider() (TranscriptionProvider, error) {
	r.mu.RLock()
	name := r.default_
	r.mu.RUnlock()

	if name == "" {
		return nil, NewError(KindNotFound, "provider_not_found", "", "no default provider set", nil)
	}
	return r.GetProvider(name)
}

// DefaultProviderName returns the default provider's name
func (r *DefaultProviderRegistry) DefaultProviderName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.default_
}

// SetDefaultProvider sets the default provider
func (r *DefaultProviderRegistry) SetDefaultProvider(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; !exists {
		return fmt.Errorf("provider '%s' not found", name)
	}
	r.default_ = name
	return nil
}

// HealthCheckAll performs health checks on all registered providers concurrently
func (r *DefaultProviderRegistry) HealthCheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	providers := make(map[string]TranscriptionProvider, len(r.providers))
	for name, provider := range r.providers {
		providers[name] = provider
	}
	r.mu.RUnlock()

	results := make(map[string]error, len(providers))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, provider := range providers {
		wg.Add(1)
		go func(name string, provider TranscriptionProvider) {
			defer wg.Done()

			err := provider.HealthCheck(ctx)

			mu.Lock()
			results[name] = err
			mu.Unlock()
		}(name, provider)
	}

	wg.Wait()
	return results
}
