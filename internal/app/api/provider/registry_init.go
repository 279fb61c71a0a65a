package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"audio-transcriber/internal/config"
)

// Dependencies are handed to every ProviderCreator
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics ProviderMetrics
}

// ProviderCreator builds a provider from the service configuration. It runs
// once at startup, so expensive setup (model loading) belongs here.
type ProviderCreator func(ctx context.Context, deps Dependencies) (TranscriptionProvider, error)

// creators stores provider creation functions keyed by provider name
var (
	creators     = make(map[string]ProviderCreator)
	creatorsLock sync.RWMutex
)

// RegisterProvider registers a provider creator function
func RegisterProvider(providerType string, creator ProviderCreator) {
	creatorsLock.Lock()
	defer creatorsLock.Unlock()
	creators[providerType] = creator
}

// GetProviderCreator returns the creator function for a provider type
func GetProviderCreator(providerType string) (ProviderCreator, error) {
	creatorsLock.RLock()
	defer creatorsLock.RUnlock()

	creator, ok := creators[providerType]
	if !ok {
		return nil, fmt.Errorf("provider type %s not registered", providerType)
	}
	return creator, nil
}

// ListRegisteredProviders returns all registered provider types, sorted
func ListRegisteredProviders() []string {
	creatorsLock.RLock()
	defer creatorsLock.RUnlock()

	providers := make([]string, 0, len(creators))
	for providerType := range creators {
		providers = append(providers, providerType)
	}
	sort.Strings(providers)
	return providers
}

// BuildRegistry creates every enabled provider and registers it, then sets
// the configured default. Any failure aborts startup.
func BuildRegistry(ctx context.Context, deps Dependencies) (*DefaultProviderRegistry, error) {
	registry := NewProviderRegistry()
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, name := range deps.Config.EnabledProviders() {
		creator, err := GetProviderCreator(name)
		if err != nil {
			return nil, err
		}

		p, err := creator(ctx, deps)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %s: %w", name, err)
		}
		if err := registry.RegisterProvider(name, p); err != nil {
			return nil, fmt.Errorf("failed to register provider %s: %w", name, err)
		}
		logger.Info("Registered provider",
			zap.String("provider", name),
			zap.String("type", string(p.GetProviderInfo().Type)),
		)
	}

	if err := registry.SetDefaultProvider(deps.Config.Gateway.DefaultProvider); err != nil {
		return nil, err
	}
	return registry, nil
}
