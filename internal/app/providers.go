// Package app wires the gateway, its providers and the HTTP server together.
package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"audio-transcriber/internal/app/api/provider"
	"audio-transcriber/internal/app/util/files"
	"audio-transcriber/internal/config"
)

func provideGatewayConfig(cfg *config.Config) config.GatewayConfig {
	return cfg.Gateway
}

// providePrometheusRegistry returns a fresh registry so that tests and the
// batch command never collide on the global one.
func providePrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideMetrics(reg prometheus.Registerer) provider.ProviderMetrics {
	return provider.NewPrometheusMetrics(reg)
}

// provideTempStore creates the upload directory and clears out anything a
// crashed process left behind.
func provideTempStore(cfg *config.Config, logger *zap.Logger) (*files.TempStore, error) {
	store, err := files.NewTempStore(cfg.Gateway.TempDir, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Gateway.OrphanMaxAge > 0 {
		if _, err := store.SweepOrphans(cfg.Gateway.OrphanMaxAge); err != nil {
			logger.Warn("Failed to sweep orphaned uploads", zap.Error(err))
		}
	}
	return store, nil
}

func provideProviderRegistry(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics provider.ProviderMetrics) (provider.ProviderRegistry, error) {
	return provider.BuildRegistry(ctx, provider.Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
	})
}
