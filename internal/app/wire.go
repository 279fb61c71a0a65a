//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"audio-transcriber/internal/api/server"
	"audio-transcriber/internal/app/gateway"
	"audio-transcriber/internal/config"
)

var gatewaySet = wire.NewSet(
	provideGatewayConfig,
	providePrometheusRegistry,
	wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
	wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
	provideMetrics,
	provideTempStore,
	provideProviderRegistry,
	gateway.New,
)

// InitializeGateway builds a gateway for in-process use by the CLI
func InitializeGateway(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*gateway.Gateway, error) {
	wire.Build(gatewaySet)
	return &gateway.Gateway{}, nil
}

// InitializeServer builds the HTTP server with every enabled provider
func InitializeServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*server.Server, error) {
	wire.Build(gatewaySet, server.NewServer)
	return &server.Server{}, nil
}
