package app

import (
	"go.uber.org/zap"

	"audio-transcriber/internal/app/logging"
	"audio-transcriber/internal/config"
)

// Bootstrap loads .env, the configuration file and builds the logger.
// verbose forces debug logging.
func Bootstrap(configPath string, verbose bool) (*config.Config, *zap.Logger, error) {
	envFile, err := config.LoadEnv()
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}

	if envFile != "" {
		logger.Debug("Loaded environment file", zap.String("path", envFile))
	}
	logger.Debug("Configuration loaded",
		zap.String("config", configPath),
		zap.Strings("providers", cfg.EnabledProviders()),
		zap.String("default_provider", cfg.Gateway.DefaultProvider),
	)
	return cfg, logger, nil
}
