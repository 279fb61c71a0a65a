package whisper_cpp

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"audio-transcriber/internal/app/api/provider"
)

func init() {
	provider.RegisterProvider(providerName, createWhisperCppProvider)
}

// createWhisperCppProvider loads the model once; every request shares it
func createWhisperCppProvider(_ context.Context, deps provider.Dependencies) (provider.TranscriptionProvider, error) {
	cfg := deps.Config.Providers.WhisperCpp

	model, err := LoadModel(ModelConfig{
		BinaryPath:    cfg.BinaryPath,
		ModelPath:     cfg.ModelPath,
		ModelSize:     cfg.ModelSize,
		Device:        cfg.Device,
		ComputeType:   cfg.ComputeType,
		Threads:       cfg.Threads,
		MaxConcurrent: cfg.MaxConcurrent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper.cpp model: %w", err)
	}

	if deps.Logger != nil {
		deps.Logger.Info("Loaded whisper.cpp model",
			zap.String("model", cfg.ModelPath),
			zap.String("size", cfg.ModelSize),
			zap.String("device", cfg.Device),
			zap.Int("max_concurrent", model.Config().MaxConcurrent),
		)
	}
	return NewLocalProvider(model, cfg, deps.Logger), nil
}
