package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger. Development mode uses the colored console
// encoder, production mode emits JSON.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	var config zap.Config

	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	return config.Build()
}

// MustNewLogger creates a new logger and panics if it fails
func MustNewLogger(level string, development bool) *zap.Logger {
	logger, err := NewLogger(level, development)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	return logger
}
