// Package gateway runs one upload through a transcription backend: stage the
// audio, pick a provider, call it under a deadline, and always clean up.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"audio-transcriber/internal/app/api/provider"
	"audio-transcriber/internal/app/util/files"
	"audio-transcriber/internal/config"
)

// Request is a single transcription request
type Request struct {
	Audio    io.Reader
	Filename string
	// Provider selects a backend by name; empty means the default
	Provider string
	Language string
}

// Result is a successful transcription
type Result struct {
	Transcript     string
	Provider       string
	Language       string
	ProcessingTime time.Duration
}

// Gateway is safe for concurrent use
type Gateway struct {
	registry provider.ProviderRegistry
	store    *files.TempStore
	metrics  provider.ProviderMetrics
	logger   *zap.Logger
	timeout  time.Duration
	slots    *slotPool
}

// New creates a Gateway
func New(cfg config.GatewayConfig, registry provider.ProviderRegistry, store *files.TempStore, metrics provider.ProviderMetrics, logger *zap.Logger) *Gateway {
	if metrics == nil {
		metrics = provider.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		registry: registry,
		store:    store,
		metrics:  metrics,
		logger:   logger,
		timeout:  cfg.RequestTimeout,
		slots:    newSlotPool(cfg.MaxConcurrent, cfg.MaxWait),
	}
}

// Registry exposes the provider registry for listing endpoints
func (g *Gateway) Registry() provider.ProviderRegistry {
	return g.registry
}

// Transcribe stages req.Audio, runs it through the selected provider and
// removes every temporary file before returning.
func (g *Gateway) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if req.Audio == nil {
		return nil, provider.InvalidInput("", "no audio provided")
	}

	name, p, err := g.resolve(req.Provider)
	if err != nil {
		return nil, err
	}

	if err := g.slots.acquire(ctx); err != nil {
		if errors.Is(err, errNoSlot) {
			g.metrics.RecordFailure(name, provider.KindBusy)
			return nil, provider.NewError(provider.KindBusy, "gateway_busy", name,
				"all transcription slots are busy, retry later", err)
		}
		return nil, provider.ContextError(ctx, name)
	}
	defer g.slots.release()
	defer g.metrics.TrackInFlight()()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	staged, err := g.store.Stage(req.Audio, req.Filename)
	if err != nil {
		te := classifyStageError(err)
		g.metrics.RecordFailure(name, te.Kind)
		return nil, te
	}
	defer func() {
		if err := staged.Cleanup(); err != nil {
			g.logger.Error("Failed to remove staged upload", zap.String("dir", staged.Dir), zap.Error(err))
		}
	}()

	logger := g.logger.With(zap.String("provider", name), zap.Int64("bytes", staged.Size))
	logger.Debug("Transcribing upload")

	start := time.Now()
	resp, err := p.TranscriptWithOptions(ctx, &provider.TranscriptionRequest{
		InputFilePath: staged.Path,
		ScratchDir:    staged.Dir,
		Language:      req.Language,
	})
	elapsed := time.Since(start)

	if err != nil {
		te := provider.AsTranscriptionError(err)
		if te == nil {
			te = provider.NewError(provider.KindBackend, "transcription_failed", name, "transcription failed", err)
		}
		if te.Provider == "" {
			te.Provider = name
		}
		g.metrics.RecordFailure(name, te.Kind)
		logger.Warn("Transcription failed",
			zap.String("kind", string(te.Kind)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, te
	}

	g.metrics.RecordSuccess(name, elapsed)
	logger.Info("Transcription completed",
		zap.Duration("elapsed", elapsed),
		zap.Int("chars", len(resp.Text)),
	)

	return &Result{
		Transcript:     resp.Text,
		Provider:       name,
		Language:       resp.Language,
		ProcessingTime: elapsed,
	}, nil
}

func (g *Gateway) resolve(name string) (string, provider.TranscriptionProvider, error) {
	if name == "" {
		name = g.registry.DefaultProviderName()
	}
	p, err := g.registry.GetProvider(name)
	if err != nil {
		return name, nil, err
	}
	return name, p, nil
}

// classifyStageError separates oversized uploads from local disk trouble
func classifyStageError(err error) *provider.TranscriptionError {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return provider.NewError(provider.KindTooLarge, "upload_too_large", "",
			fmt.Sprintf("upload exceeds %d bytes", maxBytesErr.Limit), err)
	}
	return provider.StorageFailure("failed to stage upload", err)
}
