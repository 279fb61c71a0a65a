// Package converter transcribes batches of local audio files through the
// gateway and writes one text file per input.
package converter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"audio-transcriber/internal/app/api/provider"
	"audio-transcriber/internal/app/gateway"
)

// Transcriber is the subset of the gateway the converter needs
type Transcriber interface {
	Transcribe(ctx context.Context, req gateway.Request) (*gateway.Result, error)
}

// Options for a batch run
type Options struct {
	// OutputDir receives <name>.txt; empty writes next to each input
	OutputDir string
	Provider  string
	Language  string
	Parallel  int
	// Overwrite re-transcribes files whose transcript already exists
	Overwrite bool
	Progress  ProgressConfig
}

// FileResult is the outcome for one input file
type FileResult struct {
	Input      string
	Output     string
	Skipped    bool
	Transcript string
	Err        error
}

// Summary aggregates a batch run
type Summary struct {
	Results   []FileResult
	Succeeded int
	Skipped   int
	Failed    int
}

type Converter struct {
	transcriber Transcriber
	logger      *zap.Logger
}

func NewConverter(transcriber Transcriber, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		transcriber: transcriber,
		logger:      logger,
	}
}

// CollectAudioFiles expands directories into the audio files they contain.
// Plain file arguments are kept as given.
func CollectAudioFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && provider.GetAudioFormatFromFilename(path) != "" {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return lo.Uniq(out), nil
}

// OutputPath returns where the transcript of input is written
func OutputPath(input, outputDir string) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".txt"
	if outputDir == "" {
		return filepath.Join(filepath.Dir(input), name)
	}
	return filepath.Join(outputDir, name)
}

// Convert transcribes every input with at most opts.Parallel requests in
// flight. Per-file failures are collected in the summary; only
// cancellation aborts the batch.
func (c *Converter) Convert(ctx context.Context, inputs []string, opts Options) (*Summary, error) {
	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	results := make([]FileResult, len(inputs))
	progress := NewProgressBar(opts.Progress, len(inputs), "Transcribing")
	defer progress.Wait()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Parallel, 1))

	var mu sync.Mutex
	for i, input := range inputs {
		g.Go(func() error {
			defer progress.Increment()
			res := c.convertOne(gctx, input, opts)

			mu.Lock()
			results[i] = res
			mu.Unlock()

			if res.Err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &Summary{Results: results}
	for _, r := range results {
		switch {
		case r.Skipped:
			summary.Skipped++
		case r.Err != nil:
			summary.Failed++
		default:
			summary.Succeeded++
		}
	}
	return summary, nil
}

func (c *Converter) convertOne(ctx context.Context, input string, opts Options) FileResult {
	res := FileResult{Input: input, Output: OutputPath(input, opts.OutputDir)}
	logger := c.logger.With(zap.String("file", input))

	if !opts.Overwrite {
		if _, err := os.Stat(res.Output); err == nil {
			logger.Debug("Transcript exists, skipping", zap.String("output", res.Output))
			res.Skipped = true
			return res
		}
	}

	f, err := os.Open(input)
	if err != nil {
		res.Err = err
		logger.Error("Failed to open input", zap.Error(err))
		return res
	}
	defer f.Close()

	result, err := c.transcriber.Transcribe(ctx, gateway.Request{
		Audio:    f,
		Filename: filepath.Base(input),
		Provider: opts.Provider,
		Language: opts.Language,
	})
	if err != nil {
		res.Err = err
		if !errors.Is(err, context.Canceled) {
			logger.Error("Transcription failed", zap.Error(err))
		}
		return res
	}

	res.Transcript = result.Transcript
	if err := os.WriteFile(res.Output, []byte(result.Transcript+"\n"), 0o644); err != nil {
		res.Err = fmt.Errorf("failed to write transcript: %w", err)
		logger.Error("Failed to write transcript", zap.Error(err))
		return res
	}

	logger.Info("Transcription completed",
		zap.String("output", res.Output),
		zap.String("provider", result.Provider),
		zap.Duration("elapsed", result.ProcessingTime),
	)
	return res
}
