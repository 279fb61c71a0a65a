package whisper_cpp

import (
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"audio-transcriber/internal/app/api/provider"
	"audio-transcriber/internal/app/audio"
	"audio-transcriber/internal/config"
)

const convertedName = "audio_16khz.wav"

// LocalProvider transcribes with a whisper.cpp model loaded at startup
type LocalProvider struct {
	model  *ModelHandle
	config config.WhisperCppConfig
	logger *zap.Logger
}

// NewLocalProvider wraps a loaded model
func NewLocalProvider(model *ModelHandle, cfg config.WhisperCppConfig, logger *zap.Logger) *LocalProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalProvider{
		model:  model,
		config: cfg,
		logger: logger.With(zap.String("provider", providerName)),
	}
}

// TranscriptWithOptions implements provider.TranscriptionProvider
func (lp *LocalProvider) TranscriptWithOptions(ctx context.Context, request *provider.TranscriptionRequest) (*provider.TranscriptionResponse, error) {
	startTime := time.Now()

	if request.InputFilePath == "" {
		return nil, provider.InvalidInput(providerName, "input file path is required")
	}

	inputPath, err := lp.prepareInput(ctx, request)
	if err != nil {
		return nil, err
	}

	language := request.Language
	if language == "" {
		language = lp.config.Language
	}

	segments, err := lp.model.Transcribe(ctx, inputPath, lp.config.BeamSize, language)
	if err != nil {
		return nil, err
	}

	return &provider.TranscriptionResponse{
		Text:     JoinSegments(segments),
		Language: language,
		Segments: lo.Map(segments, func(s Segment, i int) provider.TranscriptionSegment {
			return provider.TranscriptionSegment{
				ID:    i,
				Text:  s.Text,
				Start: s.Start.Seconds(),
				End:   s.End.Seconds(),
			}
		}),
		ProcessingTime: time.Since(startTime),
		ModelUsed:      lp.config.ModelSize,
		ProviderMetadata: map[string]interface{}{
			"beam_size":    lp.config.BeamSize,
			"device":       lp.config.Device,
			"compute_type": lp.config.ComputeType,
		},
	}, nil
}

// prepareInput converts the upload to 16 kHz PCM WAV inside the request's
// scratch dir unless it already is one.
func (lp *LocalProvider) prepareInput(ctx context.Context, request *provider.TranscriptionRequest) (string, error) {
	if !lp.config.ConvertAudio {
		return request.InputFilePath, nil
	}

	ok, err := audio.Is16kHzWavFile(ctx, lp.config.FFprobePath, request.InputFilePath)
	if err != nil {
		lp.logger.Debug("ffprobe failed, converting anyway", zap.Error(err))
	}
	if ok {
		return request.InputFilePath, nil
	}

	scratch := request.ScratchDir
	if scratch == "" {
		scratch = filepath.Dir(request.InputFilePath)
	}
	converted := filepath.Join(scratch, convertedName)

	if err := audio.ConvertTo16kHzWav(ctx, lp.config.FFmpegPath, request.InputFilePath, converted); err != nil {
		if ctxErr := provider.ContextError(ctx, providerName); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return "", provider.LocalFailure(providerName, "ffmpeg is not available", err)
		}
		return "", provider.NewError(provider.KindInvalidInput, "invalid_audio", providerName,
			"audio could not be decoded", err)
	}
	return converted, nil
}

// GetProviderInfo implements provider.TranscriptionProvider
func (lp *LocalProvider) GetProviderInfo() provider.ProviderInfo {
	formats := []provider.AudioFormat{provider.FormatWAV}
	if lp.config.ConvertAudio {
		formats = append(formats, provider.FormatMP3, provider.FormatM4A, provider.FormatFLAC,
			provider.FormatOGG, provider.FormatWEBM)
	}
	return provider.ProviderInfo{
		Name:             providerName,
		DisplayName:      "Whisper.cpp (local)",
		Type:             provider.ProviderTypeLocal,
		SupportedFormats: formats,
		RequiresBinary:   true,
		DefaultModel:     lp.config.ModelSize,
	}
}

// ValidateConfiguration implements provider.TranscriptionProvider
func (lp *LocalProvider) ValidateConfiguration() error {
	if lp.model == nil {
		return errModelMissing
	}
	return nil
}

// HealthCheck implements provider.TranscriptionProvider
func (lp *LocalProvider) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return lp.model.Check()
}
