package assemblyai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"audio-transcriber/internal/app/api/provider"
	"audio-transcriber/internal/config"
)

// errStillRunning marks a poll that found the job not yet terminal
var errStillRunning = errors.New("transcription job still running")

// AssemblyAIProvider uploads the audio, submits a job and polls it to completion
type AssemblyAIProvider struct {
	client  *Client
	config  config.AssemblyAIConfig
	logger  *zap.Logger
	metrics provider.ProviderMetrics
}

// NewAssemblyAIProvider creates the provider. metrics may be nil.
func NewAssemblyAIProvider(cfg config.AssemblyAIConfig, client *Client, logger *zap.Logger, metrics provider.ProviderMetrics) *AssemblyAIProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = provider.NopMetrics{}
	}
	return &AssemblyAIProvider{
		client:  client,
		config:  cfg,
		logger:  logger.With(zap.String("provider", providerName)),
		metrics: metrics,
	}
}

// TranscriptWithOptions implements provider.TranscriptionProvider
func (p *AssemblyAIProvider) TranscriptWithOptions(ctx context.Context, request *provider.TranscriptionRequest) (*provider.TranscriptionResponse, error) {
	startTime := time.Now()

	if request.InputFilePath == "" {
		return nil, provider.InvalidInput(providerName, "input file path is required")
	}

	uploadURL, err := p.client.UploadFile(ctx, request.InputFilePath)
	if err != nil {
		return nil, err
	}

	language := request.Language
	if language == "" {
		language = p.config.LanguageCode
	}

	jobID, err := p.client.SubmitJob(ctx, uploadURL, JobOptions{LanguageCode: language})
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Submitted transcription job", zap.String("job_id", jobID))

	job, err := p.waitForJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	text := ""
	if job.Text != nil {
		text = *job.Text
	}
	return &provider.TranscriptionResponse{
		Text:           text,
		Language:       language,
		ProcessingTime: time.Since(startTime),
		ProviderMetadata: map[string]interface{}{
			"job_id": jobID,
		},
	}, nil
}

// waitForJob polls until the job is terminal, the attempt budget runs out,
// the poll timeout passes, or ctx is done.
func (p *AssemblyAIProvider) waitForJob(ctx context.Context, jobID string) (*Job, error) {
	pollCtx, cancel := context.WithTimeout(ctx, p.config.Poll.Timeout)
	defer cancel()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.config.Poll.Interval
	exp.MaxInterval = p.config.Poll.MaxInterval
	exp.Multiplier = p.config.Poll.Multiplier
	exp.RandomizationFactor = 0

	attempts := 0
	job, err := backoff.Retry(pollCtx, func() (*Job, error) {
		attempts++
		job, err := p.client.GetJobStatus(pollCtx, jobID)
		if err != nil {
			var statusErr *HTTPStatusError
			if errors.As(err, &statusErr) && !statusErr.Transient() {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}

		switch job.Status {
		case StatusCompleted:
			return job, nil
		case StatusError:
			return nil, backoff.Permanent(provider.BackendFailure(providerName, backendMessage(job)))
		default:
			return nil, errStillRunning
		}
	},
		backoff.WithBackOff(exp),
		backoff.WithMaxTries(p.config.Poll.MaxAttempts),
		backoff.WithMaxElapsedTime(p.config.Poll.Timeout),
	)
	p.metrics.RecordPollAttempts(providerName, attempts)

	if err == nil {
		p.logger.Debug("Transcription job completed", zap.String("job_id", jobID), zap.Int("polls", attempts))
		return job, nil
	}

	var te *provider.TranscriptionError
	if errors.As(err, &te) {
		return nil, te
	}
	if ctxErr := provider.ContextError(ctx, providerName); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(err, errStillRunning) || pollCtx.Err() != nil {
		return nil, provider.Timeout(providerName,
			fmt.Sprintf("job %s did not finish after %d polls", jobID, attempts), err)
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) && !statusErr.Transient() {
		return nil, provider.NewError(provider.KindBackend, "transcription_failed", providerName,
			fmt.Sprintf("job status rejected with HTTP %d", statusErr.StatusCode), err)
	}
	return nil, provider.Unavailable(providerName, "job status polling failed", err)
}

func backendMessage(job *Job) string {
	if job.Error != "" {
		return job.Error
	}
	return fmt.Sprintf("transcription job %s failed", job.ID)
}

// GetProviderInfo implements provider.TranscriptionProvider
func (p *AssemblyAIProvider) GetProviderInfo() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:        providerName,
		DisplayName: "AssemblyAI",
		Type:        provider.ProviderTypeRemote,
		SupportedFormats: []provider.AudioFormat{
			provider.FormatMP3, provider.FormatWAV, provider.FormatM4A,
			provider.FormatFLAC, provider.FormatOGG, provider.FormatWEBM,
		},
		RequiresInternet: true,
		RequiresAPIKey:   true,
		DefaultModel:     "best",
	}
}

// ValidateConfiguration implements provider.TranscriptionProvider
func (p *AssemblyAIProvider) ValidateConfiguration() error {
	if p.config.APIKey == "" {
		return fmt.Errorf("assemblyai api key is required")
	}
	if p.config.BaseURL == "" {
		return fmt.Errorf("assemblyai base url is required")
	}
	if p.config.Poll.MaxAttempts == 0 || p.config.Poll.Timeout <= 0 {
		return fmt.Errorf("assemblyai polling must be bounded")
	}
	return nil
}

// HealthCheck implements provider.TranscriptionProvider
func (p *AssemblyAIProvider) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx)
}
