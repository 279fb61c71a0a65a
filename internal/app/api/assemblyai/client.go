package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"audio-transcriber/internal/app/api/provider"
	"audio-transcriber/internal/config"
)

const providerName = config.ProviderAssemblyAI

// Job statuses reported by the transcript endpoint
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// JobOptions are the submission parameters we send
type JobOptions struct {
	LanguageCode string
}

// Job is a transcript job as returned by GET /v2/transcript/{id}
type Job struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Text   *string `json:"text"`
	Error  string  `json:"error,omitempty"`
}

// Terminal reports whether the job will not change status again
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusError
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type submitRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code,omitempty"`
	AutoChapters bool   `json:"auto_chapters"`
}

// HTTPStatusError is a non-2xx response from the API
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("assemblyai returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether retrying the same request may succeed
func (e *HTTPStatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Client talks to the AssemblyAI REST API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      config.RetryConfig
	logger     *zap.Logger
}

// NewClient creates a client. httpClient may be nil.
func NewClient(cfg config.AssemblyAIConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		retry:      cfg.Retry,
		logger:     logger,
	}
}

// UploadFile sends the raw file and returns the URL the job should reference
func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", provider.StorageFailure("failed to stat staged upload", err)
	}

	var resp uploadResponse
	err = c.withRetry(ctx, "upload", func() error {
		f, err := os.Open(path)
		if err != nil {
			return backoff.Permanent(provider.StorageFailure("failed to open staged upload", err))
		}
		defer f.Close()

		return c.do(ctx, http.MethodPost, "/v2/upload", "application/octet-stream", f, info.Size(), &resp)
	})
	if err != nil {
		return "", err
	}
	if resp.UploadURL == "" {
		return "", provider.BackendFailure(providerName, "upload response did not include upload_url")
	}
	return resp.UploadURL, nil
}

// SubmitJob creates a transcript job for uploadURL and returns its id
func (c *Client) SubmitJob(ctx context.Context, uploadURL string, opts JobOptions) (string, error) {
	body, err := json.Marshal(submitRequest{
		AudioURL:     uploadURL,
		LanguageCode: opts.LanguageCode,
		AutoChapters: false,
	})
	if err != nil {
		return "", err
	}

	var job Job
	err = c.withRetry(ctx, "submit", func() error {
		return c.do(ctx, http.MethodPost, "/v2/transcript", "application/json", bytes.NewReader(body), int64(len(body)), &job)
	})
	if err != nil {
		return "", err
	}
	if job.ID == "" {
		return "", provider.BackendFailure(providerName, "submit response did not include a job id")
	}
	return job.ID, nil
}

// GetJobStatus fetches a job once. Errors are not retried here; the poll
// loop owns that decision.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodGet, "/v2/transcript/"+url.PathEscape(jobID), "", nil, 0, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Ping checks that the API is reachable and the key is accepted
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v2/transcript?limit=1", "", nil, 0, nil)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, size int64, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.ContentLength = size
	}
	req.Header.Set("authorization", c.apiKey)
	req.Header.Set("User-Agent", "audio-transcriber/1.0")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// withRetry runs op with bounded exponential backoff. Network errors, 429
// and 5xx are retried; everything else stops immediately.
func (c *Client) withRetry(ctx context.Context, operation string, op func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retry.InitialBackoff
	exp.MaxInterval = c.retry.MaxBackoff

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := op()
		if err == nil {
			return struct{}{}, nil
		}

		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && !statusErr.Transient() {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(exp),
		backoff.WithMaxTries(c.retry.MaxAttempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.Warn("Retrying AssemblyAI request",
				zap.String("operation", operation),
				zap.Int("attempt", attempts),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}),
	)
	if err == nil {
		return nil
	}
	return c.classify(ctx, operation, err)
}

// classify turns a raw client error into a TranscriptionError
func (c *Client) classify(ctx context.Context, operation string, err error) error {
	var te *provider.TranscriptionError
	if errors.As(err, &te) {
		return te
	}
	if ctxErr := provider.ContextError(ctx, providerName); ctxErr != nil {
		return ctxErr
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if statusErr.Transient() {
			return provider.Unavailable(providerName, operation+" failed", err)
		}
		return provider.NewError(provider.KindBackend, "transcription_failed", providerName,
			fmt.Sprintf("%s rejected with HTTP %d", operation, statusErr.StatusCode), err)
	}
	return provider.Unavailable(providerName, operation+" failed", err)
}
