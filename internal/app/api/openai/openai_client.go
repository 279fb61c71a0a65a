// Package openai holds the shared go-openai client setup.
package openai

import (
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"audio-transcriber/internal/config"
)

// requestTimeout bounds a single API call; the request context usually ends sooner
const requestTimeout = 10 * time.Minute

// NewClient builds a go-openai client, honouring a custom base URL
func NewClient(cfg config.OpenAIConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: requestTimeout}
	return openai.NewClientWithConfig(clientConfig)
}
