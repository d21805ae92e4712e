// internal/common/genai/client.go
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	httpclient "clinical-decision-pipeline/internal/common/http"
)

var (
	ErrGenerationFailed  = errors.New("GENERATION_FAILED")
	ErrGenerationTimeout = errors.New("GENERATION_TIMEOUT")
	ErrEmbeddingFailed   = errors.New("EMBEDDING_FAILED")
)

// GenerateRequest is one call to the reasoning service.
type GenerateRequest struct {
	Prompt      string
	System      string
	Temperature float32
	MaxTokens   int
	// JSON asks the service for a single JSON object.
	JSON bool
}

// Reasoner produces text from a prompt.
type Reasoner interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Embedder turns texts into vectors. Vector i belongs to texts[i].
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Options configures an OpenAI-compatible endpoint.
type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

func newOpenAIClient(opts Options) *openai.Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cfg.HTTPClient = httpclient.NewClient(0)
	return openai.NewClientWithConfig(cfg)
}

// withRetry runs call up to maxRetries+1 times with exponential backoff.
// Permanent API errors (4xx other than 429) stop the loop early.
func withRetry(ctx context.Context, maxRetries int, call func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func classify(sentinel error, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		if sentinel == ErrGenerationFailed {
			return ErrGenerationTimeout
		}
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
