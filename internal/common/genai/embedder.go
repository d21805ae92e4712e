// internal/common/genai/embedder.go
package genai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder calls an embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	opts   Options
}

func NewOpenAIEmbedder(opts Options) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: newOpenAIClient(opts), opts: opts}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := withTimeout(ctx, e.opts.Timeout)
	defer cancel()

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.opts.Model),
	}

	var vectors [][]float32
	err := withRetry(ctx, e.opts.MaxRetries, func(ctx context.Context) error {
		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
		}
		out := make([][]float32, len(texts))
		for i, d := range resp.Data {
			idx := d.Index
			if idx < 0 || idx >= len(out) {
				idx = i
			}
			out[idx] = d.Embedding
		}
		for i := range out {
			if out[i] == nil {
				return fmt.Errorf("missing embedding for input %d", i)
			}
		}
		vectors = out
		return nil
	})
	if err != nil {
		return nil, classify(ErrEmbeddingFailed, err)
	}
	return vectors, nil
}
