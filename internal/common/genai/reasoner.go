// internal/common/genai/reasoner.go
package genai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIReasoner calls a chat-completion endpoint.
type OpenAIReasoner struct {
	client *openai.Client
	opts   Options
}

func NewOpenAIReasoner(opts Options) *OpenAIReasoner {
	return &OpenAIReasoner{client: newOpenAIClient(opts), opts: opts}
}

func (r *OpenAIReasoner) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	ctx, cancel := withTimeout(ctx, r.opts.Timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := openai.ChatCompletionRequest{
		Model:       r.opts.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var text string
	err := withRetry(ctx, r.opts.MaxRetries, func(ctx context.Context) error {
		resp, err := r.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices returned")
		}
		text = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", classify(ErrGenerationFailed, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}
	return text, nil
}
