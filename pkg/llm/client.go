// Package llm invokes the language model to turn user input into an action
// batch. It owns nothing but the model call: no task mutation, no calendar.
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Model is the slice of the langchaingo model surface the interpreter needs.
// Accepting the interface keeps tests free of network calls.
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// NewClient builds an OpenAI-compatible chat client constrained to JSON
// output. The endpoint and key come from configuration; the model identifier
// is opaque to this package.
func NewClient(apiKey, baseURL, model string) (Model, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
		openai.WithResponseFormat(&openai.ResponseFormat{
			Type: "json_object",
		}),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	return client, nil
}
