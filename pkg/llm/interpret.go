package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/koushikyemula/cue/pkg/action"
	"github.com/koushikyemula/cue/pkg/prompt"
	"github.com/koushikyemula/cue/pkg/task"
)

// Interpreter turns free text plus current task state into an ordered action
// batch via one model call.
type Interpreter struct {
	model Model
}

func NewInterpreter(model Model) *Interpreter {
	return &Interpreter{model: model}
}

// Interpret builds the prompt, invokes the model with deterministic sampling
// and returns the parsed batch. It fails on any transport or parsing error
// and never retries; fallback is the caller's concern.
func (in *Interpreter) Interpret(ctx context.Context, text string, tasks []task.Task, timezone string) (*action.Batch, error) {
	p, err := prompt.Build(text, tasks, timezone)
	if err != nil {
		return nil, err
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, p),
	}

	resp, err := in.model.GenerateContent(ctx, messages,
		llms.WithTemperature(0),
		llms.WithJSONMode(),
	)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	return parseBatch(resp.Choices[0].Content)
}

// parseBatch decodes the model's JSON into a batch. Models occasionally wrap
// JSON in a markdown fence even in JSON mode; strip it before decoding.
func parseBatch(content string) (*action.Batch, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	var batch action.Batch
	if err := json.Unmarshal([]byte(content), &batch); err != nil {
		return nil, fmt.Errorf("model output is not a valid action batch: %w", err)
	}
	return &batch, nil
}
