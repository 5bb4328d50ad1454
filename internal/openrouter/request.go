package openrouter

import (
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/maximbilan/orchat/internal/validation"
)

// Generation defaults applied when a CompletionRequest leaves a field nil.
const (
	DefaultTemperature = 0.7
	DefaultTopP        = 0.95
	DefaultMaxTokens   = 1000
)

// CompletionRequest describes one completion call. Optional fields are
// pointers so that an explicit zero temperature is distinguishable from
// "use the default". The stream flag is not part of the request: it is set
// by the method used to send it.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Float returns a pointer to v, for CompletionRequest.Temperature and TopP.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for CompletionRequest.MaxTokens.
func Int(v int) *int { return &v }

// chatCompletionBody is the JSON document POSTed to the endpoint. Every
// generation parameter is always present, so a temperature of 0 is sent as
// 0 rather than dropped.
type chatCompletionBody struct {
	Model       string                         `json:"model"`
	Messages    []openai.ChatCompletionMessage `json:"messages"`
	Temperature float64                        `json:"temperature"`
	TopP        float64                        `json:"top_p"`
	MaxTokens   int                            `json:"max_tokens"`
	Stream      bool                           `json:"stream"`
}

func (r CompletionRequest) body(stream bool) (chatCompletionBody, error) {
	temperature := DefaultTemperature
	if r.Temperature != nil {
		temperature = *r.Temperature
	}
	topP := DefaultTopP
	if r.TopP != nil {
		topP = *r.TopP
	}
	maxTokens := DefaultMaxTokens
	if r.MaxTokens != nil {
		maxTokens = *r.MaxTokens
	}

	for _, check := range []error{
		validation.ValidateModel(r.Model),
		validation.ValidateTemperature(temperature),
		validation.ValidateTopP(topP),
		validation.ValidateMaxTokens(maxTokens),
	} {
		if check != nil {
			return chatCompletionBody{}, fmt.Errorf("%w: %w", ErrInvalidRequest, check)
		}
	}

	messages, err := toWireMessages(r.Messages)
	if err != nil {
		return chatCompletionBody{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	return chatCompletionBody{
		Model:       r.Model,
		Messages:    messages,
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
		Stream:      stream,
	}, nil
}
