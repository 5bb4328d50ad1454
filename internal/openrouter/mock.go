package openrouter

import (
	"context"
	"fmt"
	"sync"
)

// Mock is an in-memory Chatter for UI and command tests. It answers with
// the response registered for the last user message, streaming it one rune
// at a time.
type Mock struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	requests  []CompletionRequest
}

// NewMock creates an empty Mock.
func NewMock() *Mock {
	return &Mock{
		responses: make(map[string]string),
	}
}

// SetResponse registers the answer for a given prompt.
func (m *Mock) SetResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// FailWith makes every following call fail with err.
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Requests returns the requests received so far.
func (m *Mock) Requests() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.requests...)
}

func (m *Mock) answer(req CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if m.err != nil {
		return "", m.err
	}
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}

	var prompt string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			prompt = req.Messages[i].Content
			break
		}
	}

	response, ok := m.responses[prompt]
	if !ok {
		response = "Mock response for: " + prompt
	}
	return response, nil
}

// Complete returns the registered answer in one piece.
func (m *Mock) Complete(ctx context.Context, req CompletionRequest) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	response, err := m.answer(req)
	if err != nil {
		return Message{}, err
	}
	return AssistantMessage(response), nil
}

// StreamChat streams the registered answer rune by rune.
func (m *Mock) StreamChat(ctx context.Context, req CompletionRequest, onChunk func(string)) (string, error) {
	response, err := m.answer(req)
	if err != nil {
		return "", err
	}
	for _, r := range response {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if onChunk != nil {
			onChunk(string(r))
		}
	}
	return response, nil
}

func (m *Mock) Stream(ctx context.Context, req CompletionRequest, h StreamHandler) {
	runHandler(ctx, req, h, m.StreamChat)
}

func (m *Mock) StreamEvents(ctx context.Context, req CompletionRequest) <-chan Event {
	return runEvents(ctx, req, m.StreamChat)
}
