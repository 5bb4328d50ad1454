package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/maximbilan/orchat/internal/credential"
	"github.com/maximbilan/orchat/internal/logger"
	"github.com/maximbilan/orchat/internal/ratelimit"
)

// HTTPDoer sends HTTP requests. *http.Client satisfies it; tests substitute
// scripted transports.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the OpenRouter chat-completions endpoint. It reads the API
// key from its credential store on every call, so a key saved or cleared
// mid-session takes effect on the next turn.
type Client struct {
	store    credential.Store
	http     HTTPDoer
	endpoint string
	referer  string
	title    string
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client. Streaming responses can
// run for minutes, so the default has no overall timeout; bound calls with
// their context instead.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithEndpoint overrides DefaultEndpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithAttribution sets the HTTP-Referer and X-Title headers.
func WithAttribution(referer, title string) Option {
	return func(c *Client) {
		if referer != "" {
			c.referer = referer
		}
		if title != "" {
			c.title = title
		}
	}
}

// WithRateLimiter makes every call wait on l before sending.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the logger used for request tracing and skipped frames.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client reading its API key from store.
func New(store credential.Store, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	c := &Client{
		store:    store,
		http:     &http.Client{},
		endpoint: DefaultEndpoint,
		referer:  DefaultReferer,
		title:    DefaultTitle,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Complete performs a non-streaming completion and returns the first
// choice as an assistant message.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (Message, error) {
	resp, err := c.send(ctx, req, false)
	if err != nil {
		return Message{}, err
	}
	if resp.Body == nil {
		return Message{}, &TransportError{Op: "read response", Err: io.ErrUnexpectedEOF}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Message{}, &TransportError{Op: "read response", Err: err}
	}

	if !isSuccess(resp.StatusCode) {
		return Message{}, remoteErrorFromJSON(resp.StatusCode, body)
	}

	var completion openai.ChatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return Message{}, &TransportError{Op: "decode response", Err: err}
	}
	if len(completion.Choices) == 0 {
		return Message{}, &TransportError{Op: "decode response", Err: ErrNoChoices}
	}

	c.logger.Debug("completion finished",
		"model", completion.Model,
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
	)

	return AssistantMessage(completion.Choices[0].Message.Content), nil
}

// send resolves the key, validates the request, waits on the rate limiter
// and POSTs. A returned response always has a non-nil Body unless the
// HTTPDoer broke that contract.
func (c *Client) send(ctx context.Context, req CompletionRequest, stream bool) (*http.Response, error) {
	token, err := c.store.Get()
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, ErrMissingCredential
		}
		return nil, fmt.Errorf("loading API key: %w", err)
	}
	if token == "" {
		return nil, ErrMissingCredential
	}

	body, err := req.body(stream)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &TransportError{Op: "encode request", Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Op: "rate limit", Err: err}
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("HTTP-Referer", c.referer)
	httpReq.Header.Set("X-Title", c.title)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	c.logger.Debug("sending completion request",
		"model", body.Model,
		"messages", len(body.Messages),
		"stream", stream,
	)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "send request", Err: err}
	}
	return resp, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// apiError is the error object OpenRouter returns in failed responses and,
// occasionally, inside a stream frame.
type apiError struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error *apiError `json:"error"`
}

// remoteErrorFromJSON builds the non-streaming RemoteError. Bodies that are
// not JSON, or lack error.message, fall back to a generic message.
func remoteErrorFromJSON(status int, body []byte) *RemoteError {
	remote := &RemoteError{
		StatusCode: status,
		Message:    genericRemoteMessage,
		Body:       string(body),
	}
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		remote.Message = envelope.Error.Message
	}
	return remote
}
