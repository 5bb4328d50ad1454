package openrouter

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential means no API key is stored. No request is sent.
	ErrMissingCredential = errors.New("API key not found")

	// ErrStreamUnsupported means a successful streaming response carried no
	// readable body.
	ErrStreamUnsupported = errors.New("streaming response has no readable body")

	// ErrInvalidRequest wraps parameter validation failures. No request is sent.
	ErrInvalidRequest = errors.New("invalid completion request")

	// ErrNoChoices is wrapped in a TransportError when a non-streaming
	// response has an empty choices array.
	ErrNoChoices = errors.New("response contained no choices")

	// ErrLineTooLong is wrapped in a TransportError when the server sends
	// more than maxLineLength bytes without a newline.
	ErrLineTooLong = errors.New("stream line exceeds maximum length")
)

const genericRemoteMessage = "Error communicating with OpenRouter API"

// RemoteError is a non-2xx answer from the API. Message is what Error
// returns: the server-reported message for Complete, or
// "API error: <status> - <body>" for streaming calls.
type RemoteError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// TransportError wraps network, encoding and decoding failures. Op names the
// step that failed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FrameParseError describes a data frame whose payload was not valid JSON.
// It is logged and the frame skipped; it never ends a stream.
type FrameParseError struct {
	Payload string
	Err     error
}

func (e *FrameParseError) Error() string {
	return fmt.Sprintf("malformed stream frame %q: %v", e.Payload, e.Err)
}

func (e *FrameParseError) Unwrap() error {
	return e.Err
}
