// Package openrouter is the chat-completion client for the OpenRouter API.
//
// A Client sends one POST per user turn. Complete waits for the whole
// answer. The streaming entry points (StreamChat, Stream, StreamEvents) all
// share a single decode loop that reads the server-sent-events body chunk by
// chunk, carries partial lines across chunk boundaries, skips malformed
// frames, and reports exactly one terminal outcome per call.
package openrouter

import "context"

// DefaultEndpoint is the OpenRouter chat-completions URL.
const DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"

// Attribution headers sent with every request. OpenRouter uses them to
// credit the calling application; they carry no authority.
const (
	DefaultReferer = "https://github.com/maximbilan/orchat"
	DefaultTitle   = "orchat"
)

// Chatter is what the UI and commands need from a chat backend.
type Chatter interface {
	// Complete performs a non-streaming completion.
	Complete(ctx context.Context, req CompletionRequest) (Message, error)
	// StreamChat streams deltas to onChunk and returns the accumulated text.
	StreamChat(ctx context.Context, req CompletionRequest, onChunk func(string)) (string, error)
	// Stream reports progress through the handler's callbacks.
	Stream(ctx context.Context, req CompletionRequest, h StreamHandler)
	// StreamEvents delivers deltas and the terminal outcome on a channel.
	StreamEvents(ctx context.Context, req CompletionRequest) <-chan Event
}
