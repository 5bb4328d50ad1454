package openrouter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// readChunkSize is the most bytes pulled from the body per read.
	readChunkSize = 4096

	// eventBuffer lets the decoder run a few deltas ahead of a slow consumer.
	eventBuffer = 16
)

// StreamHandler receives the progress of one streaming call. OnChunk gets
// each delta in arrival order. Exactly one of OnComplete or OnError is then
// called, exactly once. Nil callbacks are skipped.
type StreamHandler struct {
	OnChunk    func(delta string)
	OnComplete func(fullText string)
	OnError    func(err error)
}

// Event is one item of a StreamEvents channel: Delta, Completed or Failed.
type Event interface {
	isEvent()
}

// Delta carries one fragment of generated text.
type Delta struct {
	Text string
}

// Completed is the successful terminal event. Text is the concatenation of
// every preceding Delta.
type Completed struct {
	Text string
}

// Failed is the unsuccessful terminal event.
type Failed struct {
	Err error
}

func (Delta) isEvent()     {}
func (Completed) isEvent() {}
func (Failed) isEvent()    {}

// StreamChat streams a completion, passing each delta to onChunk (which may
// be nil), and returns the accumulated text once the body is exhausted.
func (c *Client) StreamChat(ctx context.Context, req CompletionRequest, onChunk func(string)) (string, error) {
	resp, err := c.send(ctx, req, true)
	if err != nil {
		return "", err
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	if !isSuccess(resp.StatusCode) {
		// Streaming error bodies are not reliably JSON; keep them verbatim.
		var raw []byte
		if resp.Body != nil {
			raw, err = io.ReadAll(resp.Body)
			if err != nil {
				return "", &TransportError{Op: "read error response", Err: err}
			}
		}
		return "", &RemoteError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("API error: %d - %s", resp.StatusCode, raw),
			Body:       string(raw),
		}
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return "", ErrStreamUnsupported
	}

	return c.consume(ctx, resp.Body, onChunk)
}

// Stream runs StreamChat and reports the outcome through h. It never panics:
// a panic raised while streaming, including one from h.OnChunk, becomes the
// OnError outcome. A panic inside OnComplete or OnError is swallowed and no
// second terminal callback is made.
func (c *Client) Stream(ctx context.Context, req CompletionRequest, h StreamHandler) {
	runHandler(ctx, req, h, c.StreamChat)
}

// StreamEvents runs StreamChat in a goroutine and delivers its progress on
// the returned channel: zero or more Delta events, then at most one
// Completed or Failed, then the channel is closed. Receivers must drain the
// channel or cancel ctx. After cancellation the decoder stops, the body is
// closed, pending deltas may be dropped, and the terminal event is only
// delivered if the buffer has room.
func (c *Client) StreamEvents(ctx context.Context, req CompletionRequest) <-chan Event {
	return runEvents(ctx, req, c.StreamChat)
}

// consume is the decode loop: read a chunk, split it into complete lines,
// turn data frames into deltas, repeat until EOF.
func (c *Client) consume(ctx context.Context, body io.Reader, onChunk func(string)) (string, error) {
	var (
		lines lineBuffer
		text  strings.Builder
		buf   = make([]byte, readChunkSize)
	)

	handle := func(lines []string) {
		for _, line := range lines {
			delta := c.deltaFromLine(line)
			if delta == "" {
				continue
			}
			text.WriteString(delta)
			if onChunk != nil {
				onChunk(delta)
			}
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", &TransportError{Op: "read stream", Err: err}
		}

		n, err := body.Read(buf)
		if n > 0 {
			handle(lines.Write(buf[:n]))
			if lines.Pending() > maxLineLength {
				return "", &TransportError{Op: "read stream", Err: ErrLineTooLong}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return "", &TransportError{Op: "read stream", Err: err}
		}
	}

	if lines.Pending() > 0 {
		c.logger.Debug("stream ended without trailing newline", "bytes", lines.Pending())
	}
	handle(lines.Flush())

	return text.String(), nil
}

// deltaFromLine returns the text delta carried by line, or "" for anything
// that is not a content-bearing data frame. Malformed frames are logged and
// skipped.
func (c *Client) deltaFromLine(line string) string {
	f := classifyLine(line)
	if f.kind != frameData {
		return ""
	}

	chunk, err := decodeChunk(f.payload)
	if err != nil {
		c.logger.Warn("skipping malformed stream frame", "error", err)
		return ""
	}
	if chunk.Error != nil {
		c.logger.Warn("provider reported an error inside the stream", "message", chunk.Error.Message, "code", chunk.Error.Code)
	}
	if chunk.Usage != nil {
		c.logger.Debug("stream usage",
			"prompt_tokens", chunk.Usage.PromptTokens,
			"completion_tokens", chunk.Usage.CompletionTokens,
		)
	}
	return chunk.delta()
}

type streamFunc func(ctx context.Context, req CompletionRequest, onChunk func(string)) (string, error)

// guarded runs fn and converts a panic into an error.
func guarded(ctx context.Context, req CompletionRequest, onChunk func(string), fn streamFunc) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("stream aborted: %v", r)
		}
	}()
	return fn(ctx, req, onChunk)
}

func runHandler(ctx context.Context, req CompletionRequest, h StreamHandler, fn streamFunc) {
	text, err := guarded(ctx, req, h.OnChunk, fn)
	defer func() {
		_ = recover()
	}()
	if err != nil {
		if h.OnError != nil {
			h.OnError(err)
		}
		return
	}
	if h.OnComplete != nil {
		h.OnComplete(text)
	}
}

func runEvents(ctx context.Context, req CompletionRequest, fn streamFunc) <-chan Event {
	events := make(chan Event, eventBuffer)
	send := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	go func() {
		defer close(events)
		text, err := guarded(ctx, req, func(delta string) {
			send(Delta{Text: delta})
		}, fn)

		var terminal Event = Completed{Text: text}
		if err != nil {
			terminal = Failed{Err: err}
		}
		if !send(terminal) {
			select {
			case events <- terminal:
			default:
			}
		}
	}()
	return events
}
