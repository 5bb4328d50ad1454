package openrouter

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"

	// maxLoggedPayload bounds how much of a bad frame ends up in the log.
	maxLoggedPayload = 256

	// maxLineLength caps a single unterminated line held in the carry-over
	// buffer.
	maxLineLength = 1024 * 1024
)

var replacementChar = []byte(string(utf8.RuneError))

type frameKind int

const (
	frameIgnored frameKind = iota
	frameData
	frameDone
)

// frame is one classified line of the event stream.
type frame struct {
	kind    frameKind
	payload string
}

// classifyLine sorts a non-blank line into a data frame, the [DONE]
// sentinel, or something to ignore (comments, event:, id:, retry:).
func classifyLine(line string) frame {
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return frame{kind: frameIgnored}
	}
	if strings.TrimSpace(payload) == doneSentinel {
		return frame{kind: frameDone}
	}
	return frame{kind: frameData, payload: payload}
}

// lineBuffer turns arbitrary byte chunks into complete text lines. Bytes
// after the last newline stay buffered until a later chunk completes the
// line, so neither a line nor a multi-byte UTF-8 sequence split across a
// chunk boundary is lost. A newline byte never occurs inside a UTF-8
// sequence, so decoding whole lines is always safe.
type lineBuffer struct {
	pending []byte
}

// Write consumes chunk and returns every line it completes, with blank
// lines dropped.
func (b *lineBuffer) Write(chunk []byte) []string {
	b.pending = append(b.pending, chunk...)

	var lines []string
	start := 0
	for {
		i := bytes.IndexByte(b.pending[start:], '\n')
		if i < 0 {
			break
		}
		lines = appendLine(lines, b.pending[start:start+i])
		start += i + 1
	}
	b.pending = append(b.pending[:0], b.pending[start:]...)
	return lines
}

// Flush returns the unterminated tail, if any, and resets the buffer.
func (b *lineBuffer) Flush() []string {
	lines := appendLine(nil, b.pending)
	b.pending = b.pending[:0]
	return lines
}

// Pending reports how many bytes are waiting for a newline.
func (b *lineBuffer) Pending() int {
	return len(b.pending)
}

func appendLine(lines []string, raw []byte) []string {
	raw = bytes.TrimSuffix(raw, []byte("\r"))
	line := string(bytes.ToValidUTF8(raw, replacementChar))
	if strings.TrimSpace(line) == "" {
		return lines
	}
	return append(lines, line)
}

// streamChunk is the schema of one data frame. Every field is optional:
// keep-alive and usage frames carry no choices, and some providers report
// failures mid-stream through an error object instead of an HTTP status.
type streamChunk struct {
	openai.ChatCompletionStreamResponse
	Usage *openai.Usage `json:"usage,omitempty"`
	Error *apiError     `json:"error,omitempty"`
}

// delta returns choices[0].delta.content, or "" when absent.
func (c *streamChunk) delta() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

func decodeChunk(payload string) (*streamChunk, error) {
	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return nil, &FrameParseError{Payload: truncate(payload, maxLoggedPayload), Err: err}
	}
	return &chunk, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
