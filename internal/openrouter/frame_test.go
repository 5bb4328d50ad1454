package openrouter

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestLineBufferWrite(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []string
		tail   []string
	}{
		{
			name:   "whole lines",
			chunks: []string{"a\nb\n"},
			want:   []string{"a", "b"},
		},
		{
			name:   "line split across chunks",
			chunks: []string{"data: {\"x\"", ":1}\n"},
			want:   []string{`data: {"x":1}`},
		},
		{
			name:   "line split across three chunks",
			chunks: []string{"da", "ta", ": x\n"},
			want:   []string{"data: x"},
		},
		{
			name:   "blank and whitespace lines dropped",
			chunks: []string{"\n\n  \n\t\na\n"},
			want:   []string{"a"},
		},
		{
			name:   "crlf line endings",
			chunks: []string{"data: a\r\n\r\ndata: b\r", "\n"},
			want:   []string{"data: a", "data: b"},
		},
		{
			name:   "unterminated tail is held back",
			chunks: []string{"a\nb"},
			want:   []string{"a"},
			tail:   []string{"b"},
		},
		{
			name:   "multi-byte rune split across chunks",
			chunks: []string{"h\xc3", "\xa9llo\n"},
			want:   []string{"héllo"},
		},
		{
			name:   "four-byte rune split byte by byte",
			chunks: []string{"\xf0", "\x9f", "\x98", "\x80\n"},
			want:   []string{"😀"},
		},
		{
			name:   "invalid utf-8 replaced",
			chunks: []string{"a\xffb\n"},
			want:   []string{"a�b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b lineBuffer
			var got []string
			for _, chunk := range tt.chunks {
				got = append(got, b.Write([]byte(chunk))...)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Write() lines = %q, want %q", got, tt.want)
			}
			tail := b.Flush()
			if !reflect.DeepEqual(tail, tt.tail) {
				t.Errorf("Flush() = %q, want %q", tail, tt.tail)
			}
			if b.Pending() != 0 {
				t.Errorf("Pending() after Flush = %d, want 0", b.Pending())
			}
		})
	}
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		kind    frameKind
		payload string
	}{
		{name: "data frame", line: `data: {"a":1}`, kind: frameData, payload: `{"a":1}`},
		{name: "done sentinel", line: "data: [DONE]", kind: frameDone},
		{name: "done sentinel with trailing space", line: "data: [DONE] ", kind: frameDone},
		{name: "comment", line: ": OPENROUTER PROCESSING", kind: frameIgnored},
		{name: "event field", line: "event: message", kind: frameIgnored},
		{name: "id field", line: "id: 7", kind: frameIgnored},
		{name: "retry field", line: "retry: 1000", kind: frameIgnored},
		{name: "data without space", line: `data:{"a":1}`, kind: frameIgnored},
		{name: "indented data", line: ` data: {"a":1}`, kind: frameIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyLine(tt.line)
			if got.kind != tt.kind {
				t.Errorf("classifyLine(%q).kind = %v, want %v", tt.line, got.kind, tt.kind)
			}
			if got.payload != tt.payload {
				t.Errorf("classifyLine(%q).payload = %q, want %q", tt.line, got.payload, tt.payload)
			}
		})
	}
}

func TestDecodeChunk(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantDelta string
		wantErr   bool
	}{
		{name: "content delta", payload: `{"choices":[{"delta":{"content":"Hel"}}]}`, wantDelta: "Hel"},
		{name: "role only delta", payload: `{"choices":[{"delta":{"role":"assistant"}}]}`, wantDelta: ""},
		{name: "null content", payload: `{"choices":[{"delta":{"content":null},"finish_reason":null}]}`, wantDelta: ""},
		{name: "no choices", payload: `{"choices":[]}`, wantDelta: ""},
		{name: "usage frame", payload: `{"choices":[],"usage":{"prompt_tokens":3,"completion_tokens":5,"total_tokens":8}}`, wantDelta: ""},
		{name: "error frame", payload: `{"error":{"message":"overloaded","code":502}}`, wantDelta: ""},
		{name: "truncated json", payload: `{"choices":[{"delta":`, wantErr: true},
		{name: "not json", payload: `hello`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk, err := decodeChunk(tt.payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeChunk() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var parseErr *FrameParseError
				if !errors.As(err, &parseErr) {
					t.Fatalf("decodeChunk() error = %T, want *FrameParseError", err)
				}
				return
			}
			if got := chunk.delta(); got != tt.wantDelta {
				t.Errorf("delta() = %q, want %q", got, tt.wantDelta)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q, want short", got)
	}
	long := strings.Repeat("é", 10) // 20 bytes
	got := truncate(long, 5)
	if got != "éé…" {
		t.Errorf("truncate() = %q, want %q", got, "éé…")
	}
}
