package openrouter

import (
	"context"
	"errors"
	"strings"
	"testing"
)

var _ Chatter = (*Client)(nil)
var _ Chatter = (*Mock)(nil)

func TestMock(t *testing.T) {
	mock := NewMock()
	mock.SetResponse("Hello", "Hi there")
	ctx := context.Background()

	t.Run("complete returns registered response", func(t *testing.T) {
		msg, err := mock.Complete(ctx, CompletionRequest{Messages: []Message{UserMessage("Hello")}})
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if msg.Content != "Hi there" || msg.Role != RoleAssistant {
			t.Errorf("Complete() = %+v, want assistant %q", msg, "Hi there")
		}
	})

	t.Run("unregistered prompt gets default response", func(t *testing.T) {
		msg, err := mock.Complete(ctx, CompletionRequest{Messages: []Message{UserMessage("Other")}})
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if msg.Content != "Mock response for: Other" {
			t.Errorf("Complete() = %q", msg.Content)
		}
	})

	t.Run("answers the last user message", func(t *testing.T) {
		msgs := []Message{UserMessage("First"), AssistantMessage("ok"), UserMessage("Hello"), AssistantMessage("partial")}
		text, err := mock.StreamChat(ctx, CompletionRequest{Messages: msgs}, nil)
		if err != nil {
			t.Fatalf("StreamChat() error = %v", err)
		}
		if text != "Hi there" {
			t.Errorf("StreamChat() = %q, want Hi there", text)
		}
	})

	t.Run("streams rune by rune", func(t *testing.T) {
		mock.SetResponse("emoji", "ok 😀")
		var o outcome
		mock.Stream(ctx, CompletionRequest{Messages: []Message{UserMessage("emoji")}}, o.handler())
		if strings.Join(o.chunks, "|") != "o|k| |😀" {
			t.Errorf("chunks = %q", o.chunks)
		}
		if len(o.completed) != 1 || o.completed[0] != "ok 😀" {
			t.Errorf("completed = %q", o.completed)
		}
	})

	t.Run("empty conversation fails", func(t *testing.T) {
		if _, err := mock.Complete(ctx, CompletionRequest{}); err == nil {
			t.Error("Complete() error = nil, want error")
		}
	})

	t.Run("failure is reported once", func(t *testing.T) {
		failing := NewMock()
		failing.FailWith(ErrMissingCredential)

		var events []Event
		for ev := range failing.StreamEvents(ctx, CompletionRequest{Messages: []Message{UserMessage("x")}}) {
			events = append(events, ev)
		}
		if len(events) != 1 {
			t.Fatalf("events = %#v, want one", events)
		}
		if f, ok := events[0].(Failed); !ok || !errors.Is(f.Err, ErrMissingCredential) {
			t.Errorf("event = %#v, want Failed{ErrMissingCredential}", events[0])
		}
	})

	t.Run("records requests", func(t *testing.T) {
		if got := len(mock.Requests()); got != 5 {
			t.Errorf("Requests() = %d, want 5", got)
		}
	})
}

func TestModels(t *testing.T) {
	if DefaultModel != "anthropic/claude-3-opus" {
		t.Errorf("DefaultModel = %q", DefaultModel)
	}

	seen := make(map[string]bool)
	for _, m := range Models {
		if m.ID == "" || m.Name == "" {
			t.Errorf("catalogue entry %+v is incomplete", m)
		}
		if seen[m.ID] {
			t.Errorf("duplicate catalogue entry %q", m.ID)
		}
		seen[m.ID] = true
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "next", got: NextModel(Models[0].ID), want: Models[1].ID},
		{name: "next wraps", got: NextModel(Models[len(Models)-1].ID), want: Models[0].ID},
		{name: "prev wraps", got: PrevModel(Models[0].ID), want: Models[len(Models)-1].ID},
		{name: "prev", got: PrevModel(Models[1].ID), want: Models[0].ID},
		{name: "next unknown", got: NextModel("x/unknown"), want: Models[0].ID},
		{name: "prev unknown", got: PrevModel("x/unknown"), want: Models[len(Models)-1].ID},
		{name: "display name known", got: DisplayName("openai/gpt-4o"), want: "GPT-4o"},
		{name: "display name unknown", got: DisplayName("x/unknown"), want: "x/unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
