package openrouter

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = openai.ChatMessageRoleUser
	RoleAssistant Role = openai.ChatMessageRoleAssistant
	RoleSystem    Role = openai.ChatMessageRoleSystem
)

// Valid reports whether r is one of the three supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one turn of a conversation. Conversations are ordered oldest
// first and sent to the model verbatim.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func UserMessage(content string) Message      { return Message{Role: RoleUser, Content: content} }
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }
func SystemMessage(content string) Message    { return Message{Role: RoleSystem, Content: content} }

func toWireMessages(messages []Message) ([]openai.ChatCompletionMessage, error) {
	wire := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		if !msg.Role.Valid() {
			return nil, fmt.Errorf("message %d has unknown role %q", i, msg.Role)
		}
		wire[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}
	return wire, nil
}
