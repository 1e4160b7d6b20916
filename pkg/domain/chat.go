package domain

import "time"

type Chat struct {
	ID         string
	Messages   []Message
	LastUpdate time.Time
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	MessageRoleSystem    = "system"
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

func IsValidRole(role string) bool {
	switch role {
	case MessageRoleSystem, MessageRoleUser, MessageRoleAssistant:
		return true
	}
	return false
}

// CloneMessages returns a copy of messages that shares no backing array with
// the input. A nil input stays nil.
func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}

// ChatRequest is one user turn. History is only honoured in stateless mode.
type ChatRequest struct {
	SessionID   string
	Message     string
	Persona     string
	History     []Message
	Temperature *float32
}
