package chat

import "fmt"

const (
	ChatRoleUser   = "user"
	ChatRoleAgent  = "assistant"
	ChatRoleSystem = "system"
)

// ChatMessage is one message sent to a chat-completion model. The shape matches what
// OpenAI-compatible and Ollama chat endpoints accept.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

func (m ChatMessage) Validate() error {
	switch m.Role {
	case ChatRoleUser, ChatRoleAgent, ChatRoleSystem:
	default:
		return fmt.Errorf("invalid chat role %q", m.Role)
	}
	if m.Content == "" {
		return fmt.Errorf("%s message cannot be empty", m.Role)
	}
	return nil
}

// Split separates the system messages from the conversation. Providers that take the
// system prompt as a top-level field use it; system contents are joined with blank lines.
func Split(messages []ChatMessage) (system string, rest []ChatMessage) {
	for _, m := range messages {
		if m.Role == ChatRoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
