package memory

import (
	"errors"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/todo-agent/internal/fsops"
)

// DefaultFile is the transcript file name used when none is configured.
const DefaultFile = "conversation.json"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a minimal persisted view of a chat turn.
// Only text is stored. Tool blocks are transient.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text,omitempty"`
}

// LoadConversation reads the transcript at path. A missing or blank file yields nil, nil.
func LoadConversation(path string) ([]Message, error) {
	var msgs []Message
	if err := fsops.ReadJSON(path, &msgs); err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, fsops.ErrEmpty) {
			return nil, nil
		}
		return nil, err
	}
	return msgs, nil
}

// SaveConversation replaces the transcript at path.
func SaveConversation(path string, msgs []Message) error {
	if msgs == nil {
		msgs = []Message{}
	}
	return fsops.WriteJSON(path, msgs, " ")
}

// ToParams rebuilds SDK messages from a transcript. Entries with empty text are skipped.
func ToParams(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		if m.Text == "" {
			continue
		}
		if m.Role == RoleUser {
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
		} else {
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Text)))
		}
	}
	return out
}
