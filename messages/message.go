package messages

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Role identifies the author of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// MarshalText implements encoding.TextMarshaler.
// An unknown role is an error so it never reaches the wire.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown role %q", string(r))
	}
	return []byte(r), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	role := Role(strings.ToLower(strings.TrimSpace(string(text))))
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", string(text))
	}
	*r = role
	return nil
}

// Message is a single entry of a conversation.
// Messages are values: once built they are copied, never mutated in place.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System creates a system message carrying the instructions for the model.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User creates a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant creates an assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func (m Message) String() string {
	return fmt.Sprintf("%s: %s", m.Role, m.Content)
}

// UnmarshalJSON implements json.Unmarshaler for Message.
// Both role and content are required, content may be an empty string.
func (m *Message) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	role := gjson.GetBytes(data, "role")
	if !role.Exists() {
		return fmt.Errorf("missing required field 'role'")
	}
	var r Role
	if err := r.UnmarshalText([]byte(role.String())); err != nil {
		return err
	}

	content := gjson.GetBytes(data, "content")
	if !content.Exists() {
		return fmt.Errorf("missing required field 'content'")
	}

	m.Role = r
	m.Content = content.String()
	return nil
}

// Contents concatenates the content of every message in order.
// This is the text a tokenizer measures when checking a request against its budget.
func Contents(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Content)
	}
	return b.String()
}
