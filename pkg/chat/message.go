// Package chat holds the message types exchanged between the chat UI, the
// stream decoder and the conversation store.
package chat

import (
	"time"

	"github.com/papercomputeco/agentchat/pkg/formschema"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one rendered chat message. While a response streams the same
// message id is delivered repeatedly as successive snapshots with Streaming
// set; the final delivery has Streaming unset.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"chatContent"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
	Streaming bool   `json:"isStreaming,omitempty"`

	FormSchema formschema.Schema `json:"formSchema,omitempty"`
	FormTitle  string            `json:"formTitle,omitempty"`
}

// Time returns the message timestamp as a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// HasForm reports whether the message asks the user to fill in a form.
func (m Message) HasForm() bool {
	return len(m.FormSchema) > 0
}

// Clone returns a copy of m that shares no mutable state with it.
func (m Message) Clone() Message {
	m.FormSchema = m.FormSchema.Clone()
	return m
}
