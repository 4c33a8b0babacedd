// Package eventstream publishes an event for every assistant message a chat
// session finalizes.
package eventstream

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/agentchat/pkg/chat"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMessageFinalized is emitted after a streamed response ends,
	// successfully or not.
	EventTypeMessageFinalized = "agentchat.message.finalized"
)

// MessageFinalizedEvent is a transport-neutral event payload for one
// finalized assistant message.
type MessageFinalizedEvent struct {
	SchemaVersion  int          `json:"schema_version"`
	EventType      string       `json:"event_type"`
	EventID        string       `json:"event_id"`
	EmittedAt      time.Time    `json:"emitted_at"`
	Agent          string       `json:"agent"`
	ConversationID string       `json:"conversation_id"`
	Protocol       string       `json:"protocol"`
	Message        chat.Message `json:"message"`
	Warnings       []string     `json:"warnings,omitempty"`

	// Error is set when the session failed; Message is then the rendered
	// error message.
	Error string `json:"error,omitempty"`
}

// MessageEventInput carries what a caller knows when a session ends.
type MessageEventInput struct {
	Agent          string
	ConversationID string
	Protocol       string
	Message        chat.Message
	Warnings       []error
	Err            error
}

// NewMessageFinalizedEvent builds the event for a finished session.
func NewMessageFinalizedEvent(in MessageEventInput, now time.Time) *MessageFinalizedEvent {
	event := &MessageFinalizedEvent{
		SchemaVersion:  SchemaVersionV1,
		EventType:      EventTypeMessageFinalized,
		EventID:        uuid.NewString(),
		EmittedAt:      now.UTC(),
		Agent:          in.Agent,
		ConversationID: in.ConversationID,
		Protocol:       in.Protocol,
		Message:        in.Message.Clone(),
	}
	for _, w := range in.Warnings {
		if w != nil {
			event.Warnings = append(event.Warnings, w.Error())
		}
	}
	if in.Err != nil {
		event.Error = in.Err.Error()
	}
	return event
}

// Validate checks the fields every backend relies on.
func (e *MessageFinalizedEvent) Validate() error {
	if e == nil {
		return ErrNilMessageEvent
	}
	if e.EventID == "" {
		return errors.New("event has no id")
	}
	if e.ConversationID == "" {
		return errors.New("event has no conversation id")
	}
	return nil
}
