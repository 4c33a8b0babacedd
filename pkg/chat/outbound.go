package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OutboundMessage is the body posted to the agent for one user turn.
type OutboundMessage struct {
	Role          Role   `json:"role"`
	Content       string `json:"content"`
	FormSubmitted bool   `json:"formSubmitted"`
}

// LegacyEnvelope wraps an outbound message for the legacy chat endpoint,
// which expects {"message": {...}} and knows nothing about form submissions.
type LegacyEnvelope struct {
	Message LegacyMessage `json:"message"`
}

// LegacyMessage is the legacy endpoint's message shape.
type LegacyMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage builds the outbound message for typed text.
func NewUserMessage(text string) OutboundMessage {
	return OutboundMessage{Role: RoleUser, Content: text}
}

// NewFormSubmission builds the outbound message for a submitted form. The
// values are sent as indented JSON.
func NewFormSubmission(values map[string]any) (OutboundMessage, error) {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return OutboundMessage{}, fmt.Errorf("encoding form submission: %w", err)
	}

	return OutboundMessage{
		Role:          RoleUser,
		Content:       string(data),
		FormSubmitted: true,
	}, nil
}

// Legacy converts m to the legacy envelope.
func (m OutboundMessage) Legacy() LegacyEnvelope {
	return LegacyEnvelope{Message: LegacyMessage{Role: m.Role, Content: m.Content}}
}

// Echo returns the local copy of m stored in the conversation. Form
// submissions are shown as a fenced JSON block.
func (m OutboundMessage) Echo(now time.Time) Message {
	content := m.Content
	if m.FormSubmitted {
		content = strings.Join([]string{"```json", m.Content, "```"}, "\n")
	}

	return Message{
		ID:        uuid.NewString(),
		Role:      m.Role,
		Content:   content,
		Timestamp: now.UnixMilli(),
	}
}

// ErrorMessage is the assistant message shown in place of a response when a
// stream fails.
func ErrorMessage(err error, now time.Time) Message {
	text := "Unknown error occurred"
	if err != nil && err.Error() != "" {
		text = err.Error()
	}

	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   "Error: " + text,
		Timestamp: now.UnixMilli(),
	}
}

// Resend rebuilds the outbound message that produced the echo m, undoing the
// fenced block Echo adds around form submissions.
func Resend(m Message) OutboundMessage {
	content := m.Content
	if body, ok := strings.CutPrefix(content, "```json\n"); ok {
		if body, ok = strings.CutSuffix(body, "\n```"); ok {
			return OutboundMessage{Role: RoleUser, Content: body, FormSubmitted: true}
		}
	}
	return OutboundMessage{Role: RoleUser, Content: content}
}
