// Package conversation stores chat conversations and their messages.
package conversation

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/agentchat/pkg/chat"
)

// Conversation is one thread of messages with an agent.
type Conversation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Agent     string    `json:"agent"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"lastUpdated"`

	// Messages is populated by Get and left nil by List.
	Messages     []chat.Message `json:"messages,omitempty"`
	MessageCount int            `json:"messageCount"`
}

// LastMessage returns the newest message with the given role.
func (c *Conversation) LastMessage(role chat.Role) (chat.Message, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == role {
			return c.Messages[i], true
		}
	}
	return chat.Message{}, false
}

// Store defines the interface for persisting conversations in a storage
// backend. Writes to one conversation are serialized; writes to different
// conversations may proceed concurrently.
type Store interface {
	// Create starts a new conversation with agent. An empty name defaults to
	// "Conversation N", where N is one more than the number of stored
	// conversations.
	Create(ctx context.Context, agent, name string) (*Conversation, error)

	// Get returns a conversation with its messages in order.
	Get(ctx context.Context, id string) (*Conversation, error)

	// List returns every conversation without messages, most recently
	// updated first.
	List(ctx context.Context) ([]*Conversation, error)

	// Rename changes a conversation's name.
	Rename(ctx context.Context, id, name string) error

	// Delete removes a conversation and its messages.
	Delete(ctx context.Context, id string) error

	// UpsertMessage replaces the message with msg.ID in place, or appends msg
	// when the conversation has no such message. It bumps UpdatedAt.
	UpsertMessage(ctx context.Context, id string, msg chat.Message) error

	// DeleteMessage removes one message from a conversation.
	DeleteMessage(ctx context.Context, id, messageID string) error

	// Close releases any resources held by the store.
	Close() error
}

// DefaultName is the name given to the n-th conversation (1-based).
func DefaultName(n int) string {
	return fmt.Sprintf("Conversation %d", n)
}

// SortByRecent orders conversations most recently updated first.
func SortByRecent(list []*Conversation) {
	slices.SortStableFunc(list, func(a, b *Conversation) int {
		return cmp.Or(
			b.UpdatedAt.Compare(a.UpdatedAt),
			b.CreatedAt.Compare(a.CreatedAt),
			strings.Compare(a.ID, b.ID),
		)
	})
}

// Options holds settings shared by every store driver.
type Options struct {
	Now   func() time.Time
	NewID func() string
}

// Option configures a store driver.
type Option func(*Options)

// WithClock sets the clock used for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

// WithIDGenerator sets the generator for conversation ids.
func WithIDGenerator(newID func() string) Option {
	return func(o *Options) {
		o.NewID = newID
	}
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) Options {
	o := Options{
		Now:   time.Now,
		NewID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ValidateMessage checks that msg can be stored.
func ValidateMessage(msg chat.Message) error {
	if msg.ID == "" {
		return fmt.Errorf("message has no id")
	}
	if !msg.Role.Valid() {
		return fmt.Errorf("message %s has invalid role %q", msg.ID, msg.Role)
	}
	return nil
}
