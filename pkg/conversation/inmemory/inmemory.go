// Package inmemory provides a conversation store that lives only for the
// life of the process.
package inmemory

import (
	"context"
	"sync"

	"github.com/papercomputeco/agentchat/pkg/chat"
	"github.com/papercomputeco/agentchat/pkg/conversation"
)

// Store implements conversation.Store using an in-memory map.
type Store struct {
	// mu guards the map itself; per-conversation writes are also serialized
	// through locks.
	mu            sync.RWMutex
	conversations map[string]*conversation.Conversation

	locks conversation.Locker
	opts  conversation.Options
}

// NewStore creates an empty in-memory store.
func NewStore(opts ...conversation.Option) *Store {
	return &Store{
		conversations: make(map[string]*conversation.Conversation),
		opts:          conversation.NewOptions(opts...),
	}
}

func (s *Store) Create(_ context.Context, agent, name string) (*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		name = conversation.DefaultName(len(s.conversations) + 1)
	}

	now := s.opts.Now()
	c := &conversation.Conversation{
		ID:        s.opts.NewID(),
		Name:      name,
		Agent:     agent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[c.ID] = c
	return copyOf(c, true), nil
}

func (s *Store) Get(_ context.Context, id string) (*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, conversation.NotFoundError{ID: id}
	}
	return copyOf(c, true), nil
}

func (s *Store) List(_ context.Context) ([]*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*conversation.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		list = append(list, copyOf(c, false))
	}
	conversation.SortByRecent(list)
	return list, nil
}

func (s *Store) Rename(_ context.Context, id, name string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return conversation.NotFoundError{ID: id}
	}
	c.Name = name
	c.UpdatedAt = s.opts.Now()
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return conversation.NotFoundError{ID: id}
	}
	delete(s.conversations, id)
	return nil
}

func (s *Store) UpsertMessage(_ context.Context, id string, msg chat.Message) error {
	if err := conversation.ValidateMessage(msg); err != nil {
		return err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return conversation.NotFoundError{ID: id}
	}

	stored := msg.Clone()
	stored.Streaming = false

	replaced := false
	for i := range c.Messages {
		if c.Messages[i].ID == msg.ID {
			c.Messages[i] = stored
			replaced = true
			break
		}
	}
	if !replaced {
		c.Messages = append(c.Messages, stored)
	}
	c.MessageCount = len(c.Messages)
	c.UpdatedAt = s.opts.Now()
	return nil
}

func (s *Store) DeleteMessage(_ context.Context, id, messageID string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return conversation.NotFoundError{ID: id}
	}

	for i := range c.Messages {
		if c.Messages[i].ID == messageID {
			c.Messages = append(c.Messages[:i:i], c.Messages[i+1:]...)
			c.MessageCount = len(c.Messages)
			c.UpdatedAt = s.opts.Now()
			return nil
		}
	}
	return conversation.NotFoundError{ID: messageID}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func copyOf(c *conversation.Conversation, withMessages bool) *conversation.Conversation {
	out := *c
	out.Messages = nil
	out.MessageCount = len(c.Messages)
	if withMessages {
		out.Messages = make([]chat.Message, len(c.Messages))
		for i, m := range c.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	return &out
}
