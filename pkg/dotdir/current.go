package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	currentFile = "current.json"
)

// CurrentState records the conversation the chat command resumes.
type CurrentState struct {
	// ConversationID is the id of the current conversation in the store.
	ConversationID string `json:"conversation_id"`

	// Agent is the agent the conversation talks to.
	Agent string `json:"agent,omitempty"`

	// SwitchedAt is when the conversation became current.
	SwitchedAt time.Time `json:"switched_at"`
}

// LoadCurrent loads the current conversation state from a target
// .agentchat/current.json. Returns nil, nil if no state exists, in which
// case the chat command starts a new conversation.
// If overrideDir is non-empty, it is used instead of the default location.
func (m *Manager) LoadCurrent(overrideDir string) (*CurrentState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, currentFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading current conversation: %w", err)
	}

	state := &CurrentState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing current conversation: %w", err)
	}
	if state.ConversationID == "" {
		return nil, nil
	}

	return state, nil
}

// SaveCurrent persists the current conversation state to a target
// .agentchat/current.json.
func (m *Manager) SaveCurrent(state *CurrentState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil current conversation state")
	}
	if state.ConversationID == "" {
		return errors.New("current conversation state has no conversation id")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling current conversation: %w", err)
	}

	path := filepath.Join(dir, currentFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing current conversation: %w", err)
	}

	return nil
}

// ClearCurrent removes the current conversation state file so the next chat
// session starts a new conversation.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearCurrent(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, currentFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing current conversation: %w", err)
	}

	return nil
}
