// Package dotdir manages the .agentchat/ and ~/.agentchat directories.
//
// The directory holds the config file, the default SQLite database and the
// current conversation state, which records the conversation the chat
// command resumes.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the agentchat directory.
	dirName = ".agentchat"
)

// Manager resolves the agentchat directory and reads and writes the state
// files kept in it.
type Manager struct{}

// NewManager returns a Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .agentchat/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.agentchat/ dir
//  3. Home ~/.agentchat/ dir
//  4. If none found, attempt to create ~/.agentchat/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating agentchat directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// localDirExists checks whether a .agentchat/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
