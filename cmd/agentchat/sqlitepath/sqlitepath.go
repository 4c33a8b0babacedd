// Package sqlitepath locates the SQLite conversation database.
package sqlitepath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the database file created in the .agentchat/ directory when no
// existing database is found.
const FileName = "agentchat.db"

// ResolveSQLitePath returns the database path to open. An explicit override
// wins, then AGENTCHAT_SQLITE, then the first existing candidate file, and
// finally FileName inside dotDir.
func ResolveSQLitePath(override, dotDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("AGENTCHAT_SQLITE")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range sqliteCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if dotDir == "" {
		return "", errors.New("could not find agentchat SQLite database; pass --sqlite")
	}
	return filepath.Join(dotDir, FileName), nil
}

func sqliteCandidates() []string {
	candidates := []string{
		FileName,
		filepath.Join(".agentchat", FileName),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append([]string{
			filepath.Join(home, ".agentchat", FileName),
		}, candidates...)
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append([]string{
			filepath.Join(xdgHome, "agentchat", FileName),
		}, candidates...)
	}

	return candidates
}
