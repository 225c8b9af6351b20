// Package workdir locates the per-session working directories of the
// scribe CLI.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RootEnv overrides the default root directory.
const RootEnv = "SCRIBE_HOME"

// Root returns the base directory for all scribe working files:
//
//	$SCRIBE_HOME, or $HOME/Documents/Scribe
func Root() (string, error) {
	if dir := os.Getenv(RootEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "Documents", "Scribe"), nil
}

// DefaultName names a session directory after the current branch, or the
// date when there is none.
func DefaultName(branch string, now time.Time) string {
	if branch != "" {
		return branch
	}
	return now.Format("2006-01-02")
}

// Path returns the full path of the named session directory.
func Path(name string) (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "sessions", name), nil
}

// Prep ensures the named session directory exists and returns its path.
func Prep(name string) (string, error) {
	dir, err := Path(name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create working directory %s: %w", dir, err)
	}

	return dir, nil
}
