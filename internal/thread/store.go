package thread

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config holds thread-log storage configuration.
type Config struct {
	Dir string // Directory holding <id>.jsonl files; empty uses the default.
}

// GetConfigHome returns the zdx config home directory.
// ZDX_HOME overrides the default XDG location.
func GetConfigHome() (string, error) {
	if home := os.Getenv("ZDX_HOME"); home != "" {
		return home, nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "zdx"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "zdx"), nil
}

// GetThreadsDir returns the directory holding per-thread JSONL logs.
func GetThreadsDir() (string, error) {
	home, err := GetConfigHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "threads"), nil
}

// resolveDir returns the effective threads directory for a Config,
// falling back to the XDG default when unset.
func (c Config) resolveDir() (string, error) {
	if c.Dir != "" {
		return c.Dir, nil
	}
	return GetThreadsDir()
}

// pathFor returns the on-disk path for a thread id.
func (c Config) pathFor(id string) (string, error) {
	dir, err := c.resolveDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, id+".jsonl"), nil
}
