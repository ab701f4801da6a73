package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

const sessionPrefix = "session-"

// ResetDirectory removes dir and everything under it, then recreates it empty
func ResetDirectory(dir string) error {
	if err := RemoveDirectory(dir); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// RemoveDirectory deletes dir. A missing directory is not an error.
func RemoveDirectory(dir string) error {
	if dir == "" || dir == string(filepath.Separator) {
		return fmt.Errorf("refusing to remove directory %q", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove directory %s: %w", dir, err)
	}
	return nil
}

// NewSessionDirectory creates a fresh working directory for a session
// under base. Every call gets its own directory, so a session recreated
// under the same uid never shares one with its predecessor.
func NewSessionDirectory(base, uid string) (string, error) {
	if uid == "" || strings.ContainsAny(uid, `/\`) || uid == "." || uid == ".." {
		return "", fmt.Errorf("invalid session id %q", uid)
	}
	dir := filepath.Join(base, sessionPrefix+uid+"-"+ulid.Make().String())
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}
	return dir, nil
}

// ListSessionDirectories returns the session directories found under base
func ListSessionDirectories(base string) ([]string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), sessionPrefix) {
			dirs = append(dirs, filepath.Join(base, entry.Name()))
		}
	}
	return dirs, nil
}
