package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	errs "postharvest/pkg/errors"
)

// Cursor persists the pagination cursor as a single opaque token
type Cursor struct {
	path string
}

// NewCursor creates a cursor file handle at path
func NewCursor(path string) (*Cursor, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cursor directory: %w", err)
		}
	}
	return &Cursor{path: path}, nil
}

// Path returns the cursor file location
func (c *Cursor) Path() string {
	return c.path
}

// Load returns the persisted token, or "" if no run has saved one yet
func (c *Cursor) Load() (string, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read cursor file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save replaces the persisted token atomically
func (c *Cursor) Save(token string) error {
	tempPath := c.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeIO, err, "create temporary cursor file")
	}

	if _, err := file.WriteString(token); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypeIO, err, "write cursor")
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypeIO, err, "sync cursor file")
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypeIO, err, "close cursor file")
	}

	if err := os.Rename(tempPath, c.path); err != nil {
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypeIO, err, "replace cursor file")
	}

	return nil
}

// Clear removes the persisted token so the next run starts from the newest post
func (c *Cursor) Clear() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cursor: %w", err)
	}
	return nil
}

// Older reports whether candidate lies further back in the timeline than
// current. Ids are decimal snowflakes, so a longer id is newer and equal-length
// ids compare lexically. Anything is older than an empty cursor.
func Older(candidate, current string) bool {
	if candidate == "" {
		return false
	}
	if current == "" {
		return true
	}
	if len(candidate) != len(current) {
		return len(candidate) < len(current)
	}
	return candidate < current
}
