package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Jar stores named values that expire.
// An expired entry reads as absent.
type Jar interface {
	Get(name string) (string, bool, error)
	Set(name, value string, ttl time.Duration) error
	Remove(name string) error
}

// FileJar keeps each entry in its own JSON file inside Dir.
type FileJar struct {
	Dir string
	now func() time.Time
}

type jarEntry struct {
	Value   string    `json:"value"`
	Expires time.Time `json:"expires"`
}

// NewFileJar creates a jar rooted at dir.
func NewFileJar(dir string) *FileJar {
	return &FileJar{Dir: dir, now: time.Now}
}

func (j *FileJar) path(name string) string {
	return filepath.Join(j.Dir, name+".json")
}

// Get returns the value of an unexpired entry.
// Expired or unreadable entries are deleted and reported as absent.
func (j *FileJar) Get(name string) (string, bool, error) {
	data, err := os.ReadFile(j.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", name, err)
	}

	var entry jarEntry
	if err := json.Unmarshal(data, &entry); err != nil || !j.now().Before(entry.Expires) {
		if rmErr := j.Remove(name); rmErr != nil {
			return "", false, rmErr
		}
		return "", false, nil
	}
	return entry.Value, true, nil
}

// Set writes an entry that expires after ttl. The file is written with mode 0600.
func (j *FileJar) Set(name, value string, ttl time.Duration) error {
	if err := os.MkdirAll(j.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(jarEntry{Value: value, Expires: j.now().Add(ttl)}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(j.path(name), data, 0600)
}

// Remove deletes an entry. Removing a missing entry is not an error.
func (j *FileJar) Remove(name string) error {
	err := os.Remove(j.path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}
