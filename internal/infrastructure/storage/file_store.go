package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStore implements the KeyValueStore port as a single JSON document on
// disk. Writes go through a temp file and rename so a process kill never
// leaves a half-written store behind.
type FileStore struct {
	path string
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// NewFileStore opens (or creates) the store at path. A corrupt or unreadable
// file degrades to an empty store rather than an error; the previous content
// is unrecoverable either way and the caller must keep working.
func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &FileStore{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		// Treat corruption as an empty store.
		s.data = make(map[string]json.RawMessage)
	}
	return s, nil
}

// DefaultStorePath returns the store location under the user config dir.
func DefaultStorePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lexiscan", "store.json"), nil
}

// Get returns the stored bytes for key.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	if unwrapped, wrapped := unwrapNonJSON(v); wrapped {
		return unwrapped, true, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set durably stores value under key. Values that are not valid JSON are
// wrapped in a JSON string so the store document always stays marshalable;
// Get unwraps them transparently.
func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var v json.RawMessage
	if json.Valid(value) {
		v = make(json.RawMessage, len(value))
		copy(v, value)
	} else {
		wrapped, err := json.Marshal(string(value))
		if err != nil {
			return fmt.Errorf("failed to encode value: %w", err)
		}
		v = wrapped
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = v
	return s.flushLocked()
}

// unwrapNonJSON undoes the JSON-string wrapping Set applies to non-JSON
// values. A stored string whose content is itself valid JSON is a regular
// value and is returned as stored.
func unwrapNonJSON(v json.RawMessage) ([]byte, bool) {
	if len(v) == 0 || v[0] != '"' {
		return nil, false
	}
	var content string
	if err := json.Unmarshal(v, &content); err != nil {
		return nil, false
	}
	if json.Valid([]byte(content)) {
		return nil, false
	}
	return []byte(content), true
}

// Delete removes key. Missing keys are ignored.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flushLocked()
}

// Keys lists stored keys with the given prefix, sorted.
func (s *FileStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FileStore) flushLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}
