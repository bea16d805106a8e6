package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore keeps rooms in a single JSON object file:
//
//	{"kitchen": [1.5, 2.0], "hall": [0, 4.25]}
type JSONStore struct {
	FilePath string

	mu sync.Mutex
}

// NewJSONStore creates a JSON file store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{FilePath: path}
}

// Load implements Store.
func (s *JSONStore) Load(ctx context.Context) (map[string]Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *JSONStore) read() (map[string]Point, error) {
	rooms := make(map[string]Point)
	data, err := os.ReadFile(s.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rooms, nil
		}
		return rooms, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return rooms, nil
	}
	if err := json.Unmarshal(data, &rooms); err != nil {
		return make(map[string]Point), fmt.Errorf("%w: %s: %v", ErrCorrupt, s.FilePath, err)
	}
	return rooms, nil
}

// Save implements Store. The file is rewritten through a temp file and a
// rename so a crash never leaves it half written. A corrupt existing file
// is replaced; any other read failure aborts the save.
func (s *JSONStore) Save(ctx context.Context, name string, p Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms, err := s.read()
	if err != nil {
		if !errors.Is(err, ErrCorrupt) {
			return fmt.Errorf("load before save: %w", err)
		}
		rooms = make(map[string]Point)
	}
	rooms[name] = p

	data, err := json.MarshalIndent(rooms, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.FilePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".rooms-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.FilePath); err != nil {
		return fmt.Errorf("replace %s: %w", s.FilePath, err)
	}
	return nil
}

// Close is a no-op for JSON files.
func (s *JSONStore) Close() error {
	return nil
}

var _ Store = (*JSONStore)(nil)
