package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every key's settings in one JSON object on disk, the
// way a browser keeps local storage.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load(ctx context.Context, key string) (Settings, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.read()
	if err != nil {
		return Settings{}, false, err
	}
	s, ok := all[key]
	return s, ok, nil
}

func (f *FileStore) Save(ctx context.Context, key string, s Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.read()
	if err != nil {
		// Start over rather than refuse to save forever.
		all = make(map[string]Settings)
	}
	all[key] = s

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating preferences directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".preferences-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing preferences file: %w", err)
	}
	return nil
}

func (f *FileStore) read() (map[string]Settings, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]Settings), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading preferences: %w", err)
	}

	all := make(map[string]Settings)
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", f.path, err)
	}
	return all, nil
}
