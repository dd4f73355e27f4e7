package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStore keeps each slot as a JSON object in <dir>/<slot>.json
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a file-based store, creating dir if needed
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("save directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) Get(ctx context.Context, slot, key string) (string, bool, error) {
	if err := ValidateSlot(slot); err != nil {
		return "", false, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := fs.readSlot(slot)
	if err != nil {
		return "", false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

func (fs *FileStore) Put(ctx context.Context, slot, key, value string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := fs.readSlot(slot)
	if err != nil {
		return err
	}
	entries[key] = value

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal slot %s: %w", slot, err)
	}

	// write to a temp file, then rename over the slot
	tmp, err := os.CreateTemp(fs.dir, slot+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write slot %s: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write slot %s: %w", slot, err)
	}
	if err := os.Rename(tmp.Name(), fs.getFilePath(slot)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write slot %s: %w", slot, err)
	}
	return nil
}

func (fs *FileStore) DeleteSlot(ctx context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.getFilePath(slot)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove slot file: %w", err)
	}
	return nil
}

// ListSlots returns the slot names found in the directory
func (fs *FileStore) ListSlots(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read save directory: %w", err)
	}

	var slots []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			slots = append(slots, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Strings(slots)
	return slots, nil
}

func (fs *FileStore) Close() error {
	return nil
}

// readSlot loads a slot file; a missing file is an empty slot
func (fs *FileStore) readSlot(slot string) (map[string]string, error) {
	data, err := os.ReadFile(fs.getFilePath(slot))
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot file: %w", err)
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal slot %s: %w", slot, err)
	}
	return entries, nil
}

func (fs *FileStore) getFilePath(slot string) string {
	return filepath.Join(fs.dir, fmt.Sprintf("%s.json", slot))
}
