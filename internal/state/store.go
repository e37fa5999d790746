// Package state persists the long-polling offset between runs.
package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Store loads and saves the next update offset. A store with nothing saved
// loads as 0.
type Store interface {
	Load(ctx context.Context) (int, error)
	Save(ctx context.Context, offset int) error
}

// FileStore keeps the offset as decimal text in a single file.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore writing to dir/name.
func NewFileStore(dir, name string) *FileStore {
	return &FileStore{Path: filepath.Join(dir, name)}
}

func (s *FileStore) Load(_ context.Context) (int, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read state: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse state %s: %w", s.Path, err)
	}
	return offset, nil
}

func (s *FileStore) Save(_ context.Context, offset int) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	// Write then rename so a crash never leaves a truncated file.
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(offset)), 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
