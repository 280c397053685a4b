package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore persists every record in one JSON array file. Writes go through
// a temp file and rename so a crash never leaves a truncated file.
type FileStore struct {
	path string
	mem  *MemoryStore

	writeMu sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	s := &FileStore{path: path, mem: NewMemoryStore()}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}
	var rows []Record
	if err := json.Unmarshal(b, &rows); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	for _, row := range rows {
		if err := s.mem.Put(context.Background(), row); err != nil {
			continue
		}
	}
	return nil
}

func (s *FileStore) Put(ctx context.Context, rec Record) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.mem.Put(ctx, rec); err != nil {
		return err
	}
	return s.save()
}

func (s *FileStore) Get(ctx context.Context, id string) (Record, error) {
	return s.mem.Get(ctx, id)
}

func (s *FileStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	return s.mem.ListRecent(ctx, limit)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) save() error {
	b, err := json.MarshalIndent(s.mem.snapshot(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".designs-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
