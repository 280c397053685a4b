package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore keeps encoded records in a map, so callers never share
// packet memory with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, rec Record) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	rec.ID = strings.TrimSpace(rec.ID)
	if err := validateRecord(rec); err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.ID] = raw
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	if s == nil {
		return Record{}, fmt.Errorf("store is nil")
	}
	s.mu.RLock()
	raw, ok := s.data[strings.TrimSpace(id)]
	s.mu.RUnlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	return decodeRecord(raw)
}

func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]Record, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	s.mu.RLock()
	rows := make([][]byte, 0, len(s.data))
	for _, raw := range s.data {
		rows = append(rows, raw)
	}
	s.mu.RUnlock()

	out := make([]Record, 0, len(rows))
	for _, raw := range rows {
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return sortRecent(out, normalizeLimit(limit)), nil
}

func (s *MemoryStore) Close() error { return nil }

// snapshot returns every record, used by the file backend when persisting.
func (s *MemoryStore) snapshot() []json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]json.RawMessage, 0, len(s.data))
	for _, raw := range s.data {
		out = append(out, json.RawMessage(raw))
	}
	return out
}

func decodeRecord(raw []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
