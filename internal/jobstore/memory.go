package jobstore

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryBackend keeps records in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string][]byte)}
}

// Load returns a copy of the stored record.
func (m *MemoryBackend) Load(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	data, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save stores a snapshot of rec.
func (m *MemoryBackend) Save(_ context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.records[rec.ID] = data
	m.mu.Unlock()
	return nil
}

// Close is a no-op.
func (m *MemoryBackend) Close() error {
	return nil
}
