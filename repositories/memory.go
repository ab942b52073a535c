package repositories

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"folio-chat/domain"
	"folio-chat/errors"
)

// MemoryBackend keeps documents in process. Nothing survives a restart.
type MemoryBackend struct {
	mu          sync.RWMutex
	collections map[string][]domain.Document
	closed      bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{collections: make(map[string][]domain.Document)}
}

func (m *MemoryBackend) Put(_ context.Context, collection string, doc domain.Document, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.ErrStoreClosed
	}
	for _, existing := range m.collections[collection] {
		if existing.ID == doc.ID {
			return fmt.Errorf("document %s already exists", doc.ID)
		}
	}
	m.collections[collection] = append(m.collections[collection], domain.Document{ID: doc.ID, Fields: maps.Clone(doc.Fields)})
	return nil
}

func (m *MemoryBackend) Scan(_ context.Context, collection string) ([]domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errors.ErrStoreClosed
	}
	docs := make([]domain.Document, 0, len(m.collections[collection]))
	for _, doc := range m.collections[collection] {
		docs = append(docs, domain.Document{ID: doc.ID, Fields: maps.Clone(doc.Fields)})
	}
	return docs, nil
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
