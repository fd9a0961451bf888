package session

import (
	"context"
	"sync"
	"time"

	"storefront/internal/models"
)

// MemoryStore is an in-process Store used in tests and as a fallback when
// no external store is configured.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	items     []models.CartItem
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory session store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

func (m *MemoryStore) Get(_ context.Context, sid string) ([]models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[sid]
	if !ok || time.Now().After(e.expiresAt) {
		delete(m.entries, sid)
		return nil, nil
	}

	items := make([]models.CartItem, len(e.items))
	copy(items, e.items)
	return items, nil
}

func (m *MemoryStore) Set(_ context.Context, sid string, items []models.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]models.CartItem, len(items))
	copy(stored, items)
	m.entries[sid] = memoryEntry{items: stored, expiresAt: time.Now().Add(m.ttl)}

	m.sweepLocked()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sid)
	return nil
}

// sweepLocked drops expired entries; called with the lock held
func (m *MemoryStore) sweepLocked() {
	now := time.Now()
	for sid, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, sid)
		}
	}
}
