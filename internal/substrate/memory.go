package substrate

import (
	"context"
	"strings"
	"sync"
)

// memorySubstrate is a map-backed [Substrate] used for ":memory:" DSNs and
// tests. It honours the same contract as the SQLite implementation.
type memorySubstrate struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemorySubstrate returns an empty in-memory [Substrate].
func NewMemorySubstrate() Substrate {
	return &memorySubstrate{entries: make(map[string]string)}
}

func (m *memorySubstrate) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (m *memorySubstrate) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = value
	return nil
}

func (m *memorySubstrate) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

func (m *memorySubstrate) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
