package session

import "sync"

// MemoryStore is a TokenStore held in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[TokenKey]
	return v, ok
}

func (m *MemoryStore) Set(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[TokenKey] = token
}

func (m *MemoryStore) Delete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, TokenKey)
}
