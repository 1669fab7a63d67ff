package auth

import (
	"sync"
)

// MockStore is an in-memory CredentialStore with error injection
type MockStore struct {
	sets map[string]*CookieSet
	mu   sync.RWMutex

	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

// NewMockStore creates a new mock credential store
func NewMockStore() *MockStore {
	return &MockStore{sets: make(map[string]*CookieSet)}
}

// Store saves a copy of the cookie set
func (m *MockStore) Store(set *CookieSet) error {
	if m.StoreError != nil {
		return m.StoreError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if set == nil || set.Name == "" {
		return ErrInvalidCredentials
	}

	c := *set
	m.sets[set.Name] = &c
	return nil
}

// Retrieve returns a copy of the named cookie set
func (m *MockStore) Retrieve(name string) (*CookieSet, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if name == "" {
		return nil, ErrInvalidCredentials
	}

	set, exists := m.sets[name]
	if !exists {
		return nil, ErrCredentialsNotFound
	}

	c := *set
	return &c, nil
}

// List returns copies of all cookie sets
func (m *MockStore) List() ([]*CookieSet, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var sets []*CookieSet
	for _, set := range m.sets {
		c := *set
		sets = append(sets, &c)
	}
	return sets, nil
}

// Delete removes a cookie set
func (m *MockStore) Delete(name string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" {
		return ErrInvalidCredentials
	}
	if _, exists := m.sets[name]; !exists {
		return ErrCredentialsNotFound
	}

	delete(m.sets, name)
	return nil
}

// Exists checks if a cookie set is stored
func (m *MockStore) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.sets[name]
	return exists
}

// Count returns the number of stored sets
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sets)
}

// NewMockManager creates a Manager with a single mock store
func NewMockManager() (*Manager, *MockStore) {
	mockStore := NewMockStore()
	return &Manager{stores: []CredentialStore{mockStore}}, mockStore
}

// NewManagerWithStores creates a Manager over the given stores in order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}
