package vault

import "sync"

// MockStore implements Store in memory for tests
type MockStore struct {
	records map[string]Record
	mu      sync.RWMutex

	// Error injection
	SaveError   error
	LoadError   error
	ListError   error
	DeleteError error
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{records: make(map[string]Record)}
}

func (m *MockStore) Save(record *Record) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if record == nil || record.Account == "" {
		return ErrInvalidRecord
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.Account] = *record
	return nil
}

func (m *MockStore) Load(account string) (*Record, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[account]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (m *MockStore) List() ([]*Record, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		r := r
		out = append(out, &r)
	}
	return out, nil
}

func (m *MockStore) Delete(account string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[account]; !ok {
		return ErrNotFound
	}
	delete(m.records, account)
	return nil
}

func (m *MockStore) Exists(account string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[account]
	return ok
}

// Count returns the number of stored records
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
