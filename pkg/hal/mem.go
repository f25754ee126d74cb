package hal

import (
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store. It is the reference backend for tests and
// for ephemeral sessions.
type MemStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string][]byte)}
}

func (s *MemStore) Init() error { return nil }

func (s *MemStore) Load(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	// Copy so that callers cannot alias the stored slice.
	return append([]byte(nil), data...), nil
}

func (s *MemStore) Save(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]byte(nil), data...)
	return nil
}

func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *MemStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.records {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string][]byte)
	return nil
}

func (s *MemStore) Close() error { return nil }
