package plan

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store, CustomerIndex and ProcessedEventStore.
// It backs single-process deployments and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	records   map[string]string
	customers map[string]string
	events    map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:   make(map[string]string),
		customers: make(map[string]string),
		events:    make(map[string]struct{}),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return "", ErrRecordNotFound
	}
	return v, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = value
	return nil
}

func (s *MemoryStore) SetVersioned(ctx context.Context, key, value string, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.records[key]
	if !exists {
		if expectedVersion != 0 {
			return ErrVersionConflict
		}
		s.records[key] = value
		return nil
	}

	if storedVersion(current) != expectedVersion {
		return ErrVersionConflict
	}
	s.records[key] = value
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) LinkCustomer(ctx context.Context, customerID, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[customerID] = tenantID
	return nil
}

func (s *MemoryStore) TenantByCustomer(ctx context.Context, customerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenantID, ok := s.customers[customerID]
	if !ok {
		return "", ErrRecordNotFound
	}
	return tenantID, nil
}

func (s *MemoryStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.events[eventID]; seen {
		return false, nil
	}
	s.events[eventID] = struct{}{}
	return true, nil
}

func (s *MemoryStore) Forget(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, eventID)
	return nil
}

// storedVersion extracts the version field from a JSON-encoded record.
// Unparseable values report -1, a version no caller can expect, so a
// corrupt slot fails every conditional write until it is repaired
// through the load path.
func storedVersion(raw string) int64 {
	var v struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return -1
	}
	return v.Version
}
