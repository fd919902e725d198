package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps reservations in process memory. Suitable for tests
// and single-instance development setups.
type MemoryStore struct {
	mu      sync.Mutex
	clock   func() time.Time
	records map[string]Record
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clock:   time.Now,
		records: make(map[string]Record),
	}
}

func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string, ttl time.Duration) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	s.pruneLocked(now)

	if existing, found := s.records[key]; found && existing.ExpiresAt.After(now) {
		if existing.Fingerprint != fingerprint {
			return Record{}, false, ErrFingerprintMismatch
		}
		if existing.Completed {
			return existing, false, nil
		}
		return Record{}, false, ErrInFlight
	}

	record := Record{
		Key:         key,
		Fingerprint: fingerprint,
		ExpiresAt:   now.Add(ttl),
	}
	s.records[key] = record
	return record, true, nil
}

// pruneLocked drops expired records so the map does not grow without
// bound. Callers hold the mutex.
func (s *MemoryStore) pruneLocked(now time.Time) {
	for key, record := range s.records {
		if !record.ExpiresAt.After(now) {
			delete(s.records, key)
		}
	}
}

func (s *MemoryStore) Complete(_ context.Context, key, orderID, orderNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, found := s.records[key]
	if !found {
		return nil
	}
	record.OrderID = orderID
	record.OrderNumber = orderNumber
	record.Completed = true
	s.records[key] = record
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, found := s.records[key]; found && !record.Completed {
		delete(s.records, key)
	}
	return nil
}
