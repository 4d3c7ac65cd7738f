package mem

import (
	"sync"
	"time"
)

// FinalizeLockStore marks plans with an in-flight finalize so mutation
// endpoints can reject edits for the duration. Entries carry a TTL as a
// safety net in case a crash skips Release.
type FinalizeLockStore interface {
	// Acquire returns false if the plan is already locked.
	Acquire(planID string, ttl time.Duration) bool
	Release(planID string)
	Held(planID string) bool
}

type FinalizeLocks struct {
	mu   sync.Mutex
	data map[string]time.Time
}

func NewFinalizeLocks() *FinalizeLocks {
	return &FinalizeLocks{
		data: make(map[string]time.Time),
	}
}

func (s *FinalizeLocks) Acquire(planID string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expires, ok := s.data[planID]; ok && time.Now().Before(expires) {
		return false
	}
	s.data[planID] = time.Now().Add(ttl)
	return true
}

func (s *FinalizeLocks) Release(planID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, planID)
}

func (s *FinalizeLocks) Held(planID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expires, ok := s.data[planID]
	if !ok {
		return false
	}
	if time.Now().After(expires) {
		delete(s.data, planID) // cleanup expired
		return false
	}
	return true
}
