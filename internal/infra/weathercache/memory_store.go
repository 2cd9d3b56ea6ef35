package weathercache

import (
	"context"
	"sync"
	"time"

	"github.com/greennepal/agrihealth/internal/domain/dashboard"
)

// MemoryStore caches the weather snapshot in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	snap    dashboard.Snapshot
	savedAt time.Time
	now     func() time.Time
}

// NewMemoryStore constructs an in-memory snapshot cache.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now}
}

// Get returns the cached snapshot when it is still fresh.
func (s *MemoryStore) Get(_ context.Context) (dashboard.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.savedAt.IsZero() || s.ttl <= 0 {
		return dashboard.Snapshot{}, false, nil
	}
	if s.now().Sub(s.savedAt) > s.ttl {
		return dashboard.Snapshot{}, false, nil
	}
	return s.snap, true, nil
}

// Save stores the snapshot with the configured TTL.
func (s *MemoryStore) Save(_ context.Context, snap dashboard.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.savedAt = s.now()
	return nil
}

var _ dashboard.SnapshotStore = (*MemoryStore)(nil)
