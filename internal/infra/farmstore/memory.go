package farmstore

import (
	"context"
	"sync"

	"github.com/greennepal/agrihealth/internal/domain/history"
	"github.com/greennepal/agrihealth/internal/domain/tasks"
)

// MemoryTaskStore keeps task collections in process memory. It backs guest
// sessions and serves as the optimistic fallback when the document store is
// unreachable.
type MemoryTaskStore struct {
	mu   sync.RWMutex
	data map[string][]tasks.Task
	subs map[string]map[int]chan []tasks.Task
	next int
}

// NewMemoryTaskStore creates an empty in-memory task store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		data: make(map[string][]tasks.Task),
		subs: make(map[string]map[int]chan []tasks.Task),
	}
}

var _ tasks.Repository = (*MemoryTaskStore)(nil)

func (m *MemoryTaskStore) Add(_ context.Context, owner string, task tasks.Task) error {
	m.mu.Lock()
	m.data[owner] = append(m.data[owner], task)
	snapshot := m.snapshotLocked(owner)
	m.mu.Unlock()
	m.publish(owner, snapshot)
	return nil
}

func (m *MemoryTaskStore) Get(_ context.Context, owner, id string) (tasks.Task, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.data[owner] {
		if t.ID == id {
			return t, true, nil
		}
	}
	return tasks.Task{}, false, nil
}

func (m *MemoryTaskStore) SetCompleted(_ context.Context, owner, id string, completed bool) error {
	m.mu.Lock()
	for i, t := range m.data[owner] {
		if t.ID == id {
			t.Completed = completed
			m.data[owner][i] = t
			snapshot := m.snapshotLocked(owner)
			m.mu.Unlock()
			m.publish(owner, snapshot)
			return nil
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryTaskStore) Delete(_ context.Context, owner, id string) error {
	m.mu.Lock()
	list := m.data[owner]
	for i, t := range list {
		if t.ID == id {
			m.data[owner] = append(list[:i:i], list[i+1:]...)
			snapshot := m.snapshotLocked(owner)
			m.mu.Unlock()
			m.publish(owner, snapshot)
			return nil
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryTaskStore) List(_ context.Context, owner string) ([]tasks.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(owner), nil
}

func (m *MemoryTaskStore) Watch(ctx context.Context, owner string) (<-chan []tasks.Task, func(), error) {
	ch := make(chan []tasks.Task, 8)

	m.mu.Lock()
	if m.subs[owner] == nil {
		m.subs[owner] = make(map[int]chan []tasks.Task)
	}
	id := m.next
	m.next++
	m.subs[owner][id] = ch
	m.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[owner], id)
			m.mu.Unlock()
			close(ch)
		})
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ch, stop, nil
}

func (m *MemoryTaskStore) snapshotLocked(owner string) []tasks.Task {
	out := make([]tasks.Task, len(m.data[owner]))
	copy(out, m.data[owner])
	return out
}

func (m *MemoryTaskStore) publish(owner string, snapshot []tasks.Task) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subs[owner] {
		select {
		case ch <- snapshot:
		default:
			// slow subscriber, drop the intermediate snapshot
		}
	}
}

// MemoryScanStore keeps saved scan records in process memory.
type MemoryScanStore struct {
	mu   sync.RWMutex
	data map[string][]history.Record
}

// NewMemoryScanStore creates an empty in-memory scan store.
func NewMemoryScanStore() *MemoryScanStore {
	return &MemoryScanStore{data: make(map[string][]history.Record)}
}

var _ history.Repository = (*MemoryScanStore)(nil)

func (m *MemoryScanStore) Add(_ context.Context, owner string, record history.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[owner] = append(m.data[owner], record)
	return nil
}

func (m *MemoryScanStore) Delete(_ context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.data[owner]
	for i, r := range list {
		if r.ID == id {
			m.data[owner] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryScanStore) List(_ context.Context, owner string) ([]history.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]history.Record, len(m.data[owner]))
	copy(out, m.data[owner])
	return out, nil
}
