package tracker

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrConflict is returned by CompareAndSwap when the stored set changed since it was loaded.
var ErrConflict = errors.New("baseline changed concurrently")

// Baseline stores the last known active zone set per user.
type Baseline interface {
	Load(ctx context.Context, userID uuid.UUID) (IDSet, error)
	// CompareAndSwap replaces the stored set with next only if it still equals prev.
	CompareAndSwap(ctx context.Context, userID uuid.UUID, prev, next IDSet) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// MemoryBaseline keeps baselines for the lifetime of the process.
type MemoryBaseline struct {
	mu   sync.Mutex
	sets map[uuid.UUID]IDSet
}

func NewMemoryBaseline() *MemoryBaseline {
	return &MemoryBaseline{sets: make(map[uuid.UUID]IDSet)}
}

func (m *MemoryBaseline) Load(_ context.Context, userID uuid.UUID) (IDSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := IDSet{}
	for id := range m.sets[userID] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (m *MemoryBaseline) CompareAndSwap(_ context.Context, userID uuid.UUID, prev, next IDSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.sets[userID].Equal(prev) {
		return ErrConflict
	}
	stored := make(IDSet, len(next))
	for id := range next {
		stored[id] = struct{}{}
	}
	m.sets[userID] = stored
	return nil
}

func (m *MemoryBaseline) Clear(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sets, userID)
	return nil
}
