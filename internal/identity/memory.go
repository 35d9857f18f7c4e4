package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/mmeshcher/yieldmart/internal/model"
)

// MemoryStore хранит участников и nullifier в памяти процесса.
type MemoryStore struct {
	mu             sync.RWMutex
	claimants      map[string]model.Claimant
	usedNullifiers map[string]struct{}
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		claimants:      make(map[string]model.Claimant),
		usedNullifiers: make(map[string]struct{}),
	}
}

// Claimant возвращает участника по адресу.
func (m *MemoryStore) Claimant(_ context.Context, addr string) (model.Claimant, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.claimants[addr]
	return c, ok, nil
}

// IsNullifierUsed сообщает, помечен ли nullifier.
func (m *MemoryStore) IsNullifierUsed(_ context.Context, nullifier string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.usedNullifiers[nullifier]
	return ok, nil
}

// SaveClaim помечает nullifier и сохраняет участника.
func (m *MemoryStore) SaveClaim(_ context.Context, nullifier string, c model.Claimant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.usedNullifiers[nullifier]; ok {
		return fmt.Errorf("%w: %s", model.ErrDuplicateProof, nullifier)
	}
	m.usedNullifiers[nullifier] = struct{}{}
	m.claimants[c.Address] = c
	return nil
}
