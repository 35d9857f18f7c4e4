package ledger

import (
	"context"
	"sync"

	"github.com/mmeshcher/yieldmart/internal/model"
)

// MemoryStore хранит журнал в памяти процесса.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]model.PurchaseLedgerEntry
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]model.PurchaseLedgerEntry)}
}

// Entry возвращает запись адреса.
func (m *MemoryStore) Entry(_ context.Context, addr string) (model.PurchaseLedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.entries[addr], nil
}

// AddEntry прибавляет delta к записи адреса.
func (m *MemoryStore) AddEntry(_ context.Context, addr string, delta model.PurchaseLedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entries[addr]
	e.TotalPurchases += delta.TotalPurchases
	e.TotalSpentPrimary += delta.TotalSpentPrimary
	e.TotalSpentSecondary += delta.TotalSpentSecondary
	e.TotalIncomeEarned += delta.TotalIncomeEarned
	m.entries[addr] = e
	return nil
}
