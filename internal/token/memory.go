// Package token содержит реализацию реестра взаимозаменяемых токенов в памяти.
package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/mmeshcher/yieldmart/internal/model"
)

// MemoryLedger хранит балансы в памяти процесса.
type MemoryLedger struct {
	mu       sync.RWMutex
	balances map[string]int64
}

// NewMemoryLedger создаёт пустой реестр.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]int64)}
}

// Mint зачисляет выпуск на адрес.
func (l *MemoryLedger) Mint(_ context.Context, to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: mint %d", model.ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := model.AddChecked(l.balances[to], amount)
	if err != nil {
		return fmt.Errorf("mint to %s: %w", to, err)
	}
	l.balances[to] = next
	return nil
}

// Transfer переводит сумму между адресами.
func (l *MemoryLedger) Transfer(_ context.Context, from, to string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: transfer %d", model.ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", model.ErrInsufficientFunds, from, l.balances[from], amount)
	}
	if from == to {
		return nil
	}
	next, err := model.AddChecked(l.balances[to], amount)
	if err != nil {
		return fmt.Errorf("transfer to %s: %w", to, err)
	}
	l.balances[from] -= amount
	l.balances[to] = next
	return nil
}

// BalanceOf возвращает баланс адреса.
func (l *MemoryLedger) BalanceOf(_ context.Context, addr string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.balances[addr], nil
}
