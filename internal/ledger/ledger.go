// Package ledger ведёт накопительный журнал покупок и доходов по адресам.
// Значения журнала только растут.
package ledger

import (
	"context"
	"fmt"

	"github.com/mmeshcher/yieldmart/internal/authz"
	"github.com/mmeshcher/yieldmart/internal/model"
)

// Authorizer проверяет право записи в журнал.
type Authorizer interface {
	Check(res authz.Resource, addr string) error
}

// Store хранит записи журнала. AddEntry прибавляет delta к записи адреса.
type Store interface {
	Entry(ctx context.Context, addr string) (model.PurchaseLedgerEntry, error)
	AddEntry(ctx context.Context, addr string, delta model.PurchaseLedgerEntry) error
}

// PurchaseLedger проверяет права и значения перед записью в Store.
type PurchaseLedger struct {
	auth  Authorizer
	store Store
}

// New создаёт журнал поверх store.
func New(auth Authorizer, store Store) *PurchaseLedger {
	return &PurchaseLedger{
		auth:  auth,
		store: store,
	}
}

// RecordPurchase учитывает покупку на сумму amount в валюте currency.
func (l *PurchaseLedger) RecordPurchase(ctx context.Context, caller, addr string, currency model.Currency, amount int64) error {
	if err := l.auth.Check(authz.ResourceLedgerWrite, caller); err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("%w: purchase %d", model.ErrInvalidAmount, amount)
	}
	if !currency.Valid() {
		return fmt.Errorf("%w: %s", model.ErrInvalidCurrency, currency)
	}

	delta := model.PurchaseLedgerEntry{TotalPurchases: 1}
	if currency == model.CurrencySecondary {
		delta.TotalSpentSecondary = amount
	} else {
		delta.TotalSpentPrimary = amount
	}
	return l.store.AddEntry(ctx, addr, delta)
}

// RecordIncome учитывает полученный доход.
func (l *PurchaseLedger) RecordIncome(ctx context.Context, caller, addr string, amount int64) error {
	if err := l.auth.Check(authz.ResourceLedgerWrite, caller); err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("%w: income %d", model.ErrInvalidAmount, amount)
	}
	return l.store.AddEntry(ctx, addr, model.PurchaseLedgerEntry{TotalIncomeEarned: amount})
}

// Entry возвращает запись журнала адреса. Для нового адреса все значения нулевые.
func (l *PurchaseLedger) Entry(ctx context.Context, addr string) (model.PurchaseLedgerEntry, error) {
	return l.store.Entry(ctx, addr)
}
