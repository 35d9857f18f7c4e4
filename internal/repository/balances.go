package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/yieldmart/internal/model"
)

// Mint зачисляет выпуск на баланс адреса в валюте currency.
func (r *PostgresRepository) Mint(ctx context.Context, currency model.Currency, to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: mint %d", model.ErrInvalidAmount, amount)
	}

	return r.withWriteRetry(ctx, func() error {
		_, err := r.conn(ctx).Exec(ctx,
			`INSERT INTO balances (currency, address, amount) VALUES ($1, $2, $3)
			 ON CONFLICT (currency, address) DO UPDATE
			 SET amount = balances.amount + EXCLUDED.amount, updated_at = now()`,
			string(currency), to, amount,
		)
		if err != nil {
			return fmt.Errorf("mint: %w", err)
		}
		return nil
	})
}

// Transfer переводит сумму между адресами. Строки обоих адресов блокируются в
// порядке возрастания адреса, чтобы параллельные переводы не взаимоблокировались.
func (r *PostgresRepository) Transfer(ctx context.Context, currency model.Currency, from, to string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: transfer %d", model.ErrInvalidAmount, amount)
	}

	return r.withWriteRetry(ctx, func() error {
		return r.WithinTx(ctx, func(ctx context.Context) error {
			return r.transfer(ctx, currency, from, to, amount)
		})
	})
}

func (r *PostgresRepository) transfer(ctx context.Context, currency model.Currency, from, to string, amount int64) error {
	q := r.conn(ctx)

	_, err := q.Exec(ctx,
		`INSERT INTO balances (currency, address, amount)
		 VALUES ($1, $2, 0), ($1, $3, 0)
		 ON CONFLICT (currency, address) DO NOTHING`,
		string(currency), from, to,
	)
	if err != nil {
		return fmt.Errorf("ensure balances: %w", err)
	}

	rows, err := q.Query(ctx,
		`SELECT address, amount FROM balances
		 WHERE currency = $1 AND address = ANY($2)
		 ORDER BY address
		 FOR UPDATE`,
		string(currency), []string{from, to},
	)
	if err != nil {
		return fmt.Errorf("lock balances: %w", err)
	}

	var current int64
	for rows.Next() {
		var (
			addr string
			bal  int64
		)
		if err := rows.Scan(&addr, &bal); err != nil {
			rows.Close()
			return fmt.Errorf("scan balance: %w", err)
		}
		if addr == from {
			current = bal
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	if amount > current {
		return fmt.Errorf("%w: %s has %d, needs %d", model.ErrInsufficientFunds, from, current, amount)
	}

	if from == to {
		return nil
	}

	_, err = q.Exec(ctx,
		`UPDATE balances SET amount = amount - $3, updated_at = now() WHERE currency = $1 AND address = $2`,
		string(currency), from, amount,
	)
	if err != nil {
		return fmt.Errorf("debit: %w", err)
	}

	_, err = q.Exec(ctx,
		`UPDATE balances SET amount = amount + $3, updated_at = now() WHERE currency = $1 AND address = $2`,
		string(currency), to, amount,
	)
	if err != nil {
		return fmt.Errorf("credit: %w", err)
	}
	return nil
}

// BalanceOf возвращает баланс адреса в валюте currency.
func (r *PostgresRepository) BalanceOf(ctx context.Context, currency model.Currency, addr string) (int64, error) {
	var amount int64
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT amount FROM balances WHERE currency = $1 AND address = $2`,
		string(currency), addr,
	).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("select balance: %w", err)
	}
	return amount, nil
}

// Ledger возвращает реестр одной валюты поверх репозитория.
func (r *PostgresRepository) Ledger(currency model.Currency) *CurrencyLedger {
	return &CurrencyLedger{repo: r, currency: currency}
}

// CurrencyLedger представляет реестр токенов одной валюты.
type CurrencyLedger struct {
	repo     *PostgresRepository
	currency model.Currency
}

// Mint зачисляет выпуск на адрес.
func (l *CurrencyLedger) Mint(ctx context.Context, to string, amount int64) error {
	return l.repo.Mint(ctx, l.currency, to, amount)
}

// Transfer переводит сумму между адресами.
func (l *CurrencyLedger) Transfer(ctx context.Context, from, to string, amount int64) error {
	return l.repo.Transfer(ctx, l.currency, from, to, amount)
}

// BalanceOf возвращает баланс адреса.
func (l *CurrencyLedger) BalanceOf(ctx context.Context, addr string) (int64, error) {
	return l.repo.BalanceOf(ctx, l.currency, addr)
}
