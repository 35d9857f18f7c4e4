package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/yieldmart/internal/authz"
	"github.com/mmeshcher/yieldmart/internal/model"
)

// Grants возвращает все сохранённые допуски.
func (r *PostgresRepository) Grants(ctx context.Context) ([]authz.Grant, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT resource, address FROM grants ORDER BY resource, address`)
	if err != nil {
		return nil, fmt.Errorf("select grants: %w", err)
	}
	defer rows.Close()

	var res []authz.Grant
	for rows.Next() {
		var (
			g        authz.Grant
			resource string
		)
		if err := rows.Scan(&resource, &g.Address); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		g.Resource = authz.Resource(resource)
		res = append(res, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// SaveGrant сохраняет допуск. Повторное сохранение ничего не меняет.
func (r *PostgresRepository) SaveGrant(ctx context.Context, g authz.Grant) error {
	return r.withRetry(ctx, func() error {
		_, err := r.conn(ctx).Exec(ctx,
			`INSERT INTO grants (resource, address) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			string(g.Resource), g.Address,
		)
		if err != nil {
			return fmt.Errorf("insert grant: %w", err)
		}
		return nil
	})
}

// DeleteGrant удаляет допуск, если он есть.
func (r *PostgresRepository) DeleteGrant(ctx context.Context, g authz.Grant) error {
	return r.withRetry(ctx, func() error {
		_, err := r.conn(ctx).Exec(ctx,
			`DELETE FROM grants WHERE resource = $1 AND address = $2`,
			string(g.Resource), g.Address,
		)
		if err != nil {
			return fmt.Errorf("delete grant: %w", err)
		}
		return nil
	})
}

// SeedGrants сохраняет начальные допуски при первом вызове для этой базы.
// Отметка о засеве и допуски пишутся в одной транзакции.
func (r *PostgresRepository) SeedGrants(ctx context.Context, grants []authz.Grant) (bool, error) {
	var seeded bool
	err := r.withWriteRetry(ctx, func() error {
		seeded = false
		return r.WithinTx(ctx, func(ctx context.Context) error {
			q := r.conn(ctx)

			tag, err := q.Exec(ctx, `INSERT INTO grant_seed (id) VALUES (1) ON CONFLICT DO NOTHING`)
			if err != nil {
				return fmt.Errorf("insert grant seed: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return nil
			}

			for _, g := range grants {
				_, err := q.Exec(ctx,
					`INSERT INTO grants (resource, address) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
					string(g.Resource), g.Address,
				)
				if err != nil {
					return fmt.Errorf("insert seed grant: %w", err)
				}
			}
			seeded = true
			return nil
		})
	})
	if err != nil {
		return false, err
	}
	return seeded, nil
}

// Entry возвращает запись журнала покупок адреса.
func (r *PostgresRepository) Entry(ctx context.Context, addr string) (model.PurchaseLedgerEntry, error) {
	var e model.PurchaseLedgerEntry
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT total_purchases, total_spent_primary, total_spent_secondary, total_income_earned
		 FROM purchase_ledger WHERE address = $1`,
		addr,
	).Scan(&e.TotalPurchases, &e.TotalSpentPrimary, &e.TotalSpentSecondary, &e.TotalIncomeEarned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PurchaseLedgerEntry{}, nil
		}
		return model.PurchaseLedgerEntry{}, fmt.Errorf("select ledger entry: %w", err)
	}
	return e, nil
}

// AddEntry прибавляет delta к записи журнала адреса.
func (r *PostgresRepository) AddEntry(ctx context.Context, addr string, delta model.PurchaseLedgerEntry) error {
	return r.withWriteRetry(ctx, func() error {
		_, err := r.conn(ctx).Exec(ctx,
			`INSERT INTO purchase_ledger (address, total_purchases, total_spent_primary, total_spent_secondary, total_income_earned)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (address) DO UPDATE
			 SET total_purchases = purchase_ledger.total_purchases + EXCLUDED.total_purchases,
			     total_spent_primary = purchase_ledger.total_spent_primary + EXCLUDED.total_spent_primary,
			     total_spent_secondary = purchase_ledger.total_spent_secondary + EXCLUDED.total_spent_secondary,
			     total_income_earned = purchase_ledger.total_income_earned + EXCLUDED.total_income_earned`,
			addr, delta.TotalPurchases, delta.TotalSpentPrimary, delta.TotalSpentSecondary, delta.TotalIncomeEarned,
		)
		if err != nil {
			return fmt.Errorf("upsert ledger entry: %w", err)
		}
		return nil
	})
}

// SaveSettings сохраняет снимок конфигурации.
func (r *PostgresRepository) SaveSettings(ctx context.Context, s model.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	return r.withRetry(ctx, func() error {
		_, err := r.conn(ctx).Exec(ctx,
			`INSERT INTO settings (id, snapshot, updated_at) VALUES (1, $1, now())
			 ON CONFLICT (id) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`,
			data,
		)
		if err != nil {
			return fmt.Errorf("upsert settings: %w", err)
		}
		return nil
	})
}

// LoadSettings возвращает сохранённый снимок. Если снимка нет, found равен false.
func (r *PostgresRepository) LoadSettings(ctx context.Context) (s model.Settings, found bool, err error) {
	var data []byte
	err = r.withRetry(ctx, func() error {
		return r.conn(ctx).QueryRow(ctx, `SELECT snapshot FROM settings WHERE id = 1`).Scan(&data)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Settings{}, false, nil
		}
		return model.Settings{}, false, fmt.Errorf("select settings: %w", err)
	}

	s = model.DefaultSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		return model.Settings{}, false, fmt.Errorf("decode settings: %w", err)
	}
	return s, true, nil
}
