package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/yieldmart/internal/model"
)

// Publish сохраняет событие в журнал. Повторная запись события с тем же
// идентификатором игнорируется, поэтому запись можно повторять после обрыва.
func (r *PostgresRepository) Publish(ctx context.Context, e model.Event) error {
	var assetID *int64
	if e.AssetID != 0 {
		v := int64(e.AssetID)
		assetID = &v
	}

	return r.withRetry(ctx, func() error {
		_, err := r.db.Exec(ctx,
			`INSERT INTO events (id, kind, address, asset_id, amount, currency, region, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID, string(e.Kind), e.Address, assetID, e.Amount, string(e.Currency), e.Region, e.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return nil
			}
			return fmt.Errorf("insert event: %w", err)
		}
		return nil
	})
}

// ListEvents возвращает последние события адреса.
func (r *PostgresRepository) ListEvents(ctx context.Context, addr string, limit int) ([]model.Event, error) {
	var res []model.Event
	err := r.withRetry(ctx, func() error {
		var err error
		res, err = r.listEvents(ctx, addr, limit)
		return err
	})
	return res, err
}

func (r *PostgresRepository) listEvents(ctx context.Context, addr string, limit int) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, kind, address, asset_id, amount, currency, region, created_at
		 FROM events
		 WHERE address = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		addr, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	var res []model.Event
	for rows.Next() {
		var (
			e        model.Event
			kind     string
			assetID  *int64
			currency string
		)
		if err := rows.Scan(&e.ID, &kind, &e.Address, &assetID, &e.Amount, &currency, &e.Region, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = model.EventKind(kind)
		e.Currency = model.Currency(currency)
		if assetID != nil {
			e.AssetID = uint64(*assetID)
		}
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
