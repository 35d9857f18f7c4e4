package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/yieldmart/internal/model"
)

// ClaimStore хранит участников ежедневной выдачи и использованные nullifier.
type ClaimStore struct {
	repo *PostgresRepository
}

// Claims возвращает хранилище участников.
func (r *PostgresRepository) Claims() *ClaimStore {
	return &ClaimStore{repo: r}
}

// Claimant возвращает участника. Внутри транзакции адрес блокируется до её конца,
// в том числе если участника ещё нет.
func (s *ClaimStore) Claimant(ctx context.Context, addr string) (model.Claimant, bool, error) {
	q := s.repo.conn(ctx)
	if txFrom(ctx) != nil {
		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, addr); err != nil {
			return model.Claimant{}, false, fmt.Errorf("lock claimant: %w", err)
		}
	}

	c := model.Claimant{Address: addr}
	err := q.QueryRow(ctx,
		`SELECT last_claim_at, lifetime_check_ins, has_signing_bonus, region
		 FROM claimants WHERE address = $1`,
		addr,
	).Scan(&c.LastClaimAt, &c.LifetimeCheckIns, &c.HasSigningBonus, &c.Region)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Claimant{}, false, nil
		}
		return model.Claimant{}, false, fmt.Errorf("select claimant: %w", err)
	}
	return c, true, nil
}

// IsNullifierUsed сообщает, использован ли nullifier.
func (s *ClaimStore) IsNullifierUsed(ctx context.Context, nullifier string) (bool, error) {
	var used bool
	err := s.repo.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM used_nullifiers WHERE nullifier = $1)`,
		nullifier,
	).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("select nullifier: %w", err)
	}
	return used, nil
}

// SaveClaim помечает nullifier использованным и сохраняет участника.
// Уникальный ключ nullifier не даёт использовать доказательство дважды даже
// при записи с нескольких экземпляров.
func (s *ClaimStore) SaveClaim(ctx context.Context, nullifier string, c model.Claimant) error {
	return s.repo.WithinTx(ctx, func(ctx context.Context) error {
		q := s.repo.conn(ctx)

		_, err := q.Exec(ctx,
			`INSERT INTO used_nullifiers (nullifier, address, used_at) VALUES ($1, $2, $3)`,
			nullifier, c.Address, c.LastClaimAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", model.ErrDuplicateProof, nullifier)
			}
			return fmt.Errorf("insert nullifier: %w", err)
		}

		_, err = q.Exec(ctx,
			`INSERT INTO claimants (address, last_claim_at, lifetime_check_ins, has_signing_bonus, region)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (address) DO UPDATE
			 SET last_claim_at = EXCLUDED.last_claim_at,
			     lifetime_check_ins = EXCLUDED.lifetime_check_ins,
			     has_signing_bonus = EXCLUDED.has_signing_bonus,
			     region = EXCLUDED.region`,
			c.Address, c.LastClaimAt, c.LifetimeCheckIns, c.HasSigningBonus, c.Region,
		)
		if err != nil {
			return fmt.Errorf("upsert claimant: %w", err)
		}
		return nil
	})
}
