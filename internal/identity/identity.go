// Package identity ведёт учёт ежедневной выдачи токенов подтверждённым участникам.
// Каждое доказательство уникальности личности используется ровно один раз.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mmeshcher/yieldmart/internal/authz"
	"github.com/mmeshcher/yieldmart/internal/model"
	"github.com/mmeshcher/yieldmart/internal/txn"
)

// ErrVerifierNotConfigured возвращается, если оракул проверки доказательств не задан.
var ErrVerifierNotConfigured = errors.New("identity verifier not configured")

// Verifier проверяет доказательства у внешнего оракула.
type Verifier interface {
	Verify(ctx context.Context, root, nullifier, signal, proof, groupID string) (bool, error)
}

// Minter выпускает токены на адрес.
type Minter interface {
	Mint(ctx context.Context, to string, amount int64) error
}

// Authorizer проверяет права на выпуск токенов.
type Authorizer interface {
	Check(res authz.Resource, addr string) error
}

// Store хранит участников и использованные nullifier.
//
// Claimant внутри транзакции блокирует запись участника до её завершения.
// SaveClaim помечает nullifier использованным и сохраняет участника. Повторная
// пометка того же nullifier возвращает ErrDuplicateProof.
type Store interface {
	Claimant(ctx context.Context, addr string) (model.Claimant, bool, error)
	IsNullifierUsed(ctx context.Context, nullifier string) (bool, error)
	SaveClaim(ctx context.Context, nullifier string, c model.Claimant) error
}

// ClaimResult описывает итог успешного получения.
type ClaimResult struct {
	Claimant     model.Claimant `json:"claimant"`
	Amount       int64          `json:"amount"`
	SigningBonus int64          `json:"signing_bonus"`
}

// Ledger проверяет доказательства и выдаёт токены поверх Store.
type Ledger struct {
	mu       sync.Mutex
	verifier Verifier
	store    Store
	tokens   Minter
	auth     Authorizer
	tx       txn.Transactor
	issuer   string
}

// NewLedger создаёт учёт выдачи. Токены выпускаются от имени issuer.
func NewLedger(verifier Verifier, store Store, tokens Minter, auth Authorizer, issuer string, tx txn.Transactor) *Ledger {
	return &Ledger{
		verifier: verifier,
		store:    store,
		tokens:   tokens,
		auth:     auth,
		tx:       txn.Or(tx),
		issuer:   issuer,
	}
}

// Claim выдаёт ежедневную сумму, а при первом получении ещё и приветственный бонус.
// При любой ошибке состояние не меняется.
func (l *Ledger) Claim(ctx context.Context, caller, signal string, proof model.IdentityProof, region string, cfg model.ClaimSettings, now time.Time) (ClaimResult, error) {
	if err := l.auth.Check(authz.ResourceIssuance, l.issuer); err != nil {
		return ClaimResult{}, err
	}
	if signal != caller {
		return ClaimResult{}, model.ErrSignalMismatch
	}
	if l.verifier == nil {
		return ClaimResult{}, ErrVerifierNotConfigured
	}

	// проверка у оракула идёт вне транзакции хранилища
	ok, err := l.verifier.Verify(ctx, proof.Root, proof.Nullifier, signal, proof.Proof, proof.GroupID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("verify proof: %w", err)
	}
	if !ok {
		return ClaimResult{}, model.ErrInvalidProof
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var res ClaimResult
	err = l.tx.WithinTx(ctx, func(ctx context.Context) error {
		used, err := l.store.IsNullifierUsed(ctx, proof.Nullifier)
		if err != nil {
			return fmt.Errorf("check nullifier: %w", err)
		}
		if used {
			return model.ErrDuplicateProof
		}

		c, exists, err := l.store.Claimant(ctx, caller)
		if err != nil {
			return fmt.Errorf("load claimant: %w", err)
		}
		if exists && now.Sub(c.LastClaimAt) < cfg.Cooldown {
			return fmt.Errorf("%w: next claim at %s", model.ErrClaimTooSoon, c.LastClaimAt.Add(cfg.Cooldown).Format(time.RFC3339))
		}

		res = ClaimResult{Amount: cfg.DailyAmount}
		if !c.HasSigningBonus {
			res.SigningBonus = cfg.SigningBonus
			res.Amount += cfg.SigningBonus
		}

		if err := l.tokens.Mint(ctx, caller, res.Amount); err != nil {
			return fmt.Errorf("mint claim: %w", err)
		}

		c.Address = caller
		c.Region = region
		c.LifetimeCheckIns++
		c.HasSigningBonus = true
		c.LastClaimAt = now
		if err := l.store.SaveClaim(ctx, proof.Nullifier, c); err != nil {
			return fmt.Errorf("save claim: %w", err)
		}
		res.Claimant = c
		return nil
	})
	if err != nil {
		return ClaimResult{}, err
	}
	return res, nil
}

// Claimant возвращает данные участника.
func (l *Ledger) Claimant(ctx context.Context, addr string) (model.Claimant, bool, error) {
	return l.store.Claimant(ctx, addr)
}

// HasIdentityProof сообщает, проходил ли адрес проверку хотя бы один раз.
func (l *Ledger) HasIdentityProof(ctx context.Context, addr string) (bool, error) {
	c, ok, err := l.store.Claimant(ctx, addr)
	if err != nil {
		return false, err
	}
	return ok && c.LifetimeCheckIns > 0, nil
}

// IsNullifierUsed сообщает, использован ли nullifier.
func (l *Ledger) IsNullifierUsed(ctx context.Context, nullifier string) (bool, error) {
	return l.store.IsNullifierUsed(ctx, nullifier)
}
