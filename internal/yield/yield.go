// Package yield вычисляет и выплачивает накопленный доход по активам.
package yield

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/yieldmart/internal/authz"
	"github.com/mmeshcher/yieldmart/internal/model"
	"github.com/mmeshcher/yieldmart/internal/txn"
)

// AssetStore предоставляет доступ к активам.
type AssetStore interface {
	Asset(ctx context.Context, id uint64) (model.Asset, error)
	AdvanceIncomeClaim(ctx context.Context, id uint64, to, now time.Time) error
}

// Minter выпускает токены на адрес.
type Minter interface {
	Mint(ctx context.Context, to string, amount int64) error
}

// IncomeRecorder учитывает выплаченный доход в журнале покупок.
type IncomeRecorder interface {
	RecordIncome(ctx context.Context, caller, addr string, amount int64) error
}

// Authorizer проверяет права на выпуск токенов.
type Authorizer interface {
	Check(res authz.Resource, addr string) error
}

// Income описывает доход, накопленный активом к моменту расчёта.
type Income struct {
	AssetID         uint64 `json:"asset_id"`
	Owner           string `json:"owner"`
	Amount          int64  `json:"amount"`
	ElapsedDays     int64  `json:"elapsed_days"`
	HoldingBonusBps int64  `json:"holding_bonus_bps"`
}

// Outcome содержит результат получения дохода по одному активу в пакетной операции.
type Outcome struct {
	AssetID uint64 `json:"asset_id"`
	Amount  int64  `json:"amount"`
	Err     error  `json:"-"`
}

// BulkResult содержит итог пакетного получения дохода.
type BulkResult struct {
	Total    int64     `json:"total"`
	Outcomes []Outcome `json:"outcomes"`
}

// Calculate вычисляет доход актива. Учитываются только полные сутки.
// Переполнение промежуточных произведений возвращает ErrAmountOverflow.
func Calculate(cfg model.YieldSettings, a model.Asset, now time.Time) (Income, error) {
	inc := Income{AssetID: a.ID, Owner: a.Owner}

	elapsed := now.Sub(a.LastIncomeClaimAt)
	if elapsed < model.Day {
		return inc, nil
	}
	inc.ElapsedDays = int64(elapsed / model.Day)

	bonus, err := model.MulDiv(inc.ElapsedDays, max(cfg.PerDayBonusBps, 0), 1)
	if err != nil {
		bonus = cfg.MaxHoldingBonusBps
	}
	inc.HoldingBonusBps = max(min(bonus, cfg.MaxHoldingBonusBps), 0)

	levelRate, err := model.MulDiv(cfg.GlobalBaseRate, a.Level, 1)
	if err != nil {
		return Income{}, fmt.Errorf("income of asset %d: %w", a.ID, err)
	}
	baseDaily, err := model.MulDiv(levelRate, a.YieldRateBps, model.BasisPoints)
	if err != nil {
		return Income{}, fmt.Errorf("income of asset %d: %w", a.ID, err)
	}
	accrued, err := model.MulDiv(baseDaily, inc.ElapsedDays, 1)
	if err != nil {
		return Income{}, fmt.Errorf("income of asset %d: %w", a.ID, err)
	}
	inc.Amount, err = model.MulDiv(accrued, model.BasisPoints+inc.HoldingBonusBps, model.BasisPoints)
	if err != nil {
		return Income{}, fmt.Errorf("income of asset %d: %w", a.ID, err)
	}
	return inc, nil
}

// Engine выплачивает доход владельцам активов.
type Engine struct {
	assets  AssetStore
	tokens  Minter
	records IncomeRecorder
	auth    Authorizer
	tx      txn.Transactor
	issuer  string
}

// NewEngine создаёт движок начислений. От имени issuer выпускается доход и
// ведётся журнал.
func NewEngine(assets AssetStore, tokens Minter, records IncomeRecorder, auth Authorizer, issuer string, tx txn.Transactor) *Engine {
	return &Engine{
		assets:  assets,
		tokens:  tokens,
		records: records,
		auth:    auth,
		tx:      txn.Or(tx),
		issuer:  issuer,
	}
}

// CalculateIncome возвращает доход, доступный по активу прямо сейчас.
func (e *Engine) CalculateIncome(ctx context.Context, cfg model.YieldSettings, id uint64, now time.Time) (Income, error) {
	a, err := e.assets.Asset(ctx, id)
	if err != nil {
		return Income{}, err
	}
	return Calculate(cfg, a, now)
}

func (e *Engine) checkIssuer() error {
	for _, res := range []authz.Resource{authz.ResourceIssuance, authz.ResourceLedgerWrite} {
		if err := e.auth.Check(res, e.issuer); err != nil {
			return err
		}
	}
	return nil
}

// ClaimIncome выплачивает доход владельцу и сдвигает отметку получения ровно на
// число полных суток, сохраняя неполный остаток до следующего получения.
func (e *Engine) ClaimIncome(ctx context.Context, caller string, id uint64, cfg model.YieldSettings, now time.Time) (Income, error) {
	if err := e.checkIssuer(); err != nil {
		return Income{}, err
	}
	return e.claim(ctx, caller, id, cfg, now)
}

func (e *Engine) claim(ctx context.Context, caller string, id uint64, cfg model.YieldSettings, now time.Time) (Income, error) {
	var inc Income
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := e.assets.Asset(ctx, id)
		if err != nil {
			return err
		}
		if a.Owner != caller {
			return fmt.Errorf("%w: asset %d is not owned by %s", model.ErrUnauthorized, id, caller)
		}

		inc, err = Calculate(cfg, a, now)
		if err != nil {
			return err
		}
		if inc.Amount <= 0 {
			return fmt.Errorf("%w: asset %d", model.ErrNothingToClaim, id)
		}

		if err := e.tokens.Mint(ctx, a.Owner, inc.Amount); err != nil {
			return fmt.Errorf("mint income: %w", err)
		}
		// отметка сравнивается с прочитанной, поэтому конкурентное получение откатывается
		next := a.LastIncomeClaimAt.Add(time.Duration(inc.ElapsedDays) * model.Day)
		if err := e.assets.AdvanceIncomeClaim(ctx, id, next, now); err != nil {
			return fmt.Errorf("advance income claim: %w", err)
		}
		if err := e.records.RecordIncome(ctx, e.issuer, a.Owner, inc.Amount); err != nil {
			return fmt.Errorf("record income: %w", err)
		}
		return nil
	})
	if err != nil {
		return Income{}, err
	}
	return inc, nil
}

// ClaimIncomeBulk получает доход по каждому активу независимо. Ошибка по одному
// активу не прерывает пакет; отмена контекста прерывает оставшиеся.
func (e *Engine) ClaimIncomeBulk(ctx context.Context, caller string, ids []uint64, cfg model.YieldSettings, now time.Time) BulkResult {
	res := BulkResult{Outcomes: make([]Outcome, 0, len(ids))}
	issuerErr := e.checkIssuer()
	for _, id := range ids {
		if issuerErr != nil {
			res.Outcomes = append(res.Outcomes, Outcome{AssetID: id, Err: issuerErr})
			continue
		}
		if err := ctx.Err(); err != nil {
			res.Outcomes = append(res.Outcomes, Outcome{AssetID: id, Err: err})
			continue
		}

		inc, err := e.claim(ctx, caller, id, cfg, now)
		if err != nil {
			res.Outcomes = append(res.Outcomes, Outcome{AssetID: id, Err: err})
			continue
		}
		res.Total += inc.Amount
		res.Outcomes = append(res.Outcomes, Outcome{AssetID: id, Amount: inc.Amount})
	}
	return res
}

// Failed возвращает число активов, по которым доход не получен.
func (r BulkResult) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// IsNothingToClaim сообщает, что по активу пока нечего получать.
func (o Outcome) IsNothingToClaim() bool {
	return errors.Is(o.Err, model.ErrNothingToClaim)
}
