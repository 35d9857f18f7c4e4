// Package buyback реализует выкуп активов казной по текущей цене.
package buyback

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmeshcher/yieldmart/internal/model"
	"github.com/mmeshcher/yieldmart/internal/pricing"
	"github.com/mmeshcher/yieldmart/internal/txn"
)

// AssetStore предоставляет доступ к активам и их сжиганию.
type AssetStore interface {
	Asset(ctx context.Context, id uint64) (model.Asset, error)
	BurnAsset(ctx context.Context, caller string, id uint64) error
}

// TokenLedger представляет реестр основной валюты, из которого казна платит продавцу.
type TokenLedger interface {
	Transfer(ctx context.Context, from, to string, amount int64) error
	BalanceOf(ctx context.Context, addr string) (int64, error)
}

// Sale содержит итог выкупа.
type Sale struct {
	AssetID uint64           `json:"asset_id"`
	Seller  string           `json:"seller"`
	Amount  int64            `json:"amount"`
	Asset   model.Asset      `json:"asset"`
	Quote   model.PriceQuote `json:"quote"`
}

// Engine выкупает активы за счёт собственной ликвидности казны.
type Engine struct {
	assets   AssetStore
	tokens   TokenLedger
	tx       txn.Transactor
	treasury string
}

// NewEngine создаёт движок выкупа. Казна treasury платит продавцу и выступает вызывающим при сжигании.
func NewEngine(assets AssetStore, tokens TokenLedger, treasury string, tx txn.Transactor) *Engine {
	return &Engine{
		assets:   assets,
		tokens:   tokens,
		tx:       txn.Or(tx),
		treasury: treasury,
	}
}

// Price вычисляет цену выкупа по текущей таблице цен, а не по цене покупки.
func Price(s model.Settings, a model.Asset) (int64, model.PriceQuote, error) {
	quote, err := pricing.GetPrice(s.Prices, a.Type, a.Level)
	if err != nil {
		return 0, model.PriceQuote{}, err
	}
	amount, err := model.MulDiv(quote.PrimaryPrice, s.BuybackBps, model.BasisPoints)
	if err != nil {
		return 0, model.PriceQuote{}, fmt.Errorf("buyback of %s: %w", a.Type, err)
	}
	return amount, quote, nil
}

// CalculateBuybackPrice возвращает сумму, которую казна заплатит за актив.
func (e *Engine) CalculateBuybackPrice(ctx context.Context, s model.Settings, id uint64) (int64, error) {
	a, err := e.assets.Asset(ctx, id)
	if err != nil {
		return 0, err
	}
	amount, _, err := Price(s, a)
	return amount, err
}

// SellToContract выкупает актив у владельца целиком или не выкупает вовсе.
// Актив сжигается до выплаты, поэтому повторная продажа того же актива невозможна.
func (e *Engine) SellToContract(ctx context.Context, caller string, id uint64, s model.Settings) (Sale, error) {
	var sale Sale
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := e.assets.Asset(ctx, id)
		if err != nil {
			return err
		}
		if a.Owner != caller {
			return fmt.Errorf("%w: asset %d is not owned by %s", model.ErrUnauthorized, id, caller)
		}

		amount, quote, err := Price(s, a)
		if err != nil {
			return err
		}

		liquidity, err := e.tokens.BalanceOf(ctx, e.treasury)
		if err != nil {
			return fmt.Errorf("treasury balance: %w", err)
		}
		if liquidity < amount {
			return fmt.Errorf("%w: treasury has %d, needs %d", model.ErrInsufficientLiquidity, liquidity, amount)
		}

		if err := e.assets.BurnAsset(ctx, e.treasury, id); err != nil {
			return fmt.Errorf("burn asset: %w", err)
		}
		if err := e.tokens.Transfer(ctx, e.treasury, caller, amount); err != nil {
			// казну могла опустошить параллельная продажа после проверки баланса
			if errors.Is(err, model.ErrInsufficientFunds) {
				return fmt.Errorf("%w: pay seller: %v", model.ErrInsufficientLiquidity, err)
			}
			return fmt.Errorf("pay seller: %w", err)
		}

		sale = Sale{AssetID: id, Seller: caller, Amount: amount, Asset: a, Quote: quote}
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	return sale, nil
}
