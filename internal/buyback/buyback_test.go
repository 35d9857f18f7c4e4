package buyback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/yieldmart/internal/authz"
	"github.com/mmeshcher/yieldmart/internal/model"
	"github.com/mmeshcher/yieldmart/internal/registry"
	"github.com/mmeshcher/yieldmart/internal/token"
)

func setup(t *testing.T) (*registry.Registry, *token.MemoryLedger, *Engine, model.Settings) {
	t.Helper()

	auth := authz.NewRegistry("owner")
	require.NoError(t, auth.Authorize(context.Background(), "owner", authz.ResourceMint, "engine"))

	reg := registry.New(auth, registry.NewMemoryStore())
	tokens := token.NewMemoryLedger()

	s := model.DefaultSettings()
	s.Prices["villa"] = model.BasePrice{Primary: 1000, Secondary: 10, Active: true}
	s.BaseStats["villa"] = model.BaseStats{StatusPoints: 1, YieldRateBps: 100}

	return reg, tokens, NewEngine(reg, tokens, "engine", nil), s
}

func mintVilla(t *testing.T, reg *registry.Registry, s model.Settings, level int64) model.Asset {
	t.Helper()

	a, err := reg.MintAsset(context.Background(), "engine", "alice", "villa", level, "", s.BaseStats, time.Now())
	require.NoError(t, err)
	return a
}

// orderedLedger запоминает, существовал ли актив в момент выплаты.
type orderedLedger struct {
	*token.MemoryLedger
	reg           *registry.Registry
	assetID       uint64
	existedAtPay  bool
	failTransfers bool
}

func (o *orderedLedger) Transfer(ctx context.Context, from, to string, amount int64) error {
	_, err := o.reg.Asset(ctx, o.assetID)
	o.existedAtPay = err == nil
	if o.failTransfers {
		return errors.New("connection reset by peer")
	}
	return o.MemoryLedger.Transfer(ctx, from, to, amount)
}

// drainingLedger списывает казну другому продавцу между проверкой баланса и выплатой.
type drainingLedger struct {
	*token.MemoryLedger
}

func (d *drainingLedger) Transfer(ctx context.Context, from, to string, amount int64) error {
	rest, err := d.MemoryLedger.BalanceOf(ctx, from)
	if err != nil {
		return err
	}
	if err := d.MemoryLedger.Transfer(ctx, from, "carol", rest); err != nil {
		return err
	}
	return d.MemoryLedger.Transfer(ctx, from, to, amount)
}

type recordingTx struct {
	err error
}

func (r *recordingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.err = fn(ctx)
	return r.err
}

func TestCalculateBuybackPrice_DefaultIsSeventyFivePercent(t *testing.T) {
	reg, _, e, s := setup(t)

	for level := int64(1); level <= 5; level++ {
		a := mintVilla(t, reg, s, level)

		got, err := e.CalculateBuybackPrice(context.Background(), s, a.ID)
		require.NoError(t, err)

		price := 1000 * (100 + (level-1)*20) / 100
		assert.Equal(t, price*7500/10000, got, "level %d", level)
	}
}

func TestCalculateBuybackPrice_TracksCurrentPrice(t *testing.T) {
	ctx := context.Background()
	reg, _, e, s := setup(t)
	a := mintVilla(t, reg, s, 1)

	repriced := s.Clone()
	repriced.Prices["villa"] = model.BasePrice{Primary: 4000, Active: true}

	got, err := e.CalculateBuybackPrice(ctx, repriced, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), got)

	delete(repriced.Prices, "villa")
	_, err = e.CalculateBuybackPrice(ctx, repriced, a.ID)
	assert.ErrorIs(t, err, model.ErrPriceNotConfigured)
}

func TestSellToContract(t *testing.T) {
	ctx := context.Background()
	reg, tokens, e, s := setup(t)
	require.NoError(t, tokens.Mint(ctx, "engine", 1000))
	a := mintVilla(t, reg, s, 1)

	_, err := e.SellToContract(ctx, "bob", a.ID, s)
	require.ErrorIs(t, err, model.ErrUnauthorized)

	sale, err := e.SellToContract(ctx, "alice", a.ID, s)
	require.NoError(t, err)
	assert.Equal(t, int64(750), sale.Amount)

	alice, _ := tokens.BalanceOf(ctx, "alice")
	treasury, _ := tokens.BalanceOf(ctx, "engine")
	assert.Equal(t, int64(750), alice)
	assert.Equal(t, int64(250), treasury)

	_, err = reg.Asset(ctx, a.ID)
	assert.ErrorIs(t, err, model.ErrAssetNotFound)
	owned, err := reg.AssetsByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, owned)

	_, err = e.SellToContract(ctx, "alice", a.ID, s)
	assert.ErrorIs(t, err, model.ErrAssetNotFound)
}

func TestSellToContract_BurnsBeforePaying(t *testing.T) {
	ctx := context.Background()
	reg, tokens, _, s := setup(t)
	require.NoError(t, tokens.Mint(ctx, "engine", 1000))
	a := mintVilla(t, reg, s, 1)

	ledger := &orderedLedger{MemoryLedger: tokens, reg: reg, assetID: a.ID}
	_, err := NewEngine(reg, ledger, "engine", nil).SellToContract(ctx, "alice", a.ID, s)
	require.NoError(t, err)
	assert.False(t, ledger.existedAtPay)
}

func TestSellToContract_PaymentFailureAbortsTransaction(t *testing.T) {
	ctx := context.Background()
	reg, tokens, _, s := setup(t)
	require.NoError(t, tokens.Mint(ctx, "engine", 1000))
	a := mintVilla(t, reg, s, 1)

	tx := &recordingTx{}
	ledger := &orderedLedger{MemoryLedger: tokens, reg: reg, assetID: a.ID, failTransfers: true}
	_, err := NewEngine(reg, ledger, "engine", tx).SellToContract(ctx, "alice", a.ID, s)
	require.Error(t, err)
	assert.ErrorContains(t, tx.err, "pay seller")

	alice, _ := tokens.BalanceOf(ctx, "alice")
	assert.Zero(t, alice)
}

func TestSellToContract_InsufficientLiquidity(t *testing.T) {
	ctx := context.Background()
	reg, tokens, e, s := setup(t)
	require.NoError(t, tokens.Mint(ctx, "engine", 749))
	a := mintVilla(t, reg, s, 1)

	_, err := e.SellToContract(ctx, "alice", a.ID, s)
	require.ErrorIs(t, err, model.ErrInsufficientLiquidity)

	_, err = reg.Asset(ctx, a.ID)
	assert.NoError(t, err)
	treasury, _ := tokens.BalanceOf(ctx, "engine")
	assert.Equal(t, int64(749), treasury)
}

func TestSellToContract_TreasuryDrainedConcurrently(t *testing.T) {
	ctx := context.Background()
	reg, tokens, _, s := setup(t)
	require.NoError(t, tokens.Mint(ctx, "engine", 1000))
	a := mintVilla(t, reg, s, 1)

	tx := &recordingTx{}
	_, err := NewEngine(reg, &drainingLedger{MemoryLedger: tokens}, "engine", tx).SellToContract(ctx, "alice", a.ID, s)
	require.ErrorIs(t, err, model.ErrInsufficientLiquidity)
	assert.NotErrorIs(t, err, model.ErrInsufficientFunds)
	assert.Equal(t, "insufficient_liquidity", model.ErrorCode(err))

	alice, _ := tokens.BalanceOf(ctx, "alice")
	assert.Zero(t, alice)
}
