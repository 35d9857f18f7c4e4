package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/yieldmart/internal/authz"
	"github.com/mmeshcher/yieldmart/internal/model"
)

func newTestLedger(t *testing.T) *PurchaseLedger {
	t.Helper()

	auth := authz.NewRegistry("owner")
	require.NoError(t, auth.Authorize(context.Background(), "owner", authz.ResourceLedgerWrite, "engine"))
	return New(auth, NewMemoryStore())
}

func entry(t *testing.T, l *PurchaseLedger, addr string) model.PurchaseLedgerEntry {
	t.Helper()

	e, err := l.Entry(context.Background(), addr)
	require.NoError(t, err)
	return e
}

func TestPurchaseLedger(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	assert.Equal(t, model.PurchaseLedgerEntry{}, entry(t, l, "alice"))

	require.NoError(t, l.RecordPurchase(ctx, "engine", "alice", model.CurrencyPrimary, 100))
	require.NoError(t, l.RecordPurchase(ctx, "engine", "alice", model.CurrencySecondary, 7))
	require.NoError(t, l.RecordIncome(ctx, "engine", "alice", 55))

	assert.Equal(t, model.PurchaseLedgerEntry{
		TotalPurchases:      2,
		TotalSpentPrimary:   100,
		TotalSpentSecondary: 7,
		TotalIncomeEarned:   55,
	}, entry(t, l, "alice"))
	assert.Equal(t, model.PurchaseLedgerEntry{}, entry(t, l, "bob"))
}

func TestPurchaseLedger_RequiresWriteAuthority(t *testing.T) {
	ctx := context.Background()
	l := New(authz.NewRegistry("owner"), NewMemoryStore())

	require.ErrorIs(t, l.RecordPurchase(ctx, "mallory", "mallory", model.CurrencyPrimary, 1), model.ErrUnauthorized)
	require.ErrorIs(t, l.RecordIncome(ctx, "mallory", "mallory", 1), model.ErrUnauthorized)
	assert.Zero(t, entry(t, l, "mallory").TotalPurchases)
}

func TestPurchaseLedger_RejectsInvalid(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	assert.ErrorIs(t, l.RecordPurchase(ctx, "engine", "alice", model.CurrencyPrimary, -1), model.ErrInvalidAmount)
	assert.ErrorIs(t, l.RecordIncome(ctx, "engine", "alice", -1), model.ErrInvalidAmount)
	assert.ErrorIs(t, l.RecordPurchase(ctx, "engine", "alice", "GOLD", 1), model.ErrInvalidCurrency)
	assert.Equal(t, model.PurchaseLedgerEntry{}, entry(t, l, "alice"))
}
