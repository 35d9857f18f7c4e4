//go:build integration

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/mmeshcher/yieldmart/internal/authz"
	"github.com/mmeshcher/yieldmart/internal/model"
)

type PostgresRepositorySuite struct {
	suite.Suite
	repo *PostgresRepository
	ctx  context.Context
}

func TestPostgresRepositorySuite(t *testing.T) {
	if os.Getenv("TEST_DATABASE_URI") == "" {
		t.Skip("TEST_DATABASE_URI is not set")
	}
	suite.Run(t, new(PostgresRepositorySuite))
}

func (s *PostgresRepositorySuite) SetupSuite() {
	repo, err := NewPostgresRepository(os.Getenv("TEST_DATABASE_URI"))
	s.Require().NoError(err)
	s.repo = repo
	s.ctx = context.Background()
}

func (s *PostgresRepositorySuite) TearDownSuite() {
	s.Require().NoError(s.repo.Close())
}

func (s *PostgresRepositorySuite) SetupTest() {
	_, err := s.repo.pool.Exec(s.ctx, `TRUNCATE balances, events, claimants, used_nullifiers, collectibles, templates, assets,
		purchase_ledger, grants, grant_seed, settings RESTART IDENTITY`)
	s.Require().NoError(err)
}

func (s *PostgresRepositorySuite) TestLedger() {
	primary := s.repo.Ledger(model.CurrencyPrimary)
	secondary := s.repo.Ledger(model.CurrencySecondary)

	s.Require().NoError(primary.Mint(s.ctx, "alice", 100))
	s.Require().NoError(primary.Transfer(s.ctx, "alice", "bob", 30))

	err := primary.Transfer(s.ctx, "alice", "bob", 71)
	s.Require().ErrorIs(err, model.ErrInsufficientFunds)

	err = secondary.Transfer(s.ctx, "alice", "bob", 1)
	s.Require().ErrorIs(err, model.ErrInsufficientFunds)

	alice, err := primary.BalanceOf(s.ctx, "alice")
	s.Require().NoError(err)
	bob, err := primary.BalanceOf(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(int64(70), alice)
	s.Equal(int64(30), bob)

	unknown, err := primary.BalanceOf(s.ctx, "carol")
	s.Require().NoError(err)
	s.Zero(unknown)
}

func (s *PostgresRepositorySuite) TestEventsJournal() {
	e := model.Event{
		ID:        uuid.NewString(),
		Kind:      model.EventBuyback,
		Address:   "alice",
		AssetID:   7,
		Amount:    750,
		Currency:  model.CurrencyPrimary,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	s.Require().NoError(s.repo.Publish(s.ctx, e))
	s.Require().NoError(s.repo.Publish(s.ctx, e))

	events, err := s.repo.ListEvents(s.ctx, "alice", 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(e.AssetID, events[0].AssetID)
	s.Equal(e.Kind, events[0].Kind)
	s.True(e.CreatedAt.Equal(events[0].CreatedAt))
}

func (s *PostgresRepositorySuite) TestClaims() {
	claims := s.repo.Claims()
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, found, err := claims.Claimant(s.ctx, "alice")
	s.Require().NoError(err)
	s.False(found)

	c := model.Claimant{Address: "alice", LastClaimAt: now, LifetimeCheckIns: 1, HasSigningBonus: true, Region: "PT"}
	s.Require().NoError(claims.SaveClaim(s.ctx, "n1", c))

	used, err := claims.IsNullifierUsed(s.ctx, "n1")
	s.Require().NoError(err)
	s.True(used)

	err = claims.SaveClaim(s.ctx, "n1", c)
	s.Require().ErrorIs(err, model.ErrDuplicateProof)

	got, found, err := claims.Claimant(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal(int64(1), got.LifetimeCheckIns)
	s.Equal("PT", got.Region)
	s.True(now.Equal(got.LastClaimAt))

	err = s.repo.WithinTx(s.ctx, func(ctx context.Context) error {
		_, _, err := claims.Claimant(ctx, "bob")
		return err
	})
	s.Require().NoError(err)
}

func (s *PostgresRepositorySuite) TestAssets() {
	store := s.repo.Assets()
	now := time.Now().UTC().Truncate(time.Microsecond)

	a, err := store.CreateAsset(s.ctx, model.Asset{
		Owner: "alice", Type: "house", Level: 2, StatusPoints: 20, YieldRateBps: 100,
		CreatedAt: now, LastIncomeClaimAt: now,
	})
	s.Require().NoError(err)
	s.Equal(uint64(1), a.ID)

	later := now.Add(model.Day)
	s.Require().NoError(store.UpdateIncomeClaim(s.ctx, a.ID, now, later))
	err = store.UpdateIncomeClaim(s.ctx, a.ID, now, later)
	s.Require().ErrorIs(err, model.ErrNothingToClaim)

	owned, err := store.AssetsByOwner(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(owned, 1)
	s.True(later.Equal(owned[0].LastIncomeClaimAt))

	s.Require().NoError(store.DeleteAsset(s.ctx, a.ID))
	_, err = store.Asset(s.ctx, a.ID)
	s.Require().ErrorIs(err, model.ErrAssetNotFound)
	s.Require().ErrorIs(store.DeleteAsset(s.ctx, a.ID), model.ErrAssetNotFound)
}

func (s *PostgresRepositorySuite) TestCollectibleSupply() {
	store := s.repo.Assets()
	tpl := model.Template{Name: "crown", StatusPoints: 50, MaxSupply: 1, Price: 100}

	s.Require().NoError(store.CreateTemplate(s.ctx, tpl))
	s.Require().ErrorIs(store.CreateTemplate(s.ctx, tpl), model.ErrTemplateExists)

	now := time.Now().UTC().Truncate(time.Microsecond)
	c, err := store.CreateCollectible(s.ctx, model.Collectible{Owner: "alice", TemplateName: "crown", StatusPoints: 50, MintedAt: now})
	s.Require().NoError(err)
	s.NotZero(c.ID)

	_, err = store.CreateCollectible(s.ctx, model.Collectible{Owner: "bob", TemplateName: "crown", MintedAt: now})
	s.Require().ErrorIs(err, model.ErrSupplyExhausted)

	_, err = store.CreateCollectible(s.ctx, model.Collectible{Owner: "bob", TemplateName: "ghost", MintedAt: now})
	s.Require().ErrorIs(err, model.ErrTemplateNotFound)

	got, err := store.Template(s.ctx, "crown")
	s.Require().NoError(err)
	s.Equal(int64(1), got.MintedCount)
}

func (s *PostgresRepositorySuite) TestGrantsAndLedgerEntries() {
	g := authz.Grant{Resource: authz.ResourceMint, Address: "engine"}
	s.Require().NoError(s.repo.SaveGrant(s.ctx, g))
	s.Require().NoError(s.repo.SaveGrant(s.ctx, g))

	grants, err := s.repo.Grants(s.ctx)
	s.Require().NoError(err)
	s.Equal([]authz.Grant{g}, grants)

	s.Require().NoError(s.repo.DeleteGrant(s.ctx, g))
	grants, err = s.repo.Grants(s.ctx)
	s.Require().NoError(err)
	s.Empty(grants)

	s.Require().NoError(s.repo.AddEntry(s.ctx, "alice", model.PurchaseLedgerEntry{TotalPurchases: 1, TotalSpentPrimary: 850}))
	s.Require().NoError(s.repo.AddEntry(s.ctx, "alice", model.PurchaseLedgerEntry{TotalIncomeEarned: 40}))

	e, err := s.repo.Entry(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PurchaseLedgerEntry{TotalPurchases: 1, TotalSpentPrimary: 850, TotalIncomeEarned: 40}, e)

	empty, err := s.repo.Entry(s.ctx, "nobody")
	s.Require().NoError(err)
	s.Zero(empty)
}

func (s *PostgresRepositorySuite) TestSettingsRoundTrip() {
	_, found, err := s.repo.LoadSettings(s.ctx)
	s.Require().NoError(err)
	s.False(found)

	cfg := model.DefaultSettings()
	cfg.Prices["house"] = model.BasePrice{Primary: 1000, Secondary: 500, Active: true}
	cfg.ProofOnly["castle"] = true
	cfg.BuybackBps = 5000
	s.Require().NoError(s.repo.SaveSettings(s.ctx, cfg))

	got, found, err := s.repo.LoadSettings(s.ctx)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal(cfg, got)
}

func (s *PostgresRepositorySuite) TestWithinTxRollsBack() {
	primary := s.repo.Ledger(model.CurrencyPrimary)

	err := s.repo.WithinTx(s.ctx, func(ctx context.Context) error {
		if err := primary.Mint(ctx, "alice", 100); err != nil {
			return err
		}
		return primary.Transfer(ctx, "alice", "bob", 500)
	})
	s.Require().ErrorIs(err, model.ErrInsufficientFunds)

	bal, err := primary.BalanceOf(s.ctx, "alice")
	s.Require().NoError(err)
	s.Zero(bal)
}

func (s *PostgresRepositorySuite) TestSeedGrantsOnce() {
	initial := []authz.Grant{
		{Resource: authz.ResourceIssuance, Address: "engine"},
		{Resource: authz.ResourceMint, Address: "engine"},
	}

	seeded, err := s.repo.SeedGrants(s.ctx, initial)
	s.Require().NoError(err)
	s.True(seeded)

	for _, g := range initial {
		s.Require().NoError(s.repo.DeleteGrant(s.ctx, g))
	}

	seeded, err = s.repo.SeedGrants(s.ctx, initial)
	s.Require().NoError(err)
	s.False(seeded)

	grants, err := s.repo.Grants(s.ctx)
	s.Require().NoError(err)
	s.Empty(grants)
}
