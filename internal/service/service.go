// Package service объединяет компоненты токеномики в единую машину состояний.
// Все изменяющие операции выполняются последовательно.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mmeshcher/yieldmart/internal/authz"
	"github.com/mmeshcher/yieldmart/internal/buyback"
	"github.com/mmeshcher/yieldmart/internal/discount"
	"github.com/mmeshcher/yieldmart/internal/identity"
	"github.com/mmeshcher/yieldmart/internal/ledger"
	"github.com/mmeshcher/yieldmart/internal/model"
	"github.com/mmeshcher/yieldmart/internal/pricing"
	"github.com/mmeshcher/yieldmart/internal/registry"
	"github.com/mmeshcher/yieldmart/internal/settings"
	"github.com/mmeshcher/yieldmart/internal/txn"
	"github.com/mmeshcher/yieldmart/internal/yield"
)

// TokenLedger представляет реестр основной валюты.
type TokenLedger interface {
	Mint(ctx context.Context, to string, amount int64) error
	Transfer(ctx context.Context, from, to string, amount int64) error
	BalanceOf(ctx context.Context, addr string) (int64, error)
}

// PaymentLedger представляет внешний реестр второй валюты, используемый для приёма оплаты.
type PaymentLedger interface {
	Transfer(ctx context.Context, from, to string, amount int64) error
	BalanceOf(ctx context.Context, addr string) (int64, error)
}

// Emitter публикует события для индексаторов.
type Emitter interface {
	Emit(ctx context.Context, e model.Event)
}

// EventReader читает журнал событий адреса.
type EventReader interface {
	ListEvents(ctx context.Context, addr string, limit int) ([]model.Event, error)
}

// FailureObserver учитывает неуспешные операции.
type FailureObserver interface {
	ObserveFailure(operation string, err error)
}

// Stores содержит хранилища состояния движка. Незаданные хранилища заменяются
// хранилищами в памяти.
type Stores struct {
	Grants   authz.Store
	Claims   identity.Store
	Assets   registry.Store
	Ledger   ledger.Store
	Settings settings.Persister
}

// Deps содержит зависимости сервиса.
type Deps struct {
	Owner             string
	Engine            string
	OwnerPasswordHash string
	Settings          model.Settings
	Stores            Stores
	Tx                txn.Transactor
	Verifier          identity.Verifier
	Primary           TokenLedger
	Secondary         PaymentLedger
	Events            Emitter
	Journal           EventReader
	Failures          FailureObserver
	Now               func() time.Time
}

// Service содержит бизнес-логику движка токеномики.
type Service struct {
	mu        sync.Mutex
	engine    string
	ownerHash string

	auth      *authz.Registry
	settings  *settings.Store
	assets    *registry.Registry
	claims    *identity.Ledger
	purchases *ledger.PurchaseLedger
	income    *yield.Engine
	buyback   *buyback.Engine

	tx        txn.Transactor
	verifier  identity.Verifier
	primary   TokenLedger
	secondary PaymentLedger
	events    Emitter
	journal   EventReader
	failures  FailureObserver
	now       func() time.Time
}

// Purchase описывает итог покупки актива.
type Purchase struct {
	Asset    model.Asset              `json:"asset"`
	Price    discount.DiscountedPrice `json:"price"`
	Currency model.Currency           `json:"currency"`
}

// New создаёт сервис и восстанавливает состояние из хранилищ. Один раз за жизнь
// хранилища допусков адрес движка получает права на выпуск активов, выпуск
// токенов и запись в журнал покупок.
func New(ctx context.Context, d Deps) (*Service, error) {
	if d.Primary == nil || d.Secondary == nil {
		return nil, errors.New("token ledgers are required")
	}
	if d.Engine == "" || d.Owner == "" {
		return nil, errors.New("owner and engine addresses are required")
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Events == nil {
		d.Events = nopEmitter{}
	}
	st := d.Stores
	if st.Claims == nil {
		st.Claims = identity.NewMemoryStore()
	}
	if st.Assets == nil {
		st.Assets = registry.NewMemoryStore()
	}
	if st.Ledger == nil {
		st.Ledger = ledger.NewMemoryStore()
	}
	tx := txn.Or(d.Tx)

	var (
		cfg *settings.Store
		err error
	)
	if st.Settings != nil {
		cfg, err = settings.NewPersistent(d.Owner, d.Settings, st.Settings)
	} else {
		cfg, err = settings.New(d.Owner, d.Settings)
	}
	if err != nil {
		return nil, fmt.Errorf("initial settings: %w", err)
	}

	auth := authz.NewRegistry(d.Owner)
	if st.Grants != nil {
		if auth, err = authz.Load(ctx, d.Owner, st.Grants); err != nil {
			return nil, err
		}
	}
	if err := auth.Seed(ctx,
		authz.Grant{Resource: authz.ResourceMint, Address: d.Engine},
		authz.Grant{Resource: authz.ResourceIssuance, Address: d.Engine},
		authz.Grant{Resource: authz.ResourceLedgerWrite, Address: d.Engine},
	); err != nil {
		return nil, fmt.Errorf("bootstrap engine authority: %w", err)
	}

	assets := registry.New(auth, st.Assets)
	purchases := ledger.New(auth, st.Ledger)
	return &Service{
		engine:    d.Engine,
		ownerHash: d.OwnerPasswordHash,
		auth:      auth,
		settings:  cfg,
		assets:    assets,
		claims:    identity.NewLedger(d.Verifier, st.Claims, d.Primary, auth, d.Engine, tx),
		purchases: purchases,
		income:    yield.NewEngine(assets, d.Primary, purchases, auth, d.Engine, tx),
		buyback:   buyback.NewEngine(assets, d.Primary, d.Engine, tx),
		tx:        tx,
		verifier:  d.Verifier,
		primary:   d.Primary,
		secondary: d.Secondary,
		events:    d.Events,
		journal:   d.Journal,
		failures:  d.Failures,
		now:       d.Now,
	}, nil
}

func (s *Service) observe(operation string, err error) error {
	if err != nil && s.failures != nil {
		s.failures.ObserveFailure(operation, err)
	}
	return err
}

// Claim выдаёт ежедневную сумму подтверждённому участнику.
func (s *Service) Claim(ctx context.Context, caller, signal string, proof model.IdentityProof, region string) (identity.ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.settings.Snapshot()
	now := s.now()

	res, err := s.claims.Claim(ctx, caller, signal, proof, region, cfg.Claim, now)
	if err != nil {
		return identity.ClaimResult{}, s.observe("claim", err)
	}

	s.events.Emit(ctx, model.Event{
		Kind:      model.EventIssuance,
		Address:   caller,
		Amount:    res.Amount,
		Currency:  model.CurrencyPrimary,
		Region:    region,
		CreatedAt: now,
	})
	return res, nil
}

// Claimant возвращает данные участника.
func (s *Service) Claimant(ctx context.Context, addr string) (model.Claimant, bool, error) {
	return s.claims.Claimant(ctx, addr)
}

// Price возвращает цену типа и уровня.
func (s *Service) Price(assetType model.AssetType, level int64) (model.PriceQuote, error) {
	return pricing.GetPrice(s.settings.Snapshot().Prices, assetType, level)
}

// Convert переводит сумму по фиксированному курсу.
func (s *Service) Convert(amount int64, direction model.Direction) (int64, error) {
	return pricing.Convert(s.settings.Snapshot().ExchangeRates, amount, direction)
}

// DiscountContext собирает признаки покупателя.
func (s *Service) DiscountContext(ctx context.Context, addr string) (model.DiscountContext, error) {
	c, _, err := s.claims.Claimant(ctx, addr)
	if err != nil {
		return model.DiscountContext{}, fmt.Errorf("load claimant: %w", err)
	}
	entry, err := s.purchases.Entry(ctx, addr)
	if err != nil {
		return model.DiscountContext{}, fmt.Errorf("load ledger entry: %w", err)
	}
	return model.DiscountContext{
		HasIdentityProof: c.LifetimeCheckIns > 0,
		CheckInCount:     c.LifetimeCheckIns,
		IsFirstPurchase:  entry.TotalPurchases == 0,
	}, nil
}

// ApplicableDiscount возвращает скидку, которую получит покупатель.
func (s *Service) ApplicableDiscount(ctx context.Context, addr string) (discount.Discount, error) {
	dc, err := s.DiscountContext(ctx, addr)
	if err != nil {
		return discount.Discount{}, err
	}
	return discount.GetApplicableDiscount(s.settings.Snapshot().Discount, dc), nil
}

// DiscountedPrice возвращает цену со скидкой для покупателя.
func (s *Service) DiscountedPrice(ctx context.Context, addr string, assetType model.AssetType, level int64, currency model.Currency) (discount.DiscountedPrice, error) {
	dc, err := s.DiscountContext(ctx, addr)
	if err != nil {
		return discount.DiscountedPrice{}, err
	}
	return discount.CalculateDiscountedPrice(s.settings.Snapshot(), assetType, level, currency, dc)
}

// PurchaseAsset продаёт актив покупателю за выбранную валюту с учётом скидки.
func (s *Service) PurchaseAsset(ctx context.Context, buyer string, assetType model.AssetType, level int64, currency model.Currency, metadataRef string) (Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.purchaseAsset(ctx, buyer, assetType, level, currency, metadataRef)
	return p, s.observe("purchase", err)
}

func (s *Service) purchaseAsset(ctx context.Context, buyer string, assetType model.AssetType, level int64, currency model.Currency, metadataRef string) (Purchase, error) {
	cfg := s.settings.Snapshot()
	now := s.now()

	dc, err := s.DiscountContext(ctx, buyer)
	if err != nil {
		return Purchase{}, err
	}
	if err := discount.CheckEligibility(cfg.ProofOnly, assetType, dc); err != nil {
		return Purchase{}, err
	}
	if _, ok := cfg.BaseStats[assetType]; !ok {
		return Purchase{}, fmt.Errorf("%w: %s", model.ErrBaseStatsNotConfigured, assetType)
	}

	quote, err := pricing.GetPrice(cfg.Prices, assetType, level)
	if err != nil {
		return Purchase{}, err
	}
	if !quote.IsActive {
		return Purchase{}, fmt.Errorf("%w: %s is not on sale", model.ErrPriceNotConfigured, assetType)
	}

	price, err := discount.CalculateDiscountedPrice(cfg, assetType, level, currency, dc)
	if err != nil {
		return Purchase{}, err
	}
	if err := s.checkEngineAuthority(authz.ResourceMint, authz.ResourceLedgerWrite); err != nil {
		return Purchase{}, err
	}

	var a model.Asset
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.pay(ctx, currency, buyer, price.DiscountedPrice); err != nil {
			return err
		}

		var err error
		a, err = s.assets.MintAsset(ctx, s.engine, buyer, assetType, level, metadataRef, cfg.BaseStats, now)
		if err != nil {
			return fmt.Errorf("mint purchased asset: %w", err)
		}
		if err := s.purchases.RecordPurchase(ctx, s.engine, buyer, currency, price.DiscountedPrice); err != nil {
			return fmt.Errorf("record purchase: %w", err)
		}
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}

	s.events.Emit(ctx, model.Event{
		Kind:      model.EventPurchase,
		Address:   buyer,
		AssetID:   a.ID,
		Amount:    price.DiscountedPrice,
		Currency:  currency,
		CreatedAt: now,
	})

	return Purchase{Asset: a, Price: price, Currency: currency}, nil
}

// PurchaseCollectible продаёт коллекционный актив по цене шаблона в основной валюте.
func (s *Service) PurchaseCollectible(ctx context.Context, buyer, templateName string) (model.Collectible, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.purchaseCollectible(ctx, buyer, templateName)
	return c, s.observe("purchase_collectible", err)
}

func (s *Service) purchaseCollectible(ctx context.Context, buyer, templateName string) (model.Collectible, error) {
	now := s.now()

	t, err := s.assets.Template(ctx, templateName)
	if err != nil {
		return model.Collectible{}, err
	}
	if err := s.assets.CheckSupply(ctx, templateName); err != nil {
		return model.Collectible{}, err
	}
	if err := s.checkEngineAuthority(authz.ResourceMint, authz.ResourceLedgerWrite); err != nil {
		return model.Collectible{}, err
	}

	var c model.Collectible
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.pay(ctx, model.CurrencyPrimary, buyer, t.Price); err != nil {
			return err
		}

		var err error
		c, err = s.assets.MintCollectible(ctx, s.engine, buyer, templateName, now)
		if err != nil {
			return fmt.Errorf("mint collectible: %w", err)
		}
		if err := s.purchases.RecordPurchase(ctx, s.engine, buyer, model.CurrencyPrimary, t.Price); err != nil {
			return fmt.Errorf("record purchase: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Collectible{}, err
	}

	s.events.Emit(ctx, model.Event{
		Kind:      model.EventCollectibleMint,
		Address:   buyer,
		AssetID:   c.ID,
		Amount:    t.Price,
		Currency:  model.CurrencyPrimary,
		CreatedAt: now,
	})
	return c, nil
}

func (s *Service) pay(ctx context.Context, currency model.Currency, buyer string, amount int64) error {
	var err error
	switch currency {
	case model.CurrencyPrimary:
		err = s.primary.Transfer(ctx, buyer, s.engine, amount)
	case model.CurrencySecondary:
		err = s.secondary.Transfer(ctx, buyer, s.engine, amount)
	default:
		return fmt.Errorf("%w: %s", model.ErrInvalidCurrency, currency)
	}
	if err != nil {
		return fmt.Errorf("payment: %w", err)
	}
	return nil
}

func (s *Service) checkEngineAuthority(resources ...authz.Resource) error {
	for _, res := range resources {
		if err := s.auth.Check(res, s.engine); err != nil {
			return err
		}
	}
	return nil
}

// MintAsset выпускает актив от имени допущенного выпускающего без оплаты.
func (s *Service) MintAsset(ctx context.Context, caller, owner string, assetType model.AssetType, level int64, metadataRef string) (model.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.assets.MintAsset(ctx, caller, owner, assetType, level, metadataRef, s.settings.Snapshot().BaseStats, s.now())
	return a, s.observe("mint", err)
}

// Asset возвращает актив по идентификатору.
func (s *Service) Asset(ctx context.Context, id uint64) (model.Asset, error) {
	return s.assets.Asset(ctx, id)
}

// Assets возвращает активы владельца в порядке выпуска.
func (s *Service) Assets(ctx context.Context, owner string) ([]model.Asset, error) {
	return s.assets.AssetsByOwner(ctx, owner)
}

// Collectibles возвращает коллекционные активы владельца.
func (s *Service) Collectibles(ctx context.Context, owner string) ([]model.Collectible, error) {
	return s.assets.CollectiblesByOwner(ctx, owner)
}

// Income возвращает доход, доступный по активу.
func (s *Service) Income(ctx context.Context, id uint64) (yield.Income, error) {
	return s.income.CalculateIncome(ctx, s.settings.Snapshot().Yield, id, s.now())
}

// ClaimIncome выплачивает доход по активу владельцу.
func (s *Service) ClaimIncome(ctx context.Context, caller string, id uint64) (yield.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	inc, err := s.income.ClaimIncome(ctx, caller, id, s.settings.Snapshot().Yield, now)
	if err != nil {
		return yield.Income{}, s.observe("claim_income", err)
	}
	s.emitIncome(ctx, caller, id, inc.Amount, now)
	return inc, nil
}

// ClaimIncomeBulk выплачивает доход по каждому активу независимо.
func (s *Service) ClaimIncomeBulk(ctx context.Context, caller string, ids []uint64) yield.BulkResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	res := s.income.ClaimIncomeBulk(ctx, caller, ids, s.settings.Snapshot().Yield, now)
	for _, o := range res.Outcomes {
		if o.Err != nil {
			s.observe("claim_income", o.Err)
			continue
		}
		s.emitIncome(ctx, caller, o.AssetID, o.Amount, now)
	}
	return res
}

func (s *Service) emitIncome(ctx context.Context, owner string, id uint64, amount int64, now time.Time) {
	s.events.Emit(ctx, model.Event{
		Kind:      model.EventIncomeClaim,
		Address:   owner,
		AssetID:   id,
		Amount:    amount,
		Currency:  model.CurrencyPrimary,
		CreatedAt: now,
	})
}

// BuybackPrice возвращает сумму, которую казна заплатит за актив.
func (s *Service) BuybackPrice(ctx context.Context, id uint64) (int64, error) {
	return s.buyback.CalculateBuybackPrice(ctx, s.settings.Snapshot(), id)
}

// SellToContract продаёт актив казне.
func (s *Service) SellToContract(ctx context.Context, caller string, id uint64) (buyback.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sale, err := s.buyback.SellToContract(ctx, caller, id, s.settings.Snapshot())
	if err != nil {
		return buyback.Sale{}, s.observe("sell", err)
	}

	s.events.Emit(ctx, model.Event{
		Kind:      model.EventBuyback,
		Address:   caller,
		AssetID:   id,
		Amount:    sale.Amount,
		Currency:  model.CurrencyPrimary,
		CreatedAt: now,
	})
	return sale, nil
}

// LedgerEntry возвращает накопительную статистику адреса.
func (s *Service) LedgerEntry(ctx context.Context, addr string) (model.PurchaseLedgerEntry, error) {
	return s.purchases.Entry(ctx, addr)
}

// Balance возвращает баланс адреса в указанной валюте.
func (s *Service) Balance(ctx context.Context, addr string, currency model.Currency) (int64, error) {
	switch currency {
	case model.CurrencyPrimary:
		return s.primary.BalanceOf(ctx, addr)
	case model.CurrencySecondary:
		return s.secondary.BalanceOf(ctx, addr)
	}
	return 0, fmt.Errorf("%w: %s", model.ErrInvalidCurrency, currency)
}

// Events возвращает не более limit последних событий адреса.
func (s *Service) Events(ctx context.Context, addr string, limit int) ([]model.Event, error) {
	if s.journal == nil {
		return []model.Event{}, nil
	}
	res, err := s.journal.ListEvents(ctx, addr, limit)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []model.Event{}
	}
	return res, nil
}

// IsOwner сообщает, является ли адрес владельцем.
func (s *Service) IsOwner(addr string) bool {
	return s.auth.IsOwner(addr)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, model.Event) {}
