// Package model содержит доменные сущности токеномики yieldmart.
package model

import "time"

// BasisPoints задаёт единицу расчёта ставок, 1/100 процента.
const BasisPoints int64 = 10000

// Day задаёт длительность суток, в которых считаются начисления.
const Day = 24 * time.Hour

// MaxLevel задаёт наибольший допустимый уровень актива.
const MaxLevel int64 = 1000

// AssetType задаёт тип уровневого доходного актива.
type AssetType string

// Currency определяет валюту оплаты.
type Currency string

const (
	CurrencyPrimary   Currency = "PRIMARY"
	CurrencySecondary Currency = "SECONDARY"
)

// Valid сообщает, является ли валюта поддерживаемой.
func (c Currency) Valid() bool {
	return c == CurrencyPrimary || c == CurrencySecondary
}

// Direction задаёт направление конвертации между валютами.
type Direction string

const (
	PrimaryToSecondary Direction = "PRIMARY_TO_SECONDARY"
	SecondaryToPrimary Direction = "SECONDARY_TO_PRIMARY"
)

// Claimant описывает участника, прошедшего проверку уникальности личности.
type Claimant struct {
	Address          string    `json:"address"`
	LastClaimAt      time.Time `json:"last_claim_at"`
	LifetimeCheckIns int64     `json:"lifetime_check_ins"`
	HasSigningBonus  bool      `json:"has_signing_bonus"`
	Region           string    `json:"region"`
}

// Asset описывает уровневый доходный актив.
type Asset struct {
	ID                uint64    `json:"id"`
	Owner             string    `json:"owner"`
	Type              AssetType `json:"type"`
	Level             int64     `json:"level"`
	YieldRateBps      int64     `json:"yield_rate_bps"`
	StatusPoints      int64     `json:"status_points"`
	MetadataRef       string    `json:"metadata_ref,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	LastIncomeClaimAt time.Time `json:"last_income_claim_at"`
}

// Collectible описывает коллекционный актив с ограниченным тиражом.
type Collectible struct {
	ID           uint64    `json:"id"`
	Owner        string    `json:"owner"`
	TemplateName string    `json:"template_name"`
	StatusPoints int64     `json:"status_points"`
	MintedAt     time.Time `json:"minted_at"`
}

// Template описывает шаблон коллекционного актива.
type Template struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	Rarity       string `json:"rarity"`
	StatusPoints int64  `json:"status_points"`
	MaxSupply    int64  `json:"max_supply"`
	MintedCount  int64  `json:"minted_count"`
	Price        int64  `json:"price"`
}

// PriceQuote содержит цену актива в обеих валютах для пары (тип, уровень).
type PriceQuote struct {
	PrimaryPrice   int64 `json:"primary_price"`
	SecondaryPrice int64 `json:"secondary_price"`
	IsActive       bool  `json:"is_active"`
}

// Amount возвращает цену в указанной валюте.
func (q PriceQuote) Amount(c Currency) int64 {
	if c == CurrencySecondary {
		return q.SecondaryPrice
	}
	return q.PrimaryPrice
}

// DiscountContext содержит признаки покупателя, влияющие на скидку.
type DiscountContext struct {
	HasIdentityProof bool  `json:"has_identity_proof"`
	CheckInCount     int64 `json:"check_in_count"`
	IsFirstPurchase  bool  `json:"is_first_purchase"`
}

// PurchaseLedgerEntry хранит накопительную статистику покупок адреса.
type PurchaseLedgerEntry struct {
	TotalPurchases      int64 `json:"total_purchases"`
	TotalSpentPrimary   int64 `json:"total_spent_primary"`
	TotalSpentSecondary int64 `json:"total_spent_secondary"`
	TotalIncomeEarned   int64 `json:"total_income_earned"`
}

// IdentityProof содержит доказательство уникальности личности.
type IdentityProof struct {
	Root      string `json:"root"`
	Nullifier string `json:"nullifier"`
	GroupID   string `json:"group_id"`
	Proof     string `json:"proof"`
}
