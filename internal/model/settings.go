package model

import "time"

// BasePrice задаёт базовую цену типа актива первого уровня.
type BasePrice struct {
	Primary   int64 `json:"primary"`
	Secondary int64 `json:"secondary"`
	Active    bool  `json:"active"`
}

// BaseStats задаёт базовые характеристики типа актива.
type BaseStats struct {
	StatusPoints         int64 `json:"status_points"`
	YieldRateBps         int64 `json:"yield_rate_bps"`
	YieldRateBpsPerLevel int64 `json:"yield_rate_bps_per_level"`
}

// DiscountSettings задаёт ставки скидок.
type DiscountSettings struct {
	NewUserBps       int64 `json:"new_user_bps"`
	LoyaltyBps       int64 `json:"loyalty_bps"`
	LoyaltyThreshold int64 `json:"loyalty_threshold"` // 0 выключает скидку лояльности
}

// YieldSettings задаёт параметры начисления дохода.
type YieldSettings struct {
	GlobalBaseRate     int64 `json:"global_base_rate"`
	PerDayBonusBps     int64 `json:"per_day_bonus_bps"`
	MaxHoldingBonusBps int64 `json:"max_holding_bonus_bps"`
}

// ClaimSettings задаёт суммы ежедневной выдачи.
type ClaimSettings struct {
	DailyAmount  int64         `json:"daily_amount"`
	SigningBonus int64         `json:"signing_bonus"`
	Cooldown     time.Duration `json:"cooldown"`
}

// Rate задаёт фиксированный курс в виде дроби Numerator/Denominator.
type Rate struct {
	Numerator   int64 `json:"numerator"`
	Denominator int64 `json:"denominator"`
}

// ExchangeRates задаёт курсы для каждого направления независимо.
type ExchangeRates struct {
	PrimaryToSecondary Rate `json:"primary_to_secondary"`
	SecondaryToPrimary Rate `json:"secondary_to_primary"`
}

// Settings хранит снимок административной конфигурации экономики.
// Снимок неизменяем: изменения создают новый экземпляр.
type Settings struct {
	Prices        map[AssetType]BasePrice `json:"prices"`
	BaseStats     map[AssetType]BaseStats `json:"base_stats"`
	ProofOnly     map[AssetType]bool      `json:"proof_only"`
	Discount      DiscountSettings        `json:"discount"`
	Yield         YieldSettings           `json:"yield"`
	Claim         ClaimSettings           `json:"claim"`
	BuybackBps    int64                   `json:"buyback_bps"`
	ExchangeRates ExchangeRates           `json:"exchange_rates"`
}

// DefaultSettings возвращает конфигурацию по умолчанию. Таблицы цен и характеристик пусты.
func DefaultSettings() Settings {
	return Settings{
		Prices:    map[AssetType]BasePrice{},
		BaseStats: map[AssetType]BaseStats{},
		ProofOnly: map[AssetType]bool{},
		Discount: DiscountSettings{
			NewUserBps:       1500,
			LoyaltyBps:       1000,
			LoyaltyThreshold: 30,
		},
		Yield: YieldSettings{
			GlobalBaseRate:     1_000_000,
			PerDayBonusBps:     10,
			MaxHoldingBonusBps: 500,
		},
		Claim: ClaimSettings{
			DailyAmount:  1_000_000,
			SigningBonus: 10_000_000,
			Cooldown:     Day,
		},
		BuybackBps: 7500,
	}
}

// Clone возвращает глубокую копию снимка.
func (s Settings) Clone() Settings {
	c := s
	c.Prices = make(map[AssetType]BasePrice, len(s.Prices))
	for k, v := range s.Prices {
		c.Prices[k] = v
	}
	c.BaseStats = make(map[AssetType]BaseStats, len(s.BaseStats))
	for k, v := range s.BaseStats {
		c.BaseStats[k] = v
	}
	c.ProofOnly = make(map[AssetType]bool, len(s.ProofOnly))
	for k, v := range s.ProofOnly {
		c.ProofOnly[k] = v
	}
	return c
}
