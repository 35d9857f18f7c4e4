// Package discount выбирает скидку покупателя и проверяет право на покупку.
package discount

import (
	"fmt"

	"github.com/mmeshcher/yieldmart/internal/model"
	"github.com/mmeshcher/yieldmart/internal/pricing"
)

// Discount содержит выбранную скидку вместе с контекстом, по которому она выбрана.
type Discount struct {
	Context model.DiscountContext `json:"context"`
	RateBps int64                 `json:"rate_bps"`
}

// DiscountedPrice описывает цену до и после применения скидки.
type DiscountedPrice struct {
	OriginalPrice   int64 `json:"original_price"`
	DiscountedPrice int64 `json:"discounted_price"`
	RateBps         int64 `json:"rate_bps"`
}

// GetApplicableDiscount выбирает не более одной скидки. Скидка новичка проверяется
// раньше скидки лояльности, скидки не суммируются.
func GetApplicableDiscount(cfg model.DiscountSettings, dc model.DiscountContext) Discount {
	d := Discount{Context: dc}
	switch {
	case dc.IsFirstPurchase:
		d.RateBps = cfg.NewUserBps
	case cfg.LoyaltyThreshold > 0 && dc.CheckInCount >= cfg.LoyaltyThreshold:
		d.RateBps = cfg.LoyaltyBps
	}
	d.RateBps = clampBps(d.RateBps)
	return d
}

// Apply применяет ставку к неотрицательной цене с округлением вниз.
func Apply(price, rateBps int64) int64 {
	v, err := model.MulDiv(price, model.BasisPoints-clampBps(rateBps), model.BasisPoints)
	if err != nil {
		return 0
	}
	return v
}

// CalculateDiscountedPrice возвращает цену типа и уровня в указанной валюте со скидкой.
func CalculateDiscountedPrice(s model.Settings, assetType model.AssetType, level int64, currency model.Currency, dc model.DiscountContext) (DiscountedPrice, error) {
	if !currency.Valid() {
		return DiscountedPrice{}, fmt.Errorf("%w: %s", model.ErrInvalidCurrency, currency)
	}
	quote, err := pricing.GetPrice(s.Prices, assetType, level)
	if err != nil {
		return DiscountedPrice{}, err
	}

	d := GetApplicableDiscount(s.Discount, dc)
	original := quote.Amount(currency)
	return DiscountedPrice{
		OriginalPrice:   original,
		DiscountedPrice: Apply(original, d.RateBps),
		RateBps:         d.RateBps,
	}, nil
}

// CheckEligibility возвращает ErrNotEligible, если тип доступен только подтверждённым
// участникам, а у покупателя нет подтверждения.
func CheckEligibility(proofOnly map[model.AssetType]bool, assetType model.AssetType, dc model.DiscountContext) error {
	if proofOnly[assetType] && !dc.HasIdentityProof {
		return fmt.Errorf("%w: %s requires identity proof", model.ErrNotEligible, assetType)
	}
	return nil
}

func clampBps(v int64) int64 {
	if v < 0 {
		return 0
	}
	if v > model.BasisPoints {
		return model.BasisPoints
	}
	return v
}
