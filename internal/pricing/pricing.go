// Package pricing вычисляет цены активов в двух валютах и курсовую конвертацию.
package pricing

import (
	"fmt"

	"github.com/mmeshcher/yieldmart/internal/model"
)

// levelStepPercent задаёт надбавку к цене за каждый уровень выше первого.
const levelStepPercent = 20

// LevelMultiplierPercent возвращает множитель уровня в процентах: 100 + (level-1)*20.
func LevelMultiplierPercent(level int64) int64 {
	return 100 + (level-1)*levelStepPercent
}

// GetPrice возвращает цену типа актива заданного уровня по таблице prices.
func GetPrice(prices map[model.AssetType]model.BasePrice, assetType model.AssetType, level int64) (model.PriceQuote, error) {
	if err := model.ValidateLevel(level); err != nil {
		return model.PriceQuote{}, err
	}
	base, ok := prices[assetType]
	if !ok {
		return model.PriceQuote{}, fmt.Errorf("%w: %s", model.ErrPriceNotConfigured, assetType)
	}

	mult := LevelMultiplierPercent(level)
	primary, err := model.MulDiv(base.Primary, mult, 100)
	if err != nil {
		return model.PriceQuote{}, fmt.Errorf("primary price of %s: %w", assetType, err)
	}
	secondary, err := model.MulDiv(base.Secondary, mult, 100)
	if err != nil {
		return model.PriceQuote{}, fmt.Errorf("secondary price of %s: %w", assetType, err)
	}

	return model.PriceQuote{
		PrimaryPrice:   primary,
		SecondaryPrice: secondary,
		IsActive:       base.Active,
	}, nil
}

// Convert переводит сумму по фиксированному курсу направления. Курсы направлений
// задаются независимо и не обязаны быть взаимно обратными.
func Convert(rates model.ExchangeRates, amount int64, direction model.Direction) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: %d", model.ErrInvalidAmount, amount)
	}

	var rate model.Rate
	switch direction {
	case model.PrimaryToSecondary:
		rate = rates.PrimaryToSecondary
	case model.SecondaryToPrimary:
		rate = rates.SecondaryToPrimary
	default:
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidDirection, direction)
	}

	if rate.Numerator <= 0 || rate.Denominator <= 0 {
		return 0, fmt.Errorf("%w: exchange rate %s", model.ErrPriceNotConfigured, direction)
	}

	return model.MulDiv(amount, rate.Numerator, rate.Denominator)
}
