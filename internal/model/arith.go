package model

import (
	"fmt"
	"math/bits"
)

// MulDiv вычисляет a*b/d с округлением вниз без промежуточного переполнения.
// Аргументы не могут быть отрицательными, d должен быть положительным.
// Если результат не помещается в int64, возвращается ErrAmountOverflow.
func MulDiv(a, b, d int64) (int64, error) {
	if a < 0 || b < 0 || d <= 0 {
		return 0, fmt.Errorf("%w: %d*%d/%d", ErrInvalidAmount, a, b, d)
	}

	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= uint64(d) {
		return 0, fmt.Errorf("%w: %d*%d/%d", ErrAmountOverflow, a, b, d)
	}
	q, _ := bits.Div64(hi, lo, uint64(d))
	if q > uint64(maxInt64) {
		return 0, fmt.Errorf("%w: %d*%d/%d", ErrAmountOverflow, a, b, d)
	}
	return int64(q), nil
}

// AddChecked складывает неотрицательные значения с проверкой переполнения.
func AddChecked(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("%w: %d+%d", ErrInvalidAmount, a, b)
	}
	if a > maxInt64-b {
		return 0, fmt.Errorf("%w: %d+%d", ErrAmountOverflow, a, b)
	}
	return a + b, nil
}

// ValidateLevel возвращает ErrInvalidLevel для уровня вне [1, MaxLevel].
func ValidateLevel(level int64) error {
	if level < 1 || level > MaxLevel {
		return fmt.Errorf("%w: %d, allowed 1..%d", ErrInvalidLevel, level, MaxLevel)
	}
	return nil
}

const maxInt64 = 1<<63 - 1
