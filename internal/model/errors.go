package model

import "errors"

var (
	// ErrDuplicateProof возвращается при повторном использовании nullifier.
	ErrDuplicateProof = errors.New("duplicate proof")
	// ErrClaimTooSoon возвращается, если с прошлого получения прошло меньше суток.
	ErrClaimTooSoon = errors.New("claim too soon")
	// ErrPriceNotConfigured возвращается, если цена для типа не задана.
	ErrPriceNotConfigured = errors.New("price not configured")
	// ErrNotEligible возвращается, если покупатель не имеет права на покупку.
	ErrNotEligible = errors.New("not eligible")
	// ErrInsufficientFunds возвращается реестром токенов при нехватке средств.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrUnauthorized возвращается при отсутствии прав на операцию.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNothingToClaim возвращается, если накопленный доход равен нулю.
	ErrNothingToClaim = errors.New("nothing to claim")
	// ErrInsufficientLiquidity возвращается, если казне не хватает средств на выкуп.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrSupplyExhausted возвращается, если тираж шаблона исчерпан.
	ErrSupplyExhausted = errors.New("supply exhausted")

	ErrInvalidLevel           = errors.New("invalid level")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidCurrency        = errors.New("invalid currency")
	ErrInvalidDirection       = errors.New("invalid conversion direction")
	ErrSignalMismatch         = errors.New("signal does not match caller")
	ErrInvalidProof           = errors.New("invalid identity proof")
	ErrAssetNotFound          = errors.New("asset not found")
	ErrTemplateNotFound       = errors.New("template not found")
	ErrTemplateExists         = errors.New("template already exists")
	ErrBaseStatsNotConfigured = errors.New("base stats not configured")
	// ErrInvalidCredentials возвращается при неверном пароле владельца.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAmountOverflow возвращается, если результат расчёта не помещается в int64.
	ErrAmountOverflow = errors.New("amount overflow")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrDuplicateProof, "duplicate_proof"},
	{ErrClaimTooSoon, "claim_too_soon"},
	{ErrPriceNotConfigured, "price_not_configured"},
	{ErrNotEligible, "not_eligible"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrUnauthorized, "unauthorized"},
	{ErrNothingToClaim, "nothing_to_claim"},
	{ErrInsufficientLiquidity, "insufficient_liquidity"},
	{ErrSupplyExhausted, "supply_exhausted"},
	{ErrInvalidLevel, "invalid_level"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrInvalidCurrency, "invalid_currency"},
	{ErrInvalidDirection, "invalid_direction"},
	{ErrSignalMismatch, "signal_mismatch"},
	{ErrInvalidProof, "invalid_proof"},
	{ErrAssetNotFound, "asset_not_found"},
	{ErrTemplateNotFound, "template_not_found"},
	{ErrTemplateExists, "template_exists"},
	{ErrBaseStatsNotConfigured, "base_stats_not_configured"},
	{ErrAmountOverflow, "amount_overflow"},
	{ErrInvalidCredentials, "invalid_credentials"},
}

// ErrorCode возвращает машинный код ошибки или "internal", если ошибка не доменная.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}
