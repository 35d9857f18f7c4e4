package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/yieldmart/internal/identity"
	"github.com/mmeshcher/yieldmart/internal/model"
)

var statusByCode = map[string]int{
	"duplicate_proof":           http.StatusConflict,
	"claim_too_soon":            http.StatusTooManyRequests,
	"price_not_configured":      http.StatusNotFound,
	"not_eligible":              http.StatusForbidden,
	"insufficient_funds":        http.StatusPaymentRequired,
	"unauthorized":              http.StatusForbidden,
	"nothing_to_claim":          http.StatusConflict,
	"insufficient_liquidity":    http.StatusConflict,
	"supply_exhausted":          http.StatusGone,
	"invalid_level":             http.StatusUnprocessableEntity,
	"invalid_amount":            http.StatusUnprocessableEntity,
	"invalid_currency":          http.StatusUnprocessableEntity,
	"invalid_direction":         http.StatusUnprocessableEntity,
	"invalid_credentials":       http.StatusUnauthorized,
	"amount_overflow":           http.StatusUnprocessableEntity,
	"signal_mismatch":           http.StatusUnprocessableEntity,
	"invalid_proof":             http.StatusUnprocessableEntity,
	"asset_not_found":           http.StatusNotFound,
	"template_not_found":        http.StatusNotFound,
	"template_exists":           http.StatusConflict,
	"base_stats_not_configured": http.StatusNotFound,
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError отвечает кодом доменной ошибки. Недоменные ошибки пишутся в журнал
// и отдаются клиенту как internal.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, identity.ErrVerifierNotConfigured) {
		writeCode(w, http.StatusServiceUnavailable, "verifier_unavailable")
		return
	}

	code := model.ErrorCode(err)
	status, ok := statusByCode[code]
	if !ok {
		h.logger.Error("request failed",
			zap.Error(err), zap.String("method", r.Method), zap.String("uri", r.RequestURI))
		writeCode(w, http.StatusInternalServerError, code)
		return
	}

	h.logger.Debug("request rejected", zap.String("code", code), zap.Error(err))
	writeCode(w, status, code)
}

func writeCode(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{Error: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
