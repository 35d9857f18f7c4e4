package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/yieldmart/internal/authz"
	"github.com/mmeshcher/yieldmart/internal/model"
	"github.com/mmeshcher/yieldmart/internal/validation"
)

// GetSettings возвращает текущую конфигурацию.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Settings())
}

// UpdateSettings заменяет конфигурацию целиком.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	next := model.DefaultSettings()
	if !h.decode(w, r, &next) {
		return
	}

	res, err := h.service.UpdateSettings(r.Context(), caller, next)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type authorizationRequest struct {
	Resource authz.Resource `json:"resource"`
	Address  string         `json:"address"`
}

// Authorize добавляет адрес в список допуска ресурса.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	h.changeAuthorization(w, r, h.service.Authorize)
}

// Revoke удаляет адрес из списка допуска ресурса.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	h.changeAuthorization(w, r, h.service.Revoke)
}

func (h *Handler) changeAuthorization(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, caller string, res authz.Resource, addr string) error) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req authorizationRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !req.Resource.Valid() {
		writeCode(w, http.StatusUnprocessableEntity, "invalid_resource")
		return
	}
	if !validation.IsValidIdentifier(req.Address) {
		writeCode(w, http.StatusUnprocessableEntity, "invalid_address")
		return
	}

	if err := apply(r.Context(), caller, req.Resource, req.Address); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateTemplate регистрирует шаблон коллекционного актива.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req model.Template
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.service.CreateTemplate(r.Context(), caller, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

type mintRequest struct {
	Owner       string          `json:"owner"`
	Type        model.AssetType `json:"type"`
	Level       int64           `json:"level"`
	MetadataRef string          `json:"metadata_ref"`
}

// MintAsset выпускает актив без оплаты от имени допущенного выпускающего.
func (h *Handler) MintAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req mintRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !validation.IsValidIdentifier(req.Owner) {
		writeCode(w, http.StatusUnprocessableEntity, "invalid_address")
		return
	}

	a, err := h.service.MintAsset(r.Context(), caller, req.Owner, req.Type, req.Level, req.MetadataRef)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// SetPrice задаёт базовую цену типа актива.
func (h *Handler) SetPrice(w http.ResponseWriter, r *http.Request) {
	var req model.BasePrice
	h.updateTable(w, r, &req, func(ctx context.Context, caller string, t model.AssetType) (model.Settings, error) {
		return h.service.SetPrice(ctx, caller, t, req)
	})
}

// SetBaseStats задаёт базовые характеристики типа актива.
func (h *Handler) SetBaseStats(w http.ResponseWriter, r *http.Request) {
	var req model.BaseStats
	h.updateTable(w, r, &req, func(ctx context.Context, caller string, t model.AssetType) (model.Settings, error) {
		return h.service.SetBaseStats(ctx, caller, t, req)
	})
}

type proofOnlyRequest struct {
	ProofOnly bool `json:"proof_only"`
}

// SetProofOnly открывает или закрывает тип только для подтверждённых участников.
func (h *Handler) SetProofOnly(w http.ResponseWriter, r *http.Request) {
	var req proofOnlyRequest
	h.updateTable(w, r, &req, func(ctx context.Context, caller string, t model.AssetType) (model.Settings, error) {
		return h.service.SetProofOnly(ctx, caller, t, req.ProofOnly)
	})
}

func (h *Handler) updateTable(w http.ResponseWriter, r *http.Request, req any, apply func(ctx context.Context, caller string, t model.AssetType) (model.Settings, error)) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if !h.decode(w, r, req) {
		return
	}

	t := model.AssetType(chi.URLParam(r, "type"))
	if t == "" {
		writeCode(w, http.StatusBadRequest, "bad_request")
		return
	}

	res, err := apply(r.Context(), caller, t)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type buybackRequest struct {
	BuybackBps int64 `json:"buyback_bps"`
}

// SetBuyback задаёт долю текущей цены, выплачиваемую при выкупе.
func (h *Handler) SetBuyback(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req buybackRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.SetBuybackBps(r.Context(), caller, req.BuybackBps)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SetExchangeRates задаёт курсы конвертации.
func (h *Handler) SetExchangeRates(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req model.ExchangeRates
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.SetExchangeRates(r.Context(), caller, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
