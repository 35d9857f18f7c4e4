package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/yieldmart/internal/model"
)

type purchaseRequest struct {
	Type        model.AssetType `json:"type"`
	Level       int64           `json:"level"`
	Currency    model.Currency  `json:"currency"`
	MetadataRef string          `json:"metadata_ref"`
}

// PurchaseAsset продаёт актив текущему адресу.
func (h *Handler) PurchaseAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req purchaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Type == "" {
		writeCode(w, http.StatusBadRequest, "bad_request")
		return
	}

	p, err := h.service.PurchaseAsset(r.Context(), caller, req.Type, req.Level, req.Currency, req.MetadataRef)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type collectibleRequest struct {
	Template string `json:"template"`
}

// PurchaseCollectible продаёт коллекционный актив текущему адресу.
func (h *Handler) PurchaseCollectible(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req collectibleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Template == "" {
		writeCode(w, http.StatusBadRequest, "bad_request")
		return
	}

	c, err := h.service.PurchaseCollectible(r.Context(), caller, req.Template)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GetAssets возвращает активы текущего адреса.
func (h *Handler) GetAssets(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	res, err := h.service.Assets(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetCollectibles возвращает коллекционные активы текущего адреса.
func (h *Handler) GetCollectibles(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	res, err := h.service.Collectibles(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetAsset возвращает актив по идентификатору.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}

	a, err := h.service.Asset(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// GetIncome возвращает доход, доступный по активу.
func (h *Handler) GetIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}

	inc, err := h.service.Income(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

// ClaimIncome выплачивает доход по активу текущему адресу.
func (h *Handler) ClaimIncome(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := assetID(w, r)
	if !ok {
		return
	}

	inc, err := h.service.ClaimIncome(r.Context(), caller, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

type bulkClaimRequest struct {
	AssetIDs []uint64 `json:"asset_ids"`
}

type bulkOutcome struct {
	AssetID uint64 `json:"asset_id"`
	Amount  int64  `json:"amount"`
	Error   string `json:"error,omitempty"`
}

type bulkClaimResponse struct {
	Total    int64         `json:"total"`
	Outcomes []bulkOutcome `json:"outcomes"`
}

// ClaimIncomeBulk выплачивает доход по нескольким активам. Ошибка по одному
// активу возвращается в его результате и не влияет на остальные.
func (h *Handler) ClaimIncomeBulk(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req bulkClaimRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.AssetIDs) == 0 {
		writeCode(w, http.StatusBadRequest, "bad_request")
		return
	}

	res := h.service.ClaimIncomeBulk(r.Context(), caller, req.AssetIDs)

	resp := bulkClaimResponse{Total: res.Total, Outcomes: make([]bulkOutcome, 0, len(res.Outcomes))}
	for _, o := range res.Outcomes {
		out := bulkOutcome{AssetID: o.AssetID, Amount: o.Amount}
		if o.Err != nil {
			out.Error = model.ErrorCode(o.Err)
		}
		resp.Outcomes = append(resp.Outcomes, out)
	}
	writeJSON(w, http.StatusOK, resp)
}

type buybackResponse struct {
	AssetID uint64 `json:"asset_id"`
	Amount  int64  `json:"amount"`
}

// GetBuyback возвращает сумму выкупа актива.
func (h *Handler) GetBuyback(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}

	amount, err := h.service.BuybackPrice(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buybackResponse{AssetID: id, Amount: amount})
}

// Sell продаёт актив текущего адреса казне.
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := assetID(w, r)
	if !ok {
		return
	}

	sale, err := h.service.SellToContract(r.Context(), caller, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func assetID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeCode(w, http.StatusBadRequest, "invalid_asset_id")
		return 0, false
	}
	return id, true
}
