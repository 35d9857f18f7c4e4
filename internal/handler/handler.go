// Package handler содержит HTTP-обработчики API движка токеномики.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/yieldmart/internal/authz"
	"github.com/mmeshcher/yieldmart/internal/buyback"
	"github.com/mmeshcher/yieldmart/internal/discount"
	"github.com/mmeshcher/yieldmart/internal/identity"
	"github.com/mmeshcher/yieldmart/internal/middleware"
	"github.com/mmeshcher/yieldmart/internal/model"
	"github.com/mmeshcher/yieldmart/internal/service"
	"github.com/mmeshcher/yieldmart/internal/validation"
	"github.com/mmeshcher/yieldmart/internal/yield"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	OpenSession(ctx context.Context, addr string, proof model.IdentityProof) error
	AuthenticateOwner(password string) (string, error)

	Claim(ctx context.Context, caller, signal string, proof model.IdentityProof, region string) (identity.ClaimResult, error)
	Claimant(ctx context.Context, addr string) (model.Claimant, bool, error)
	Price(assetType model.AssetType, level int64) (model.PriceQuote, error)
	Convert(amount int64, direction model.Direction) (int64, error)
	ApplicableDiscount(ctx context.Context, addr string) (discount.Discount, error)
	DiscountedPrice(ctx context.Context, addr string, assetType model.AssetType, level int64, currency model.Currency) (discount.DiscountedPrice, error)
	PurchaseAsset(ctx context.Context, buyer string, assetType model.AssetType, level int64, currency model.Currency, metadataRef string) (service.Purchase, error)
	PurchaseCollectible(ctx context.Context, buyer, templateName string) (model.Collectible, error)
	MintAsset(ctx context.Context, caller, owner string, assetType model.AssetType, level int64, metadataRef string) (model.Asset, error)
	Asset(ctx context.Context, id uint64) (model.Asset, error)
	Assets(ctx context.Context, owner string) ([]model.Asset, error)
	Collectibles(ctx context.Context, owner string) ([]model.Collectible, error)
	Income(ctx context.Context, id uint64) (yield.Income, error)
	ClaimIncome(ctx context.Context, caller string, id uint64) (yield.Income, error)
	ClaimIncomeBulk(ctx context.Context, caller string, ids []uint64) yield.BulkResult
	BuybackPrice(ctx context.Context, id uint64) (int64, error)
	SellToContract(ctx context.Context, caller string, id uint64) (buyback.Sale, error)
	LedgerEntry(ctx context.Context, addr string) (model.PurchaseLedgerEntry, error)
	Balance(ctx context.Context, addr string, currency model.Currency) (int64, error)
	Events(ctx context.Context, addr string, limit int) ([]model.Event, error)

	Settings() model.Settings
	UpdateSettings(ctx context.Context, caller string, next model.Settings) (model.Settings, error)
	SetPrice(ctx context.Context, caller string, t model.AssetType, p model.BasePrice) (model.Settings, error)
	SetBaseStats(ctx context.Context, caller string, t model.AssetType, st model.BaseStats) (model.Settings, error)
	SetProofOnly(ctx context.Context, caller string, t model.AssetType, only bool) (model.Settings, error)
	SetBuybackBps(ctx context.Context, caller string, bps int64) (model.Settings, error)
	SetExchangeRates(ctx context.Context, caller string, rates model.ExchangeRates) (model.Settings, error)
	Authorize(ctx context.Context, caller string, res authz.Resource, addr string) error
	Revoke(ctx context.Context, caller string, res authz.Resource, addr string) error
	CreateTemplate(ctx context.Context, caller string, t model.Template) (model.Template, error)
}

// Handler реализует HTTP-обработчики API движка токеномики.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	metrics        http.Handler
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов. metrics может
// быть nil, тогда /metrics не публикуется.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, metrics http.Handler) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		metrics:        metrics,
	}
}

type sessionRequest struct {
	Address string              `json:"address"`
	Proof   model.IdentityProof `json:"proof"`
}

type sessionResponse struct {
	Address string `json:"address"`
}

// Session открывает сессию для адреса, подтверждённого доказательством личности.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	if !validation.IsValidIdentifier(req.Address) {
		writeCode(w, http.StatusUnprocessableEntity, "invalid_address")
		return
	}
	if req.Proof.Nullifier == "" || req.Proof.Proof == "" {
		writeCode(w, http.StatusBadRequest, "invalid_proof")
		return
	}

	if err := h.service.OpenSession(r.Context(), req.Address, req.Proof); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, req.Address)
	writeJSON(w, http.StatusOK, sessionResponse{Address: req.Address})
}

type ownerLoginRequest struct {
	Password string `json:"password"`
}

// OwnerLogin открывает сессию владельца по паролю.
func (h *Handler) OwnerLogin(w http.ResponseWriter, r *http.Request) {
	var req ownerLoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	addr, err := h.service.AuthenticateOwner(req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, addr)
	writeJSON(w, http.StatusOK, sessionResponse{Address: addr})
}

// GetPrice возвращает цену типа актива на уровне.
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.ParseInt(chi.URLParam(r, "level"), 10, 64)
	if err != nil {
		writeCode(w, http.StatusBadRequest, "invalid_level")
		return
	}

	quote, err := h.service.Price(model.AssetType(chi.URLParam(r, "type")), level)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

type convertResponse struct {
	Amount    int64           `json:"amount"`
	Direction model.Direction `json:"direction"`
	Result    int64           `json:"result"`
}

// Convert переводит сумму между валютами по фиксированному курсу.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		writeCode(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	direction := model.Direction(r.URL.Query().Get("direction"))

	res, err := h.service.Convert(amount, direction)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{Amount: amount, Direction: direction, Result: res})
}

type claimRequest struct {
	Signal string              `json:"signal"`
	Proof  model.IdentityProof `json:"proof"`
	Region string              `json:"region"`
}

// Claim выдаёт ежедневную сумму текущему адресу по доказательству личности.
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req claimRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.Proof.Nullifier == "" || req.Proof.Proof == "" {
		writeCode(w, http.StatusBadRequest, "invalid_proof")
		return
	}
	if !validation.IsValidRegion(req.Region) {
		writeCode(w, http.StatusUnprocessableEntity, "invalid_region")
		return
	}

	res, err := h.service.Claim(r.Context(), caller, req.Signal, req.Proof, req.Region)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetClaimant возвращает данные участника для текущего адреса.
func (h *Handler) GetClaimant(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	c, found, err := h.service.Claimant(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !found {
		writeCode(w, http.StatusNotFound, "claimant_not_found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetDiscount возвращает скидку, которую получит текущий адрес.
func (h *Handler) GetDiscount(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	d, err := h.service.ApplicableDiscount(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetDiscountedPrice возвращает цену типа и уровня со скидкой текущего адреса.
func (h *Handler) GetDiscountedPrice(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	level, err := strconv.ParseInt(chi.URLParam(r, "level"), 10, 64)
	if err != nil {
		writeCode(w, http.StatusBadRequest, "invalid_level")
		return
	}

	currency := model.Currency(r.URL.Query().Get("currency"))
	if currency == "" {
		currency = model.CurrencyPrimary
	}

	price, err := h.service.DiscountedPrice(r.Context(), caller, model.AssetType(chi.URLParam(r, "type")), level, currency)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, price)
}

// GetLedger возвращает накопительную статистику текущего адреса.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	entry, err := h.service.LedgerEntry(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

const (
	defaultEventsLimit = 50
	maxEventsLimit     = 500
)

// GetEvents возвращает последние события текущего адреса.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	limit := defaultEventsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeCode(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = min(n, maxEventsLimit)
	}

	res, err := h.service.Events(r.Context(), caller, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type balanceResponse struct {
	Primary   int64 `json:"primary"`
	Secondary int64 `json:"secondary"`
}

// GetBalance возвращает балансы текущего адреса в обеих валютах.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var (
		resp balanceResponse
		err  error
	)
	if resp.Primary, err = h.service.Balance(r.Context(), caller, model.CurrencyPrimary); err != nil {
		h.writeError(w, r, err)
		return
	}
	if resp.Secondary, err = h.service.Balance(r.Context(), caller, model.CurrencySecondary); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	addr, ok := middleware.GetAddressFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return "", false
	}
	return addr, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeCode(w, http.StatusBadRequest, "bad_request")
		return false
	}
	return true
}
