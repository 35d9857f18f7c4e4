package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/yieldmart/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware движка токеномики.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.Session)
		r.Post("/session/owner", h.OwnerLogin)
		r.Get("/prices/{type}/{level}", h.GetPrice)
		r.Get("/convert", h.Convert)
		r.Get("/assets/{id}", h.GetAsset)
		r.Get("/assets/{id}/income", h.GetIncome)
		r.Get("/assets/{id}/buyback", h.GetBuyback)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/claims", h.Claim)
			r.Get("/claimant", h.GetClaimant)
			r.Get("/discount", h.GetDiscount)
			r.Get("/discount/{type}/{level}", h.GetDiscountedPrice)
			r.Get("/ledger", h.GetLedger)
			r.Get("/balance", h.GetBalance)
			r.Get("/events", h.GetEvents)

			r.Get("/assets", h.GetAssets)
			r.Post("/assets/purchase", h.PurchaseAsset)
			r.Post("/assets/income/claim", h.ClaimIncomeBulk)
			r.Post("/assets/{id}/income/claim", h.ClaimIncome)
			r.Post("/assets/{id}/sell", h.Sell)

			r.Get("/collectibles", h.GetCollectibles)
			r.Post("/collectibles/purchase", h.PurchaseCollectible)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/settings", h.GetSettings)
				r.Put("/settings", h.UpdateSettings)
				r.Put("/prices/{type}", h.SetPrice)
				r.Put("/base-stats/{type}", h.SetBaseStats)
				r.Put("/proof-only/{type}", h.SetProofOnly)
				r.Put("/buyback", h.SetBuyback)
				r.Put("/exchange-rates", h.SetExchangeRates)
				r.Post("/authorizations", h.Authorize)
				r.Delete("/authorizations", h.Revoke)
				r.Post("/templates", h.CreateTemplate)
				r.Post("/assets", h.MintAsset)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeCode(w, http.StatusNotFound, "not_found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeCode(w, http.StatusMethodNotAllowed, "method_not_allowed")
	})

	return r
}
