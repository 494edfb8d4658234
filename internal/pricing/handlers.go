package pricing

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/promo-api/internal/common"
	"github.com/noah-isme/promo-api/internal/identity"
	"github.com/noah-isme/promo-api/internal/obs"
	"github.com/noah-isme/promo-api/internal/promo"
)

// Handler exposes the cart pricing endpoints.
type Handler struct {
	Agg         *Aggregator
	TaxRateBps  int
	ShippingFee float64
}

type quoteRequest struct {
	Cart       promo.Cart `json:"cart"`
	CouponCode string     `json:"couponCode"`
	Identity   *string    `json:"identity"`
}

// Quote returns the discount breakdown for a cart snapshot.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	start := time.Now()
	breakdown := h.Agg.Calculate(r.Context(), req.Cart, req.CouponCode, callerIdentity(r, req.Identity))
	recordEvaluation(start)
	common.JSON(w, http.StatusOK, map[string]any{"data": breakdown})
}

// Summary returns the breakdown plus tax, shipping, and the payable total.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	start := time.Now()
	summary := h.Agg.Summarize(r.Context(), req.Cart, req.CouponCode, callerIdentity(r, req.Identity), h.TaxRateBps, h.ShippingFee)
	recordEvaluation(start)
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (quoteRequest, bool) {
	if h.Agg == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing aggregator not configured", nil)
		return quoteRequest{}, false
	}
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return quoteRequest{}, false
	}
	if req.Cart.Subtotal < 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cart subtotal must not be negative", nil)
		return quoteRequest{}, false
	}
	req.CouponCode = strings.TrimSpace(req.CouponCode)
	return req, true
}

func recordEvaluation(start time.Time) {
	if obs.PricingEvaluationTotal != nil {
		obs.PricingEvaluationTotal.Inc()
	}
	if obs.PricingEvaluationLatency != nil {
		obs.PricingEvaluationLatency.Observe(obs.DurationMillis(time.Since(start)))
	}
}

func callerIdentity(r *http.Request, fallback *string) *string {
	if id, ok := identity.FromContext(r.Context()); ok && id != "" {
		return &id
	}
	if fallback != nil && strings.TrimSpace(*fallback) != "" {
		trimmed := strings.TrimSpace(*fallback)
		return &trimmed
	}
	return nil
}
