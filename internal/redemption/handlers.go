package redemption

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/promo-api/internal/common"
	"github.com/noah-isme/promo-api/internal/identity"
)

var validate = validator.New()

// Handler accepts settlement requests and hands them to the queue. The order
// service calls this after payment capture; the actual ledger write happens
// in the worker.
type Handler struct {
	Enqueuer Enqueuer
}

type redeemRequest struct {
	Code     string  `json:"code" validate:"required"`
	Identity *string `json:"identity"`
	OrderID  string  `json:"orderId" validate:"required"`
	Amount   float64 `json:"amount" validate:"gte=0"`
}

// Enqueue accepts a settlement request and queues it for processing.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	caller := req.Identity
	if id, ok := identity.FromContext(r.Context()); ok && id != "" {
		caller = &id
	}
	payload := RedeemPayload{
		Code:     strings.ToUpper(strings.TrimSpace(req.Code)),
		Identity: caller,
		OrderID:  strings.TrimSpace(req.OrderID),
		Amount:   req.Amount,
	}
	if err := h.Enqueuer.Enqueue(r.Context(), payload); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to queue redemption", nil)
		return
	}
	common.JSON(w, http.StatusAccepted, map[string]any{"data": map[string]any{
		"status":  "queued",
		"code":    payload.Code,
		"orderId": payload.OrderID,
	}})
}
