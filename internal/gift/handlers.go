package gift

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/promo-api/internal/common"
	"github.com/noah-isme/promo-api/internal/promo"
	"github.com/noah-isme/promo-api/internal/store"
)

var validate = validator.New()

// AdminQuerier captures the store methods the admin endpoints require.
type AdminQuerier interface {
	ListFreeGiftRules(ctx context.Context) ([]store.FreeGiftRule, error)
	CreateFreeGiftRule(ctx context.Context, arg store.CreateGiftParams) (store.FreeGiftRule, error)
	UpdateFreeGiftRule(ctx context.Context, id uuid.UUID, arg store.CreateGiftParams) (store.FreeGiftRule, error)
	DeleteFreeGiftRule(ctx context.Context, id uuid.UUID) error
}

// Handler exposes gift evaluation and administrative rule management.
type Handler struct {
	Q   AdminQuerier
	Svc *Service
}

type giftPayload struct {
	Name              string   `json:"name" validate:"required"`
	TriggerType       string   `json:"triggerType" validate:"required,oneof=cart_value product_purchase"`
	TriggerValue      *float64 `json:"triggerValue"`
	TriggerProductIDs []string `json:"triggerProductIds"`
	GiftProductID     string   `json:"giftProductId" validate:"required"`
	GiftVariantID     *string  `json:"giftVariantId"`
	GiftQuantity      int32    `json:"giftQuantity"`
	IsActive          *bool    `json:"isActive"`
}

type evaluateRequest struct {
	Cart promo.Cart `json:"cart"`
}

type evaluateResponse struct {
	Qualified bool   `json:"qualified"`
	Grant     *Grant `json:"grant,omitempty"`
}

// Evaluate reports whether the cart earns the rule's gift.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "gift service not configured", nil)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid gift rule id", nil)
		return
	}
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if req.Cart.Subtotal < 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cart subtotal must not be negative", nil)
		return
	}
	grant, err := h.Svc.Evaluate(r.Context(), id, req.Cart)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "free gift rule not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to evaluate gift rule", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": evaluateResponse{Qualified: grant != nil, Grant: grant}})
}

// List returns all free gift rules.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "gift queries not configured", nil)
		return
	}
	rules, err := h.Q.ListFreeGiftRules(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list gift rules", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rules})
}

// Create inserts a new free gift rule after validating it.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "gift queries not configured", nil)
		return
	}
	params, err := decodeGiftPayload(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	rule, err := h.Q.CreateFreeGiftRule(r.Context(), params)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create gift rule", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": rule})
}

// Update replaces an existing free gift rule after validating it.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "gift queries not configured", nil)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid gift rule id", nil)
		return
	}
	params, err := decodeGiftPayload(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	rule, err := h.Q.UpdateFreeGiftRule(r.Context(), id, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "free gift rule not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update gift rule", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rule})
}

// Delete removes a free gift rule.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "gift queries not configured", nil)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid gift rule id", nil)
		return
	}
	if err := h.Q.DeleteFreeGiftRule(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "free gift rule not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete gift rule", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeGiftPayload(r *http.Request) (store.CreateGiftParams, error) {
	var payload giftPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return store.CreateGiftParams{}, errors.New("invalid payload")
	}
	if err := validate.Struct(payload); err != nil {
		return store.CreateGiftParams{}, err
	}
	qty := payload.GiftQuantity
	if qty == 0 {
		qty = 1
	}
	if err := ValidateRule(payload.TriggerType, payload.TriggerValue, payload.TriggerProductIDs, payload.GiftProductID, qty); err != nil {
		return store.CreateGiftParams{}, err
	}
	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	return store.CreateGiftParams{
		Name:              strings.TrimSpace(payload.Name),
		TriggerType:       payload.TriggerType,
		TriggerValue:      payload.TriggerValue,
		TriggerProductIDs: payload.TriggerProductIDs,
		GiftProductID:     payload.GiftProductID,
		GiftVariantID:     payload.GiftVariantID,
		GiftQuantity:      qty,
		IsActive:          active,
	}, nil
}
