package variant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/promo-api/internal/common"
	"github.com/noah-isme/promo-api/internal/store"
)

var validate = validator.New()

// AdminQuerier captures the store methods the admin endpoints require.
type AdminQuerier interface {
	UpsertVariantPricing(ctx context.Context, arg store.UpsertVariantPricingParams) (store.VariantPricing, error)
}

// Handler exposes variant price lookup and administrative pricing upserts.
type Handler struct {
	Q   AdminQuerier
	Svc *Service
}

type pricingPayload struct {
	VariantID     string     `json:"variantId"`
	MRP           float64    `json:"mrp" validate:"required,gt=0"`
	SalePrice     *float64   `json:"salePrice" validate:"omitempty,gt=0"`
	EffectiveFrom *time.Time `json:"effectiveFrom"`
	EffectiveTo   *time.Time `json:"effectiveTo"`
	IsActive      *bool      `json:"isActive"`
}

// GetPrice returns the current selling price for a variant.
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "variant service not configured", nil)
		return
	}
	variantID := strings.TrimSpace(chi.URLParam(r, "id"))
	if variantID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "variant id is required", nil)
		return
	}
	price, err := h.Svc.GetPrice(r.Context(), variantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "variant pricing not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to resolve variant price", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": price})
}

// Upsert creates or replaces the pricing row for a variant and invalidates
// its cached price.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "variant queries not configured", nil)
		return
	}
	var payload pricingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if id := strings.TrimSpace(chi.URLParam(r, "id")); id != "" {
		payload.VariantID = id
	}
	if strings.TrimSpace(payload.VariantID) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "variant id is required", nil)
		return
	}
	if err := validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if payload.SalePrice != nil && *payload.SalePrice > payload.MRP {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "sale price must not exceed mrp", nil)
		return
	}
	if payload.EffectiveFrom != nil && payload.EffectiveTo != nil && !payload.EffectiveFrom.Before(*payload.EffectiveTo) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "effectiveFrom must be before effectiveTo", nil)
		return
	}
	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	row, err := h.Q.UpsertVariantPricing(r.Context(), store.UpsertVariantPricingParams{
		VariantID:     strings.TrimSpace(payload.VariantID),
		MRP:           payload.MRP,
		SalePrice:     payload.SalePrice,
		EffectiveFrom: payload.EffectiveFrom,
		EffectiveTo:   payload.EffectiveTo,
		IsActive:      active,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to upsert variant pricing", nil)
		return
	}
	if h.Svc != nil {
		_ = h.Svc.Cache.Invalidate(r.Context(), row.VariantID)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": row})
}
