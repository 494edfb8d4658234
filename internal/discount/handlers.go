package discount

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

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
	ListAutomaticDiscounts(ctx context.Context) ([]store.AutomaticDiscount, error)
	CreateAutomaticDiscount(ctx context.Context, arg store.CreateDiscountParams) (store.AutomaticDiscount, error)
	UpdateAutomaticDiscount(ctx context.Context, id uuid.UUID, arg store.CreateDiscountParams) (store.AutomaticDiscount, error)
	DeleteAutomaticDiscount(ctx context.Context, id uuid.UUID) error
}

// Handler exposes administrative automatic discount management endpoints.
type Handler struct {
	Q AdminQuerier
}

type discountPayload struct {
	Name          string     `json:"name" validate:"required"`
	Kind          string     `json:"kind" validate:"required,oneof=percentage fixed_amount"`
	Value         float64    `json:"value" validate:"gte=0"`
	MaxDiscount   *float64   `json:"maxDiscount" validate:"omitempty,gt=0"`
	MinOrderValue float64    `json:"minOrderValue" validate:"gte=0"`
	AppliesTo     string     `json:"appliesTo"`
	Priority      int32      `json:"priority" validate:"gte=1"`
	IsStackable   bool       `json:"isStackable"`
	IsActive      *bool      `json:"isActive"`
	StartsAt      *time.Time `json:"startsAt"`
	EndsAt        *time.Time `json:"endsAt"`
}

// List returns all automatic discounts in rank order.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount queries not configured", nil)
		return
	}
	discounts, err := h.Q.ListAutomaticDiscounts(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list discounts", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": discounts})
}

// Create inserts a new automatic discount.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount queries not configured", nil)
		return
	}
	var payload discountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	params, err := buildDiscountParams(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	d, err := h.Q.CreateAutomaticDiscount(r.Context(), params)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create discount", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": d})
}

// Update mutates an existing automatic discount.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount queries not configured", nil)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid discount id", nil)
		return
	}
	var payload discountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	params, err := buildDiscountParams(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	d, err := h.Q.UpdateAutomaticDiscount(r.Context(), id, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "discount not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update discount", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": d})
}

// Delete removes an automatic discount.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount queries not configured", nil)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid discount id", nil)
		return
	}
	if err := h.Q.DeleteAutomaticDiscount(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "discount not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete discount", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildDiscountParams(payload discountPayload) (store.CreateDiscountParams, error) {
	if err := validate.Struct(payload); err != nil {
		return store.CreateDiscountParams{}, err
	}
	kind := strings.TrimSpace(payload.Kind)
	switch kind {
	case promo.KindPercentage:
		if payload.Value <= 0 || payload.Value > 100 {
			return store.CreateDiscountParams{}, errors.New("percentage value must be in (0, 100]")
		}
	case promo.KindFixedAmount:
		if payload.Value <= 0 {
			return store.CreateDiscountParams{}, errors.New("fixed amount value must be positive")
		}
	}
	if payload.StartsAt != nil && payload.EndsAt != nil && !payload.StartsAt.Before(*payload.EndsAt) {
		return store.CreateDiscountParams{}, errors.New("startsAt must be before endsAt")
	}
	appliesTo := strings.TrimSpace(payload.AppliesTo)
	if appliesTo == "" {
		appliesTo = "all"
	}
	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	return store.CreateDiscountParams{
		Name:          strings.TrimSpace(payload.Name),
		Kind:          kind,
		Value:         payload.Value,
		MaxDiscount:   payload.MaxDiscount,
		MinOrderValue: payload.MinOrderValue,
		AppliesTo:     appliesTo,
		Priority:      payload.Priority,
		IsStackable:   payload.IsStackable,
		IsActive:      active,
		StartsAt:      payload.StartsAt,
		EndsAt:        payload.EndsAt,
	}, nil
}
