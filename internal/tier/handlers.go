package tier

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
	ListTierDiscounts(ctx context.Context) ([]store.TierDiscount, error)
	CreateTierDiscount(ctx context.Context, name, kind string, levels []store.TierLevel, isActive bool) (store.TierDiscount, error)
	UpdateTierDiscount(ctx context.Context, id uuid.UUID, name, kind string, levels []store.TierLevel, isActive bool) (store.TierDiscount, error)
	DeleteTierDiscount(ctx context.Context, id uuid.UUID) error
}

// Handler exposes tier resolution and administrative ladder management.
type Handler struct {
	Q   AdminQuerier
	Svc *Service
}

type tierPayload struct {
	Name     string            `json:"name" validate:"required"`
	Kind     string            `json:"kind" validate:"required,oneof=cart_value cart_quantity"`
	Levels   []store.TierLevel `json:"levels" validate:"required,min=1"`
	IsActive *bool             `json:"isActive"`
}

type resolveRequest struct {
	Cart promo.Cart `json:"cart"`
}

type resolveResponse struct {
	Matched bool   `json:"matched"`
	Match   *Match `json:"match,omitempty"`
}

// Resolve returns the ladder level matching the cart, if any.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "tier service not configured", nil)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid tier id", nil)
		return
	}
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if req.Cart.Subtotal < 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cart subtotal must not be negative", nil)
		return
	}
	match, err := h.Svc.Resolve(r.Context(), id, req.Cart)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "tier discount not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to resolve tier", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": resolveResponse{Matched: match != nil, Match: match}})
}

// List returns all tier ladders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "tier queries not configured", nil)
		return
	}
	tiers, err := h.Q.ListTierDiscounts(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list tiers", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": tiers})
}

// Create inserts a new tier ladder after validating it.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "tier queries not configured", nil)
		return
	}
	payload, err := decodeTierPayload(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	t, err := h.Q.CreateTierDiscount(r.Context(), payload.Name, payload.Kind, payload.Levels, active)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create tier", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": t})
}

// Update replaces an existing tier ladder after validating it.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "tier queries not configured", nil)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid tier id", nil)
		return
	}
	payload, err := decodeTierPayload(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	t, err := h.Q.UpdateTierDiscount(r.Context(), id, payload.Name, payload.Kind, payload.Levels, active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "tier discount not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update tier", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": t})
}

// Delete removes a tier ladder.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "tier queries not configured", nil)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid tier id", nil)
		return
	}
	if err := h.Q.DeleteTierDiscount(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "tier discount not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete tier", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeTierPayload(r *http.Request) (tierPayload, error) {
	var payload tierPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return tierPayload{}, errors.New("invalid payload")
	}
	if err := validate.Struct(payload); err != nil {
		return tierPayload{}, err
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := ValidateLadder(payload.Kind, payload.Levels); err != nil {
		return tierPayload{}, err
	}
	return payload, nil
}
