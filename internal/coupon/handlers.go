package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/promo-api/internal/common"
	"github.com/noah-isme/promo-api/internal/identity"
	"github.com/noah-isme/promo-api/internal/obs"
	"github.com/noah-isme/promo-api/internal/promo"
	"github.com/noah-isme/promo-api/internal/store"
)

var validate = validator.New()

// AdminQuerier captures the store methods the admin endpoints require.
type AdminQuerier interface {
	ListCoupons(ctx context.Context) ([]store.Coupon, error)
	CreateCoupon(ctx context.Context, arg store.CreateCouponParams) (store.Coupon, error)
	UpdateCoupon(ctx context.Context, code string, arg store.CreateCouponParams) (store.Coupon, error)
	SoftDeleteCoupon(ctx context.Context, code string) error
}

// Handler exposes coupon validation and administrative management endpoints.
type Handler struct {
	Q   AdminQuerier
	Svc *Service
}

type couponPayload struct {
	Code                string     `json:"code" validate:"required"`
	Kind                string     `json:"kind" validate:"required,oneof=percentage fixed_amount free_shipping"`
	Value               float64    `json:"value" validate:"gte=0"`
	MaxDiscount         *float64   `json:"maxDiscount" validate:"omitempty,gt=0"`
	MinOrderValue       float64    `json:"minOrderValue" validate:"gte=0"`
	UsageLimitTotal     *int32     `json:"usageLimitTotal" validate:"omitempty,gte=1"`
	UsageLimitPerUser   *int32     `json:"usageLimitPerUser" validate:"omitempty,gte=1"`
	AppliesTo           string     `json:"appliesTo"`
	ApplicableIDs       []string   `json:"applicableIds"`
	ExcludedIDs         []string   `json:"excludedIds"`
	CustomerEligibility string     `json:"customerEligibility"`
	IsStackable         bool       `json:"isStackable"`
	IsAutoApply         bool       `json:"isAutoApply"`
	IsActive            *bool      `json:"isActive"`
	StartsAt            *time.Time `json:"startsAt"`
	EndsAt              *time.Time `json:"endsAt"`
}

type validateRequest struct {
	Code     string     `json:"code" validate:"required"`
	Identity *string    `json:"identity"`
	Cart     promo.Cart `json:"cart"`
}

type validateResponse struct {
	Valid        bool              `json:"valid"`
	Code         string            `json:"code"`
	Discount     float64           `json:"discount"`
	FreeShipping bool              `json:"freeShipping"`
	Stackable    bool              `json:"stackable"`
	Reason       *common.Rejection `json:"reason,omitempty"`
}

// Validate evaluates a coupon against a cart snapshot without mutating any
// state. Ineligible coupons return 200 with a structured reason so callers
// can surface it verbatim.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if req.Cart.Subtotal < 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cart subtotal must not be negative", nil)
		return
	}
	caller := callerIdentity(r, req.Identity)
	result, err := h.Svc.Validate(r.Context(), req.Code, caller, req.Cart)
	if err != nil {
		recordValidation("error")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to validate coupon", nil)
		return
	}
	if result.Valid {
		recordValidation("valid")
	} else {
		recordValidation("rejected")
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": validateResponse{
		Valid:        result.Valid,
		Code:         result.Code,
		Discount:     result.Discount,
		FreeShipping: result.FreeShipping,
		Stackable:    result.Stackable,
		Reason:       result.Rejection,
	}})
}

// List returns all non-deleted coupons.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon queries not configured", nil)
		return
	}
	coupons, err := h.Q.ListCoupons(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list coupons", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": coupons})
}

// Create inserts a new coupon rule.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon queries not configured", nil)
		return
	}
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	params, err := buildCouponParams(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	c, err := h.Q.CreateCoupon(r.Context(), params)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create coupon", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": c})
}

// Update mutates an existing coupon identified by code.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon queries not configured", nil)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.Code = code
	params, err := buildCouponParams(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	c, err := h.Q.UpdateCoupon(r.Context(), code, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Delete soft-deletes a coupon so its usage ledger survives.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon queries not configured", nil)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	if err := h.Q.SoftDeleteCoupon(r.Context(), code); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete coupon", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildCouponParams(payload couponPayload) (store.CreateCouponParams, error) {
	if err := validate.Struct(payload); err != nil {
		return store.CreateCouponParams{}, err
	}
	code := strings.ToUpper(strings.TrimSpace(payload.Code))
	if code == "" {
		return store.CreateCouponParams{}, errors.New("code is required")
	}
	kind := strings.TrimSpace(payload.Kind)
	switch kind {
	case promo.KindPercentage:
		if payload.Value <= 0 || payload.Value > 100 {
			return store.CreateCouponParams{}, errors.New("percentage value must be in (0, 100]")
		}
	case promo.KindFixedAmount:
		if payload.Value <= 0 {
			return store.CreateCouponParams{}, errors.New("fixed amount value must be positive")
		}
	case promo.KindFreeShipping:
		// value is ignored for shipping waivers
	}
	if payload.StartsAt != nil && payload.EndsAt != nil && !payload.StartsAt.Before(*payload.EndsAt) {
		return store.CreateCouponParams{}, errors.New("startsAt must be before endsAt")
	}
	appliesTo := strings.TrimSpace(payload.AppliesTo)
	if appliesTo == "" {
		appliesTo = "all"
	}
	eligibility := strings.TrimSpace(payload.CustomerEligibility)
	if eligibility == "" {
		eligibility = "all"
	}
	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	return store.CreateCouponParams{
		Code:                code,
		Kind:                kind,
		Value:               payload.Value,
		MaxDiscount:         payload.MaxDiscount,
		MinOrderValue:       payload.MinOrderValue,
		UsageLimitTotal:     payload.UsageLimitTotal,
		UsageLimitPerUser:   payload.UsageLimitPerUser,
		AppliesTo:           appliesTo,
		ApplicableIDs:       payload.ApplicableIDs,
		ExcludedIDs:         payload.ExcludedIDs,
		CustomerEligibility: eligibility,
		IsStackable:         payload.IsStackable,
		IsAutoApply:         payload.IsAutoApply,
		IsActive:            active,
		StartsAt:            payload.StartsAt,
		EndsAt:              payload.EndsAt,
	}, nil
}

func recordValidation(result string) {
	if obs.CouponValidationTotal != nil {
		obs.CouponValidationTotal.WithLabelValues(result).Inc()
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
