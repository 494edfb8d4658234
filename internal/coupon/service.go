package coupon

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/promo-api/internal/common"
	"github.com/noah-isme/promo-api/internal/promo"
	"github.com/noah-isme/promo-api/internal/store"
)

// Querier captures the database methods required by the coupon service.
type Querier interface {
	GetCouponByCode(ctx context.Context, code string) (store.Coupon, error)
	CountCouponUsageByIdentity(ctx context.Context, couponID uuid.UUID, identity string) (int64, error)
	ListAutoApplyCoupons(ctx context.Context, now time.Time) ([]store.Coupon, error)
}

// Result describes the outcome of evaluating a coupon against a cart. Exactly
// one of Discount/FreeShipping carries the benefit when Valid is true;
// Rejection carries the user-facing reason when it is false.
type Result struct {
	Valid        bool              `json:"valid"`
	Code         string            `json:"code"`
	Discount     float64           `json:"discount"`
	FreeShipping bool              `json:"freeShipping"`
	Stackable    bool              `json:"stackable"`
	Rejection    *common.Rejection `json:"-"`
}

// Service evaluates coupon rules. Evaluation never mutates the rule store;
// usage counters only move at redemption time.
type Service struct {
	Q   Querier
	Now func() time.Time
}

// Validate evaluates the coupon identified by code against the cart. An
// invalid coupon is a Result with a Rejection, not an error; errors are
// reserved for store faults.
func (s *Service) Validate(ctx context.Context, code string, identity *string, cart promo.Cart) (Result, error) {
	if s == nil || s.Q == nil {
		return Result{}, errors.New("coupon service not configured")
	}
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return rejected(normalized, CodeInvalid, "Invalid or inactive coupon code"), nil
	}
	c, err := s.Q.GetCouponByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rejected(normalized, CodeInvalid, "Invalid or inactive coupon code"), nil
		}
		return Result{}, err
	}
	rule := RuleFromModel(c)
	if identity != nil && *identity != "" && rule.UsageLimitPerUser != nil {
		used, err := s.Q.CountCouponUsageByIdentity(ctx, c.ID, *identity)
		if err != nil {
			return Result{}, err
		}
		rule.PerUserUsed = used
		rule.HasIdentity = true
	}
	return s.evaluate(rule, cart)
}

// AutoApply returns the evaluation results of every active auto-apply coupon
// that currently passes validation for the cart. Ineligible coupons are
// silently skipped.
func (s *Service) AutoApply(ctx context.Context, identity *string, cart promo.Cart) ([]Result, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("coupon service not configured")
	}
	coupons, err := s.Q.ListAutoApplyCoupons(ctx, s.now())
	if err != nil {
		return nil, err
	}
	var out []Result
	for _, c := range coupons {
		rule := RuleFromModel(c)
		if identity != nil && *identity != "" && rule.UsageLimitPerUser != nil {
			used, err := s.Q.CountCouponUsageByIdentity(ctx, c.ID, *identity)
			if err != nil {
				return nil, err
			}
			rule.PerUserUsed = used
			rule.HasIdentity = true
		}
		res, err := s.evaluate(rule, cart)
		if err != nil {
			return nil, err
		}
		if res.Valid {
			out = append(out, res)
		}
	}
	return out, nil
}

func (s *Service) evaluate(rule Rule, cart promo.Cart) (Result, error) {
	if rej := rule.Validate(s.now(), cart.Subtotal); rej != nil {
		return Result{Code: rule.Code, Rejection: rej}, nil
	}
	benefit, err := rule.Benefit()
	if err != nil {
		// A stored rule with an unknown kind is a data fault, not a
		// user rejection.
		return Result{}, err
	}
	return Result{
		Valid:        true,
		Code:         rule.Code,
		Discount:     promo.Amount(benefit, cart.Subtotal),
		FreeShipping: promo.IsFreeShipping(benefit),
		Stackable:    rule.IsStackable,
	}, nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func rejected(code, rejectionCode, message string) Result {
	return Result{Code: code, Rejection: &common.Rejection{Code: rejectionCode, Message: message}}
}
