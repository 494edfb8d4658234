package pricing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promo-api/internal/common"
	"github.com/noah-isme/promo-api/internal/coupon"
	"github.com/noah-isme/promo-api/internal/discount"
	"github.com/noah-isme/promo-api/internal/obs"
	"github.com/noah-isme/promo-api/internal/promo"
)

// AppliedCoupon is a coupon that contributed to the breakdown.
type AppliedCoupon struct {
	Code         string  `json:"code"`
	Amount       float64 `json:"amount"`
	FreeShipping bool    `json:"freeShipping"`
}

// AppliedDiscount is an automatic discount that contributed to the breakdown.
type AppliedDiscount struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Amount float64   `json:"amount"`
}

// Breakdown is the full pricing result for a cart snapshot. A degraded
// breakdown (rule store unavailable) carries the untouched subtotal and a
// non-empty Error so checkout can proceed at full price instead of failing.
type Breakdown struct {
	Subtotal           float64           `json:"subtotal"`
	Coupon             *AppliedCoupon    `json:"coupon,omitempty"`
	CouponError        *common.Rejection `json:"couponError,omitempty"`
	AutomaticDiscounts []AppliedDiscount `json:"automaticDiscounts,omitempty"`
	FreeShipping       bool              `json:"freeShipping"`
	TotalSavings       float64           `json:"totalSavings"`
	GrandTotal         float64           `json:"grandTotal"`
	Error              string            `json:"error,omitempty"`
}

// Aggregator composes the coupon and automatic discount evaluators into a
// single cart-level result. It is strictly read-only: nothing it calls may
// mutate rule state.
type Aggregator struct {
	Coupons   *coupon.Service
	Discounts *discount.Service
	Log       zerolog.Logger
}

// Calculate evaluates the cart against the explicit coupon code (or the
// auto-apply coupons when no code is given) and the active automatic
// discounts. The coupon, when valid, always contributes its discount; the
// stacking rules govern only the automatic-discount fold that follows:
//
//   - a non-stackable discount is skipped when savings already accumulated
//   - an applied non-stackable discount halts the fold
//   - stackable discounts accumulate
//
// An ineligible coupon surfaces as CouponError and never aborts the
// evaluation; rule store faults degrade to a full-price breakdown.
func (a *Aggregator) Calculate(ctx context.Context, cart promo.Cart, couponCode string, identity *string) Breakdown {
	out := Breakdown{Subtotal: promo.Round2(cart.Subtotal), GrandTotal: promo.Round2(cart.Subtotal)}
	var totalSavings float64

	applyCoupon := func(res coupon.Result) {
		out.Coupon = &AppliedCoupon{Code: res.Code, Amount: res.Discount, FreeShipping: res.FreeShipping}
		if res.FreeShipping {
			out.FreeShipping = true
		}
		totalSavings += res.Discount
	}

	if couponCode != "" {
		result, err := a.Coupons.Validate(ctx, couponCode, identity, cart)
		if err != nil {
			return a.degrade(out, err)
		}
		if result.Valid {
			applyCoupon(result)
		} else {
			out.CouponError = result.Rejection
		}
	} else if a.Coupons != nil {
		results, err := a.Coupons.AutoApply(ctx, identity, cart)
		if err != nil {
			return a.degrade(out, err)
		}
		// One coupon per order: when several auto-apply coupons qualify,
		// the cart gets the most generous one.
		if best := bestResult(results); best != nil {
			applyCoupon(*best)
		}
	}

	autos, err := a.Discounts.Candidates(ctx, cart)
	if err != nil {
		return a.degrade(out, err)
	}

	stopped := false
	for _, c := range autos {
		if stopped {
			break
		}
		if !c.Stackable && totalSavings > 0 {
			continue
		}
		totalSavings += c.Amount
		out.AutomaticDiscounts = append(out.AutomaticDiscounts, AppliedDiscount{ID: c.ID, Name: c.Name, Amount: c.Amount})
		if !c.Stackable {
			stopped = true
		}
	}

	out.TotalSavings = promo.Round2(totalSavings)
	grand := out.Subtotal - out.TotalSavings
	if grand < 0 {
		grand = 0
	}
	out.GrandTotal = promo.Round2(grand)
	return out
}

func bestResult(results []coupon.Result) *coupon.Result {
	var best *coupon.Result
	for i := range results {
		if best == nil || results[i].Discount > best.Discount {
			best = &results[i]
		}
	}
	return best
}

// degrade returns the cart at full price with the failure recorded. Pricing
// must never take checkout down with it.
func (a *Aggregator) degrade(out Breakdown, err error) Breakdown {
	a.Log.Error().Err(err).Msg("pricing evaluation degraded")
	if obs.PricingDegradedTotal != nil {
		obs.PricingDegradedTotal.Inc()
	}
	out.Coupon = nil
	out.CouponError = nil
	out.AutomaticDiscounts = nil
	out.FreeShipping = false
	out.TotalSavings = 0
	out.GrandTotal = out.Subtotal
	out.Error = "promotions unavailable"
	return out
}
