package coupon

import (
	"strconv"
	"time"

	"github.com/noah-isme/promo-api/internal/common"
	"github.com/noah-isme/promo-api/internal/promo"
	"github.com/noah-isme/promo-api/internal/store"
)

// Rejection codes emitted by coupon validation.
const (
	CodeInvalid        = "COUPON_INVALID"
	CodeNotStarted     = "COUPON_NOT_STARTED"
	CodeExpired        = "COUPON_EXPIRED"
	CodeLimitReached   = "COUPON_LIMIT_REACHED"
	CodeAlreadyUsed    = "COUPON_ALREADY_USED"
	CodeMinOrderNotMet = "COUPON_MIN_ORDER_NOT_MET"
)

// Rule captures the runtime constraints of a coupon.
type Rule struct {
	Code              string
	Kind              string
	Value             float64
	MaxDiscount       *float64
	MinOrderValue     float64
	UsageLimitTotal   *int32
	UsageLimitPerUser *int32
	UsageCount        int32
	IsStackable       bool
	IsActive          bool
	StartsAt          *time.Time
	EndsAt            *time.Time

	// PerUserUsed is the caller's prior redemption count. It is only
	// meaningful when HasIdentity is true; guest requests skip the
	// per-user check entirely.
	PerUserUsed int64
	HasIdentity bool
}

// RuleFromModel converts a stored coupon into a Rule for evaluation.
func RuleFromModel(c store.Coupon) Rule {
	return Rule{
		Code:              c.Code,
		Kind:              c.Kind,
		Value:             c.Value,
		MaxDiscount:       c.MaxDiscount,
		MinOrderValue:     c.MinOrderValue,
		UsageLimitTotal:   c.UsageLimitTotal,
		UsageLimitPerUser: c.UsageLimitPerUser,
		UsageCount:        c.UsageCount,
		IsStackable:       c.IsStackable,
		IsActive:          c.IsActive,
		StartsAt:          c.StartsAt,
		EndsAt:            c.EndsAt,
	}
}

// Validate runs the ordered eligibility checks and returns the first
// rejection encountered. Checks short-circuit: a coupon that is both not yet
// valid and under minimum spend reports only the window failure.
func (r Rule) Validate(now time.Time, cartSubtotal float64) *common.Rejection {
	if !r.IsActive {
		return &common.Rejection{Code: CodeInvalid, Message: "Invalid or inactive coupon code"}
	}
	if r.StartsAt != nil && now.Before(*r.StartsAt) {
		return &common.Rejection{Code: CodeNotStarted, Message: "Coupon is not yet valid"}
	}
	if r.EndsAt != nil && now.After(*r.EndsAt) {
		return &common.Rejection{Code: CodeExpired, Message: "Coupon has expired"}
	}
	if r.UsageLimitTotal != nil && r.UsageCount >= *r.UsageLimitTotal {
		return &common.Rejection{Code: CodeLimitReached, Message: "Coupon usage limit reached"}
	}
	if r.HasIdentity && r.UsageLimitPerUser != nil && r.PerUserUsed >= int64(*r.UsageLimitPerUser) {
		return &common.Rejection{Code: CodeAlreadyUsed, Message: "You have already used this coupon"}
	}
	if cartSubtotal < r.MinOrderValue {
		return &common.Rejection{
			Code:    CodeMinOrderNotMet,
			Message: "Minimum order value of " + formatAmount(r.MinOrderValue) + " required",
		}
	}
	return nil
}

// Benefit materialises the rule's discount effect.
func (r Rule) Benefit() (promo.Benefit, error) {
	return promo.ParseBenefit(r.Kind, r.Value, r.MaxDiscount)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
