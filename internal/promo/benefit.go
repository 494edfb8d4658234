package promo

import (
	"fmt"
	"math"
	"strings"
)

// Discount kind identifiers as persisted in the rule store.
const (
	KindPercentage   = "percentage"
	KindFixedAmount  = "fixed_amount"
	KindFreeShipping = "free_shipping"
)

// Benefit is the discount effect of a coupon or automatic discount. It is a
// closed set so amount calculation is exhaustive and cannot silently no-op
// on an unrecognised kind.
type Benefit interface {
	isBenefit()
}

// Percentage discounts the subtotal by Value percent, optionally capped.
type Percentage struct {
	Value float64
	Cap   *float64
}

// FixedAmount discounts the subtotal by a flat amount, never below zero.
type FixedAmount struct {
	Value float64
}

// FreeShipping contributes nothing to the price discount; the shipping
// waiver is signalled separately and honoured by the caller's shipping
// computation.
type FreeShipping struct{}

func (Percentage) isBenefit()   {}
func (FixedAmount) isBenefit()  {}
func (FreeShipping) isBenefit() {}

// Amount computes the discount granted against the provided subtotal,
// rounded to 2 decimals at the point of calculation.
func Amount(b Benefit, subtotal float64) float64 {
	if subtotal <= 0 {
		return 0
	}
	switch v := b.(type) {
	case Percentage:
		amount := Round2(subtotal * v.Value / 100)
		if v.Cap != nil && amount > *v.Cap {
			amount = Round2(*v.Cap)
		}
		return amount
	case FixedAmount:
		amount := v.Value
		if amount > subtotal {
			amount = subtotal
		}
		return Round2(amount)
	case FreeShipping:
		return 0
	default:
		return 0
	}
}

// IsFreeShipping reports whether the benefit waives shipping.
func IsFreeShipping(b Benefit) bool {
	_, ok := b.(FreeShipping)
	return ok
}

// ParseBenefit builds a Benefit from its stored representation.
func ParseBenefit(kind string, value float64, cap *float64) (Benefit, error) {
	switch strings.TrimSpace(kind) {
	case KindPercentage:
		return Percentage{Value: value, Cap: cap}, nil
	case KindFixedAmount:
		return FixedAmount{Value: value}, nil
	case KindFreeShipping:
		return FreeShipping{}, nil
	default:
		return nil, fmt.Errorf("unknown discount kind %q", kind)
	}
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
