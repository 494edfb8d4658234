package pricing

import (
	"context"

	"github.com/noah-isme/promo-api/internal/promo"
)

// Summary extends a breakdown with the checkout-facing totals: flat-rate tax
// on the discounted amount and shipping, waived when any applied benefit
// grants free shipping.
type Summary struct {
	Breakdown
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shipping"`
	Payable  float64 `json:"payable"`
}

// Summarize computes the checkout totals for a cart. Tax is expressed in
// basis points and applies to the grand total after savings.
func (a *Aggregator) Summarize(ctx context.Context, cart promo.Cart, couponCode string, identity *string, taxBps int, shippingFee float64) Summary {
	breakdown := a.Calculate(ctx, cart, couponCode, identity)
	tax := promo.Round2(breakdown.GrandTotal * float64(taxBps) / 10000)
	shipping := shippingFee
	if breakdown.FreeShipping {
		shipping = 0
	}
	return Summary{
		Breakdown: breakdown,
		Tax:       tax,
		Shipping:  promo.Round2(shipping),
		Payable:   promo.Round2(breakdown.GrandTotal + tax + shipping),
	}
}
