package discount

import (
	"testing"
	"time"

	"github.com/noah-isme/promo-api/internal/promo"
)

func TestBuildDiscountParams(t *testing.T) {
	base := discountPayload{Name: "summer sale", Kind: promo.KindPercentage, Value: 5, Priority: 1}

	params, err := buildDiscountParams(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.AppliesTo != "all" || !params.IsActive {
		t.Fatalf("defaults not applied: %+v", params)
	}

	shipping := base
	shipping.Kind = promo.KindFreeShipping
	if _, err := buildDiscountParams(shipping); err == nil {
		t.Fatal("automatic discounts only support percentage and fixed_amount")
	}

	over := base
	over.Value = 150
	if _, err := buildDiscountParams(over); err == nil {
		t.Fatal("expected error for percentage over 100")
	}

	zero := base
	zero.Kind = promo.KindFixedAmount
	zero.Value = 0
	if _, err := buildDiscountParams(zero); err == nil {
		t.Fatal("expected error for zero fixed amount")
	}

	inverted := base
	start := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	inverted.StartsAt = &start
	inverted.EndsAt = ptrT(start.Add(-time.Hour))
	if _, err := buildDiscountParams(inverted); err == nil {
		t.Fatal("expected error for inverted validity window")
	}
}
