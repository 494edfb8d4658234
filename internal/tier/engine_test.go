package tier

import (
	"testing"

	"github.com/noah-isme/promo-api/internal/promo"
	"github.com/noah-isme/promo-api/internal/store"
)

func ptrF(v float64) *float64 { return &v }

func sampleLadder() []store.TierLevel {
	return []store.TierLevel{
		{Min: 1000, Max: ptrF(4999.99), DiscountType: promo.KindPercentage, DiscountValue: 5, Badge: "Silver"},
		{Min: 5000, Max: ptrF(9999.99), DiscountType: promo.KindPercentage, DiscountValue: 10, Badge: "Gold"},
		{Min: 10000, DiscountType: promo.KindPercentage, DiscountValue: 15, Badge: "Platinum"},
	}
}

func TestMetric(t *testing.T) {
	cart := promo.Cart{
		Subtotal: 750,
		Items: []promo.Item{
			{ProductID: "p1", Qty: 2},
			{ProductID: "p2", Qty: 3},
		},
	}
	if v, err := Metric(store.TierKindCartValue, cart); err != nil || v != 750 {
		t.Fatalf("cart_value metric = %v, %v", v, err)
	}
	if v, err := Metric(store.TierKindCartQuantity, cart); err != nil || v != 5 {
		t.Fatalf("cart_quantity metric = %v, %v", v, err)
	}
	if _, err := Metric("cart_weight", cart); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestResolve(t *testing.T) {
	ladder := sampleLadder()
	cases := []struct {
		name      string
		metric    float64
		wantBadge string
	}{
		{"below all levels", 999.99, ""},
		{"first level lower bound", 1000, "Silver"},
		{"middle of second level", 7000, "Gold"},
		{"inclusive upper bound", 9999.99, "Gold"},
		{"open-ended level", 250000, "Platinum"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(ladder, tc.metric)
			if tc.wantBadge == "" {
				if got != nil {
					t.Fatalf("expected no match, got %+v", got)
				}
				return
			}
			if got == nil || got.Badge != tc.wantBadge {
				t.Fatalf("expected %s, got %+v", tc.wantBadge, got)
			}
		})
	}
}

func TestResolveIdempotent(t *testing.T) {
	// Resolution must be a pure function of (ladder, metric).
	ladder := sampleLadder()
	first := Resolve(ladder, 7000)
	second := Resolve(ladder, 7000)
	if first == nil || second == nil || first.Badge != second.Badge || first.DiscountValue != second.DiscountValue {
		t.Fatalf("resolution not stable: %+v vs %+v", first, second)
	}
}

func TestResolveUnsortedInput(t *testing.T) {
	ladder := sampleLadder()
	reversed := []store.TierLevel{ladder[2], ladder[0], ladder[1]}
	got := Resolve(reversed, 7000)
	if got == nil || got.Badge != "Gold" {
		t.Fatalf("expected Gold regardless of input order, got %+v", got)
	}
}

func TestAmount(t *testing.T) {
	level := store.TierLevel{Min: 5000, DiscountType: promo.KindPercentage, DiscountValue: 10}
	amount, err := Amount(level, 7000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount != 700 {
		t.Fatalf("expected 700, got %v", amount)
	}
}

func TestValidateLadder(t *testing.T) {
	cases := []struct {
		name    string
		kind    string
		levels  []store.TierLevel
		wantErr bool
	}{
		{"valid ladder", store.TierKindCartValue, sampleLadder(), false},
		{"unknown kind", "cart_weight", sampleLadder(), true},
		{"empty ladder", store.TierKindCartValue, nil, true},
		{"negative min", store.TierKindCartValue, []store.TierLevel{
			{Min: -1, DiscountType: promo.KindPercentage, DiscountValue: 5},
		}, true},
		{"max below min", store.TierKindCartValue, []store.TierLevel{
			{Min: 100, Max: ptrF(50), DiscountType: promo.KindPercentage, DiscountValue: 5},
		}, true},
		{"overlapping ranges", store.TierKindCartValue, []store.TierLevel{
			{Min: 0, Max: ptrF(1000), DiscountType: promo.KindPercentage, DiscountValue: 5},
			{Min: 1000, Max: ptrF(2000), DiscountType: promo.KindPercentage, DiscountValue: 10},
		}, true},
		{"open-ended not last", store.TierKindCartValue, []store.TierLevel{
			{Min: 0, DiscountType: promo.KindPercentage, DiscountValue: 5},
			{Min: 1000, Max: ptrF(2000), DiscountType: promo.KindPercentage, DiscountValue: 10},
		}, true},
		{"percentage over 100", store.TierKindCartValue, []store.TierLevel{
			{Min: 0, DiscountType: promo.KindPercentage, DiscountValue: 120},
		}, true},
		{"zero fixed amount", store.TierKindCartQuantity, []store.TierLevel{
			{Min: 0, DiscountType: promo.KindFixedAmount, DiscountValue: 0},
		}, true},
		{"single open-ended level", store.TierKindCartQuantity, []store.TierLevel{
			{Min: 10, DiscountType: promo.KindFixedAmount, DiscountValue: 50},
		}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateLadder(tc.kind, tc.levels)
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
