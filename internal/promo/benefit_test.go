package promo

import "testing"

func ptrF(v float64) *float64 { return &v }

func TestAmountPercentage(t *testing.T) {
	cases := []struct {
		name     string
		benefit  Benefit
		subtotal float64
		want     float64
	}{
		{"plain percentage", Percentage{Value: 10}, 2500, 250},
		{"rounds to cents", Percentage{Value: 7.5}, 333.33, 25},
		{"cap applies", Percentage{Value: 10, Cap: ptrF(300)}, 5000, 300},
		{"cap not reached", Percentage{Value: 10, Cap: ptrF(300)}, 2000, 200},
		{"fixed clamps to subtotal", FixedAmount{Value: 500}, 200, 200},
		{"fixed below subtotal", FixedAmount{Value: 100}, 2000, 100},
		{"free shipping is zero", FreeShipping{}, 2000, 0},
		{"empty cart", Percentage{Value: 10}, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Amount(tc.benefit, tc.subtotal); got != tc.want {
				t.Fatalf("Amount = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseBenefit(t *testing.T) {
	if _, err := ParseBenefit("percentage", 10, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseBenefit("bogo", 0, nil); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(12.346); got != 12.35 {
		t.Fatalf("Round2(12.346) = %v", got)
	}
	if got := Round2(12.344); got != 12.34 {
		t.Fatalf("Round2(12.344) = %v", got)
	}
}
