package tier

import (
	"errors"
	"fmt"
	"sort"

	"github.com/noah-isme/promo-api/internal/promo"
	"github.com/noah-isme/promo-api/internal/store"
)

// Metric derives the ladder input from the cart for the given tier kind.
func Metric(kind string, cart promo.Cart) (float64, error) {
	switch kind {
	case store.TierKindCartValue:
		return cart.Subtotal, nil
	case store.TierKindCartQuantity:
		return float64(cart.TotalQuantity()), nil
	default:
		return 0, fmt.Errorf("unknown tier kind %q", kind)
	}
}

// Resolve returns the first level, in ascending min order, whose range
// contains the metric. Max is inclusive and nil means open-ended. A metric
// below every level resolves to no match, which is a valid outcome rather
// than an error.
func Resolve(levels []store.TierLevel, metric float64) *store.TierLevel {
	ordered := make([]store.TierLevel, len(levels))
	copy(ordered, levels)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Min < ordered[j].Min
	})
	for i := range ordered {
		lvl := ordered[i]
		if metric < lvl.Min {
			continue
		}
		if lvl.Max != nil && metric > *lvl.Max {
			continue
		}
		return &lvl
	}
	return nil
}

// Amount computes the discount granted by a resolved level against the cart
// subtotal.
func Amount(level store.TierLevel, subtotal float64) (float64, error) {
	benefit, err := promo.ParseBenefit(level.DiscountType, level.DiscountValue, nil)
	if err != nil {
		return 0, err
	}
	return promo.Amount(benefit, subtotal), nil
}

// ValidateLadder rejects ladders that could make resolution ambiguous:
// empty ladders, unordered or overlapping ranges, an open-ended level that is
// not last, and levels with nonsensical discounts. Validation runs at
// creation time so resolution can trust stored ladders.
func ValidateLadder(kind string, levels []store.TierLevel) error {
	switch kind {
	case store.TierKindCartValue, store.TierKindCartQuantity:
	default:
		return fmt.Errorf("unknown tier kind %q", kind)
	}
	if len(levels) == 0 {
		return errors.New("ladder must have at least one level")
	}
	ordered := make([]store.TierLevel, len(levels))
	copy(ordered, levels)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Min < ordered[j].Min
	})
	for i, lvl := range ordered {
		if lvl.Min < 0 {
			return fmt.Errorf("level %d: min must not be negative", i)
		}
		if lvl.Max != nil && *lvl.Max < lvl.Min {
			return fmt.Errorf("level %d: max must not be below min", i)
		}
		switch lvl.DiscountType {
		case promo.KindPercentage:
			if lvl.DiscountValue <= 0 || lvl.DiscountValue > 100 {
				return fmt.Errorf("level %d: percentage value must be in (0, 100]", i)
			}
		case promo.KindFixedAmount:
			if lvl.DiscountValue <= 0 {
				return fmt.Errorf("level %d: fixed amount value must be positive", i)
			}
		default:
			return fmt.Errorf("level %d: unknown discount type %q", i, lvl.DiscountType)
		}
		if i == 0 {
			continue
		}
		prev := ordered[i-1]
		if prev.Max == nil {
			return fmt.Errorf("level %d: open-ended level must be last", i-1)
		}
		if lvl.Min <= *prev.Max {
			return fmt.Errorf("level %d: range overlaps previous level", i)
		}
	}
	return nil
}
