package discount

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/promo-api/internal/promo"
	"github.com/noah-isme/promo-api/internal/store"
)

// Candidate is an automatic discount eligible for the cart, carrying its
// computed amount. Candidates are returned in rank order (priority 1 first);
// whether a candidate actually applies is decided by the stacking fold in the
// pricing aggregator.
type Candidate struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Amount    float64   `json:"amount"`
	Stackable bool      `json:"stackable"`
}

// Eligible reports whether the discount's validity window contains now and
// the cart meets its minimum order value. A discount with both bounds nil is
// always-on while active.
func Eligible(d store.AutomaticDiscount, now time.Time, subtotal float64) bool {
	if !d.IsActive {
		return false
	}
	if d.StartsAt != nil && now.Before(*d.StartsAt) {
		return false
	}
	if d.EndsAt != nil && now.After(*d.EndsAt) {
		return false
	}
	return subtotal >= d.MinOrderValue
}

// Candidates filters the discounts to those eligible for the cart and
// computes each discount amount. Input order is preserved for equal
// priorities so ties resolve by creation order.
func Candidates(discounts []store.AutomaticDiscount, cart promo.Cart, now time.Time) ([]Candidate, error) {
	ranked := make([]store.AutomaticDiscount, len(discounts))
	copy(ranked, discounts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Priority < ranked[j].Priority
	})

	var out []Candidate
	for _, d := range ranked {
		if !Eligible(d, now, cart.Subtotal) {
			continue
		}
		benefit, err := promo.ParseBenefit(d.Kind, d.Value, d.MaxDiscount)
		if err != nil {
			return nil, err
		}
		out = append(out, Candidate{
			ID:        d.ID,
			Name:      d.Name,
			Amount:    promo.Amount(benefit, cart.Subtotal),
			Stackable: d.IsStackable,
		})
	}
	return out, nil
}
