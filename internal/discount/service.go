package discount

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/promo-api/internal/promo"
	"github.com/noah-isme/promo-api/internal/store"
)

// Querier captures the database methods required by the discount service.
type Querier interface {
	ListActiveAutomaticDiscounts(ctx context.Context, now time.Time) ([]store.AutomaticDiscount, error)
}

// Service evaluates automatic discounts against cart snapshots. It is
// strictly read-only.
type Service struct {
	Q   Querier
	Now func() time.Time
}

// Candidates loads the active discounts and returns those eligible for the
// cart, in rank order, with computed amounts.
func (s *Service) Candidates(ctx context.Context, cart promo.Cart) ([]Candidate, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("discount service not configured")
	}
	now := s.now()
	discounts, err := s.Q.ListActiveAutomaticDiscounts(ctx, now)
	if err != nil {
		return nil, err
	}
	return Candidates(discounts, cart, now)
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
