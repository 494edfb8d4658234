package gift

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/promo-api/internal/promo"
	"github.com/noah-isme/promo-api/internal/store"
)

// ErrNotFound is returned when the rule does not exist or is inactive.
var ErrNotFound = errors.New("free gift rule not found")

// Querier captures the database methods required by the gift service.
type Querier interface {
	GetFreeGiftRule(ctx context.Context, id uuid.UUID) (store.FreeGiftRule, error)
}

// Service evaluates free gift triggers against cart snapshots.
type Service struct {
	Q Querier
}

// Evaluate loads the rule and returns the advisory grant when the cart
// qualifies, or nil when it does not.
func (s *Service) Evaluate(ctx context.Context, id uuid.UUID, cart promo.Cart) (*Grant, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("gift service not configured")
	}
	rule, err := s.Q.GetFreeGiftRule(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !rule.IsActive {
		return nil, ErrNotFound
	}
	ok, err := Qualifies(rule, cart)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	grant := GrantFromRule(rule)
	return &grant, nil
}
