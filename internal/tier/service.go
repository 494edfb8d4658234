package tier

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/promo-api/internal/promo"
	"github.com/noah-isme/promo-api/internal/store"
)

// ErrNotFound is returned when the ladder does not exist or is inactive.
var ErrNotFound = errors.New("tier discount not found")

// Querier captures the database methods required by the tier service.
type Querier interface {
	GetTierDiscount(ctx context.Context, id uuid.UUID) (store.TierDiscount, error)
}

// Match is a resolved ladder level with its computed discount.
type Match struct {
	Level  store.TierLevel `json:"level"`
	Amount float64         `json:"amount"`
	Badge  string          `json:"badge,omitempty"`
}

// Service resolves tier ladders against cart snapshots.
type Service struct {
	Q Querier
}

// Resolve loads the ladder and returns the matching level for the cart, or
// nil when the cart sits below every level.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, cart promo.Cart) (*Match, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("tier service not configured")
	}
	ladder, err := s.Q.GetTierDiscount(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !ladder.IsActive {
		return nil, ErrNotFound
	}
	metric, err := Metric(ladder.Kind, cart)
	if err != nil {
		return nil, err
	}
	level := Resolve(ladder.Levels, metric)
	if level == nil {
		return nil, nil
	}
	amount, err := Amount(*level, cart.Subtotal)
	if err != nil {
		return nil, err
	}
	return &Match{Level: *level, Amount: amount, Badge: level.Badge}, nil
}
