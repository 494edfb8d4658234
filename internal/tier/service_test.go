package tier

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/promo-api/internal/promo"
	"github.com/noah-isme/promo-api/internal/store"
)

type stubQuerier struct {
	ladders map[uuid.UUID]store.TierDiscount
}

func (s *stubQuerier) GetTierDiscount(_ context.Context, id uuid.UUID) (store.TierDiscount, error) {
	t, ok := s.ladders[id]
	if !ok {
		return store.TierDiscount{}, pgx.ErrNoRows
	}
	return t, nil
}

func TestServiceResolve(t *testing.T) {
	id := uuid.New()
	svc := &Service{Q: &stubQuerier{ladders: map[uuid.UUID]store.TierDiscount{
		id: {ID: id, Kind: store.TierKindCartValue, Levels: sampleLadder(), IsActive: true},
	}}}

	match, err := svc.Resolve(context.Background(), id, promo.Cart{Subtotal: 7000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match == nil || match.Badge != "Gold" || match.Amount != 700 {
		t.Fatalf("unexpected match %+v", match)
	}
}

func TestServiceResolveBelowAllLevels(t *testing.T) {
	id := uuid.New()
	svc := &Service{Q: &stubQuerier{ladders: map[uuid.UUID]store.TierDiscount{
		id: {ID: id, Kind: store.TierKindCartValue, Levels: sampleLadder(), IsActive: true},
	}}}

	match, err := svc.Resolve(context.Background(), id, promo.Cart{Subtotal: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match != nil {
		t.Fatalf("expected no match, got %+v", match)
	}
}

func TestServiceResolveInactive(t *testing.T) {
	id := uuid.New()
	svc := &Service{Q: &stubQuerier{ladders: map[uuid.UUID]store.TierDiscount{
		id: {ID: id, Kind: store.TierKindCartValue, Levels: sampleLadder()},
	}}}

	if _, err := svc.Resolve(context.Background(), id, promo.Cart{Subtotal: 7000}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceResolveUnknownID(t *testing.T) {
	svc := &Service{Q: &stubQuerier{ladders: map[uuid.UUID]store.TierDiscount{}}}
	if _, err := svc.Resolve(context.Background(), uuid.New(), promo.Cart{Subtotal: 7000}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
