package gift

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/promo-api/internal/promo"
	"github.com/noah-isme/promo-api/internal/store"
)

type stubQuerier struct {
	rules map[uuid.UUID]store.FreeGiftRule
}

func (s *stubQuerier) GetFreeGiftRule(_ context.Context, id uuid.UUID) (store.FreeGiftRule, error) {
	rule, ok := s.rules[id]
	if !ok {
		return store.FreeGiftRule{}, pgx.ErrNoRows
	}
	return rule, nil
}

func TestServiceEvaluateGrants(t *testing.T) {
	id := uuid.New()
	svc := &Service{Q: &stubQuerier{rules: map[uuid.UUID]store.FreeGiftRule{
		id: {
			ID:            id,
			Name:          "Free travel kit",
			TriggerType:   store.GiftTriggerCartValue,
			TriggerValue:  ptrF(3000),
			GiftProductID: "p-kit",
			GiftQuantity:  1,
			IsActive:      true,
		},
	}}}

	grant, err := svc.Evaluate(context.Background(), id, promo.Cart{Subtotal: 3500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grant == nil || grant.ProductID != "p-kit" || grant.Quantity != 1 {
		t.Fatalf("unexpected grant %+v", grant)
	}
}

func TestServiceEvaluateNotQualified(t *testing.T) {
	id := uuid.New()
	svc := &Service{Q: &stubQuerier{rules: map[uuid.UUID]store.FreeGiftRule{
		id: {
			ID:            id,
			TriggerType:   store.GiftTriggerCartValue,
			TriggerValue:  ptrF(3000),
			GiftProductID: "p-kit",
			GiftQuantity:  1,
			IsActive:      true,
		},
	}}}

	grant, err := svc.Evaluate(context.Background(), id, promo.Cart{Subtotal: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grant != nil {
		t.Fatalf("expected no grant, got %+v", grant)
	}
}

func TestServiceEvaluateInactive(t *testing.T) {
	id := uuid.New()
	svc := &Service{Q: &stubQuerier{rules: map[uuid.UUID]store.FreeGiftRule{
		id: {ID: id, TriggerType: store.GiftTriggerCartValue, TriggerValue: ptrF(100), GiftProductID: "p-kit"},
	}}}

	if _, err := svc.Evaluate(context.Background(), id, promo.Cart{Subtotal: 500}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceEvaluateUnknownID(t *testing.T) {
	svc := &Service{Q: &stubQuerier{rules: map[uuid.UUID]store.FreeGiftRule{}}}
	if _, err := svc.Evaluate(context.Background(), uuid.New(), promo.Cart{Subtotal: 500}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
