package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/promo-api/internal/promo"
	"github.com/noah-isme/promo-api/internal/store"
)

type stubQuerier struct {
	coupons map[string]store.Coupon
	usage   map[string]int64 // key: couponID + "/" + identity
	auto    []store.Coupon
	err     error
}

func (s *stubQuerier) GetCouponByCode(_ context.Context, code string) (store.Coupon, error) {
	if s.err != nil {
		return store.Coupon{}, s.err
	}
	c, ok := s.coupons[code]
	if !ok {
		return store.Coupon{}, pgx.ErrNoRows
	}
	return c, nil
}

func (s *stubQuerier) CountCouponUsageByIdentity(_ context.Context, couponID uuid.UUID, identity string) (int64, error) {
	return s.usage[couponID.String()+"/"+identity], nil
}

func (s *stubQuerier) ListAutoApplyCoupons(_ context.Context, _ time.Time) ([]store.Coupon, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.auto, nil
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func activeCoupon(code, kind string, value float64) store.Coupon {
	return store.Coupon{
		ID:       uuid.New(),
		Code:     code,
		Kind:     kind,
		Value:    value,
		IsActive: true,
	}
}

func TestValidatePercentageWithCap(t *testing.T) {
	c := activeCoupon("WELCOME10", promo.KindPercentage, 10)
	c.MaxDiscount = ptrF(300)
	svc := &Service{Q: &stubQuerier{coupons: map[string]store.Coupon{"WELCOME10": c}}, Now: fixedNow}

	res, err := svc.Validate(context.Background(), "welcome10", nil, promo.Cart{Subtotal: 5000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected valid, got rejection %+v", res.Rejection)
	}
	if res.Code != "WELCOME10" {
		t.Fatalf("expected normalised code, got %q", res.Code)
	}
	if res.Discount != 300 {
		t.Fatalf("expected cap of 300, got %v", res.Discount)
	}
}

func TestValidateUnknownCode(t *testing.T) {
	svc := &Service{Q: &stubQuerier{coupons: map[string]store.Coupon{}}, Now: fixedNow}
	res, err := svc.Validate(context.Background(), "NOPE", nil, promo.Cart{Subtotal: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid || res.Rejection == nil || res.Rejection.Code != CodeInvalid {
		t.Fatalf("expected invalid rejection, got %+v", res)
	}
}

func TestValidateStoreFault(t *testing.T) {
	svc := &Service{Q: &stubQuerier{err: errors.New("connection refused")}, Now: fixedNow}
	if _, err := svc.Validate(context.Background(), "ANY", nil, promo.Cart{Subtotal: 100}); err == nil {
		t.Fatal("expected store fault to surface as error")
	}
}

func TestValidatePerUserLimit(t *testing.T) {
	c := activeCoupon("ONCE", promo.KindFixedAmount, 50)
	c.UsageLimitPerUser = ptrI(1)
	identity := "user-1"
	q := &stubQuerier{
		coupons: map[string]store.Coupon{"ONCE": c},
		usage:   map[string]int64{c.ID.String() + "/" + identity: 1},
	}
	svc := &Service{Q: q, Now: fixedNow}

	res, err := svc.Validate(context.Background(), "ONCE", &identity, promo.Cart{Subtotal: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid || res.Rejection == nil || res.Rejection.Code != CodeAlreadyUsed {
		t.Fatalf("expected already-used rejection, got %+v", res)
	}

	// The same coupon validates for a guest: per-user tracking needs an identity.
	res, err = svc.Validate(context.Background(), "ONCE", nil, promo.Cart{Subtotal: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected valid for guest, got %+v", res.Rejection)
	}
}

func TestValidateFixedClampedToSubtotal(t *testing.T) {
	c := activeCoupon("FLAT500", promo.KindFixedAmount, 500)
	svc := &Service{Q: &stubQuerier{coupons: map[string]store.Coupon{"FLAT500": c}}, Now: fixedNow}

	res, err := svc.Validate(context.Background(), "FLAT500", nil, promo.Cart{Subtotal: 200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Discount != 200 {
		t.Fatalf("fixed discount should clamp to subtotal, got %v", res.Discount)
	}
}

func TestValidateFreeShipping(t *testing.T) {
	c := activeCoupon("SHIPFREE", promo.KindFreeShipping, 0)
	svc := &Service{Q: &stubQuerier{coupons: map[string]store.Coupon{"SHIPFREE": c}}, Now: fixedNow}

	res, err := svc.Validate(context.Background(), "SHIPFREE", nil, promo.Cart{Subtotal: 200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Valid || !res.FreeShipping || res.Discount != 0 {
		t.Fatalf("expected free shipping with zero discount, got %+v", res)
	}
}

func TestAutoApplySkipsIneligible(t *testing.T) {
	eligible := activeCoupon("AUTO10", promo.KindPercentage, 10)
	eligible.IsAutoApply = true
	tooSmall := activeCoupon("BIGSPEND", promo.KindPercentage, 20)
	tooSmall.IsAutoApply = true
	tooSmall.MinOrderValue = 10000

	svc := &Service{Q: &stubQuerier{auto: []store.Coupon{eligible, tooSmall}}, Now: fixedNow}
	results, err := svc.AutoApply(context.Background(), nil, promo.Cart{Subtotal: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 eligible coupon, got %d", len(results))
	}
	if results[0].Code != "AUTO10" || results[0].Discount != 100 {
		t.Fatalf("unexpected result %+v", results[0])
	}
}

func TestValidateEmptyCode(t *testing.T) {
	svc := &Service{Q: &stubQuerier{}, Now: fixedNow}
	res, err := svc.Validate(context.Background(), "   ", nil, promo.Cart{Subtotal: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid || res.Rejection == nil || res.Rejection.Code != CodeInvalid {
		t.Fatalf("expected invalid rejection, got %+v", res)
	}
}
