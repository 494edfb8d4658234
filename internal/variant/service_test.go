package variant_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/promo-api/internal/store"
	"github.com/noah-isme/promo-api/internal/variant"
)

type stubQuerier struct {
	rows  map[string]store.VariantPricing
	calls int
	err   error
}

func (s *stubQuerier) GetActiveVariantPricing(_ context.Context, variantID string, _ time.Time) (store.VariantPricing, error) {
	s.calls++
	if s.err != nil {
		return store.VariantPricing{}, s.err
	}
	row, ok := s.rows[variantID]
	if !ok {
		return store.VariantPricing{}, pgx.ErrNoRows
	}
	return row, nil
}

func ptrF(v float64) *float64 { return &v }

func newTestService(t *testing.T, q *stubQuerier) (*variant.Service, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &variant.Service{
		Q:     q,
		Cache: variant.NewCache(client, time.Minute),
		Log:   zerolog.Nop(),
	}, mr
}

func TestGetPriceReadThrough(t *testing.T) {
	q := &stubQuerier{rows: map[string]store.VariantPricing{
		"v-1": {VariantID: "v-1", MRP: 999, SalePrice: ptrF(749), IsActive: true},
	}}
	svc, _ := newTestService(t, q)

	price, err := svc.GetPrice(context.Background(), "v-1")
	require.NoError(t, err)
	require.Equal(t, 749.0, price.FinalPrice)
	require.Equal(t, 25, price.DiscountPercent)
	require.Equal(t, 1, q.calls)

	// Second call is served from the cache.
	again, err := svc.GetPrice(context.Background(), "v-1")
	require.NoError(t, err)
	require.Equal(t, price, again)
	require.Equal(t, 1, q.calls)
}

func TestGetPriceNotFound(t *testing.T) {
	svc, _ := newTestService(t, &stubQuerier{rows: map[string]store.VariantPricing{}})
	_, err := svc.GetPrice(context.Background(), "missing")
	require.ErrorIs(t, err, variant.ErrNotFound)
}

func TestGetPriceStoreFault(t *testing.T) {
	svc, _ := newTestService(t, &stubQuerier{err: errors.New("connection refused")})
	_, err := svc.GetPrice(context.Background(), "v-1")
	require.Error(t, err)
	require.NotErrorIs(t, err, variant.ErrNotFound)
}

func TestGetPriceSurvivesCacheOutage(t *testing.T) {
	q := &stubQuerier{rows: map[string]store.VariantPricing{
		"v-1": {VariantID: "v-1", MRP: 100, IsActive: true},
	}}
	svc, mr := newTestService(t, q)
	mr.Close()

	price, err := svc.GetPrice(context.Background(), "v-1")
	require.NoError(t, err)
	require.Equal(t, 100.0, price.FinalPrice)
}

func TestInvalidateDropsCachedPrice(t *testing.T) {
	q := &stubQuerier{rows: map[string]store.VariantPricing{
		"v-1": {VariantID: "v-1", MRP: 500, SalePrice: ptrF(400), IsActive: true},
	}}
	svc, _ := newTestService(t, q)

	_, err := svc.GetPrice(context.Background(), "v-1")
	require.NoError(t, err)
	require.Equal(t, 1, q.calls)

	require.NoError(t, svc.Cache.Invalidate(context.Background(), "v-1"))

	_, err = svc.GetPrice(context.Background(), "v-1")
	require.NoError(t, err)
	require.Equal(t, 2, q.calls)
}

func TestPriceFromPricing(t *testing.T) {
	cases := []struct {
		name        string
		row         store.VariantPricing
		wantFinal   float64
		wantPercent int
	}{
		{"sale below mrp", store.VariantPricing{VariantID: "v", MRP: 1000, SalePrice: ptrF(750)}, 750, 25},
		{"no sale price", store.VariantPricing{VariantID: "v", MRP: 1000}, 1000, 0},
		{"sale at mrp", store.VariantPricing{VariantID: "v", MRP: 1000, SalePrice: ptrF(1000)}, 1000, 0},
		{"sale above mrp ignored", store.VariantPricing{VariantID: "v", MRP: 1000, SalePrice: ptrF(1200)}, 1000, 0},
		{"percent rounds", store.VariantPricing{VariantID: "v", MRP: 999, SalePrice: ptrF(749)}, 749, 25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			price := variant.PriceFromPricing(tc.row)
			require.Equal(t, tc.wantFinal, price.FinalPrice)
			require.Equal(t, tc.wantPercent, price.DiscountPercent)
		})
	}
}
