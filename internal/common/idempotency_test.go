package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/promo-api/internal/common"
)

func newIdem(t *testing.T) common.Idem {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return common.Idem{R: client, TTL: time.Minute}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
}

func TestIdempotencyFirstRequestPasses(t *testing.T) {
	handler := newIdem(t).Middleware(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/redemptions", nil)
	req.Header.Set("Idempotency-Key", "order-1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code)
}

func TestIdempotencyDuplicateRejected(t *testing.T) {
	handler := newIdem(t).Middleware(okHandler())
	for i, want := range []int{http.StatusAccepted, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/redemptions", nil)
		req.Header.Set("Idempotency-Key", "order-1")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equalf(t, want, rr.Code, "request %d", i)
	}
}

func TestIdempotencyDistinctKeysPass(t *testing.T) {
	handler := newIdem(t).Middleware(okHandler())
	for _, key := range []string{"order-1", "order-2"} {
		req := httptest.NewRequest(http.MethodPost, "/redemptions", nil)
		req.Header.Set("Idempotency-Key", key)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusAccepted, rr.Code)
	}
}

func TestIdempotencyNoKeySkips(t *testing.T) {
	handler := newIdem(t).Middleware(okHandler())
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/redemptions", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusAccepted, rr.Code)
	}
}
