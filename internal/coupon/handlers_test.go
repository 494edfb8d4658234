package coupon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/noah-isme/promo-api/internal/promo"
	"github.com/noah-isme/promo-api/internal/store"
)

func newTestHandler(q *stubQuerier) *Handler {
	return &Handler{Svc: &Service{Q: q, Now: fixedNow}}
}

func postValidate(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/coupons/validate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Validate(rr, req)
	return rr
}

func decodeValidate(t *testing.T, rr *httptest.ResponseRecorder) validateResponse {
	t.Helper()
	var body struct {
		Data validateResponse `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body.Data
}

func TestValidateEndpointEligible(t *testing.T) {
	c := activeCoupon("SAVE10", promo.KindPercentage, 10)
	h := newTestHandler(&stubQuerier{coupons: map[string]store.Coupon{"SAVE10": c}})

	rr := postValidate(t, h, `{"code":"save10","cart":{"subtotal":2500}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	data := decodeValidate(t, rr)
	if !data.Valid || data.Discount != 250 || data.Code != "SAVE10" {
		t.Fatalf("unexpected response %+v", data)
	}
}

func TestValidateEndpointIneligibleIsStillOK(t *testing.T) {
	// An ineligible coupon is an expected outcome, not an HTTP failure.
	h := newTestHandler(&stubQuerier{coupons: map[string]store.Coupon{}})

	rr := postValidate(t, h, `{"code":"NOPE","cart":{"subtotal":2500}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	data := decodeValidate(t, rr)
	if data.Valid {
		t.Fatal("expected invalid result")
	}
	if data.Reason == nil || data.Reason.Code != CodeInvalid {
		t.Fatalf("expected structured reason, got %+v", data.Reason)
	}
	if data.Reason.Message != "Invalid or inactive coupon code" {
		t.Fatalf("unexpected reason message %q", data.Reason.Message)
	}
}

func TestValidateEndpointBadPayload(t *testing.T) {
	h := newTestHandler(&stubQuerier{})
	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing code", `{"cart":{"subtotal":100}}`},
		{"negative subtotal", `{"code":"X","cart":{"subtotal":-1}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := postValidate(t, h, tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestBuildCouponParams(t *testing.T) {
	base := couponPayload{Code: "save10", Kind: promo.KindPercentage, Value: 10}

	params, err := buildCouponParams(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Code != "SAVE10" {
		t.Fatalf("code should be normalised, got %q", params.Code)
	}
	if params.AppliesTo != "all" || params.CustomerEligibility != "all" || !params.IsActive {
		t.Fatalf("defaults not applied: %+v", params)
	}

	over := base
	over.Value = 150
	if _, err := buildCouponParams(over); err == nil {
		t.Fatal("expected error for percentage over 100")
	}

	zero := base
	zero.Kind = promo.KindFixedAmount
	zero.Value = 0
	if _, err := buildCouponParams(zero); err == nil {
		t.Fatal("expected error for zero fixed amount")
	}
}
