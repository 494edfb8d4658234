package identity

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const testSecret = "super-secret-key"

func signToken(t *testing.T, secret string, alg jwa.SignatureAlgorithm, mutate func(*jwt.Builder)) string {
	t.Helper()
	now := time.Now()
	builder := jwt.NewBuilder().
		Subject("user-42").
		Issuer("promo-api").
		IssuedAt(now).
		Expiration(now.Add(time.Minute))
	if mutate != nil {
		mutate(builder)
	}
	built, err := builder.Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(built, jwt.WithKey(alg, []byte(secret)))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func TestVerifierParseSuccess(t *testing.T) {
	v, err := NewVerifier(testSecret, "promo-api")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	raw := signToken(t, testSecret, jwa.HS256, func(b *jwt.Builder) {
		b.Claim("roles", []string{"admin", "support"})
	})
	claims, err := v.Parse(raw)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "admin" {
		t.Fatalf("unexpected roles: %v", claims.Roles)
	}
}

func TestVerifierRejectsWrongSecret(t *testing.T) {
	v, err := NewVerifier(testSecret, "")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	raw := signToken(t, "some-other-key", jwa.HS256, nil)
	if _, err := v.Parse(raw); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestVerifierRejectsAlgorithmMismatch(t *testing.T) {
	v, err := NewVerifier(testSecret, "")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	raw := signToken(t, testSecret, jwa.HS384, nil)
	if _, err := v.Parse(raw); err == nil {
		t.Fatal("expected algorithm mismatch error")
	}
}

func TestVerifierRejectsExpired(t *testing.T) {
	v, err := NewVerifier(testSecret, "")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	raw := signToken(t, testSecret, jwa.HS256, func(b *jwt.Builder) {
		b.IssuedAt(time.Now().Add(-2 * time.Hour))
		b.Expiration(time.Now().Add(-time.Hour))
	})
	if _, err := v.Parse(raw); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestVerifierRejectsWrongIssuer(t *testing.T) {
	v, err := NewVerifier(testSecret, "promo-api")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	raw := signToken(t, testSecret, jwa.HS256, func(b *jwt.Builder) {
		b.Issuer("someone-else")
	})
	if _, err := v.Parse(raw); err == nil {
		t.Fatal("expected issuer error")
	}
}

func TestVerifierRequiresSecret(t *testing.T) {
	if _, err := NewVerifier("", ""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestVerifierRolesFromAnySlice(t *testing.T) {
	roles := toStringSlice([]any{"admin", 7, "ops"})
	if len(roles) != 2 || roles[0] != "admin" || roles[1] != "ops" {
		t.Fatalf("unexpected roles: %v", roles)
	}
}
