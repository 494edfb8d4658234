package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims is the subset of token claims the promo service cares about. The
// identity is an opaque caller handle; it is never dereferenced against a
// user store.
type Claims struct {
	Subject string
	Roles   []string
}

// Verifier validates HMAC-signed bearer tokens issued by the storefront.
type Verifier struct {
	secret    []byte
	issuer    string
	clockSkew time.Duration
}

// NewVerifier constructs a Verifier for the shared signing secret.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("identity: signing secret is required")
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, clockSkew: 30 * time.Second}, nil
}

// Parse verifies the token signature and standard claims and extracts the
// subject and roles.
func (v *Verifier) Parse(raw string) (Claims, error) {
	if v == nil {
		return Claims{}, errors.New("identity: verifier not configured")
	}
	options := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, v.secret),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.clockSkew),
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}
	tok, err := jwt.Parse([]byte(raw), options...)
	if err != nil {
		return Claims{}, fmt.Errorf("identity: parse token: %w", err)
	}
	claims := Claims{Subject: tok.Subject()}
	if raw, ok := tok.Get("roles"); ok {
		claims.Roles = toStringSlice(raw)
	}
	return claims, nil
}

func toStringSlice(v any) []string {
	switch values := v.(type) {
	case []string:
		return values
	case []any:
		out := make([]string, 0, len(values))
		for _, item := range values {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
