package identity

import (
	"net/http"
	"strings"

	"github.com/noah-isme/promo-api/internal/common"
)

// Middleware wires caller identity into HTTP handlers. Identity is optional
// on public evaluation endpoints: requests without a token are treated as
// guests and simply skip per-user checks.
type Middleware struct {
	Verifier *Verifier
}

// Attach adds the identity to the request context when a valid bearer token
// is present. Invalid tokens are treated the same as no token.
func (m Middleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" || m.Verifier == nil {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := m.Verifier.Parse(token)
		if err != nil || claims.Subject == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := WithIdentity(r.Context(), claims.Subject)
		ctx = WithRoles(ctx, claims.Roles)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole enforces that the caller is authenticated and carries the
// named role.
func (m Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" || m.Verifier == nil {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
			claims, err := m.Verifier.Parse(token)
			if err != nil || claims.Subject == "" {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
			ctx := WithIdentity(r.Context(), claims.Subject)
			ctx = WithRoles(ctx, claims.Roles)
			if !HasRole(ctx, role) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
