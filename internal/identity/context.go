package identity

import "context"

type ctxKey string

const (
	identityKey ctxKey = "identity/subject"
	rolesKey    ctxKey = "identity/roles"
)

// WithIdentity stores the caller identity on the provided context.
func WithIdentity(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext extracts the caller identity from the context if present.
func FromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(identityKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithRoles stores the caller's roles on the provided context.
func WithRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, rolesKey, roles)
}

// HasRole reports whether the context carries the named role.
func HasRole(ctx context.Context, role string) bool {
	v := ctx.Value(rolesKey)
	roles, ok := v.([]string)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
