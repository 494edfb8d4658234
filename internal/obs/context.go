package obs

import "context"

// routePatternKey keys the matched chi route pattern on a request context.
type routePatternKey struct{}

// WithRoutePattern annotates ctx with the matched route pattern so metrics
// and request logs label by route instead of raw URL.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext returns the stored pattern, or "" when the request
// never matched a route.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(routePatternKey{}).(string)
	return v
}
