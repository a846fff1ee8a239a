package tgauth

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the calling client's IP address to ctx. The Engine uses it
// as the key for per-address, per-step rate limiting. Without it the limiter
// is skipped for that request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
