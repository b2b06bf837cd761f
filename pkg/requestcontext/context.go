// Package requestcontext carries request-scoped values from middleware into
// services without importing net/http. Every getter returns a zero value when
// nothing was set, so services work the same outside an HTTP request.
package requestcontext

import (
	"context"
	"time"
)

type (
	clientKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Client describes the caller as seen by the metadata middleware.
type Client struct {
	IP        string
	UserAgent string
	// Platform is the parsed user agent, e.g. "bothub-agent (Linux)".
	Platform string
}

func value[T any](ctx context.Context, key any) (T, bool) {
	v, ok := ctx.Value(key).(T)
	return v, ok
}

// WithClientMetadata records the caller's address and user agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent, platform string) context.Context {
	return context.WithValue(ctx, clientKey{}, Client{IP: clientIP, UserAgent: userAgent, Platform: platform})
}

func ClientFrom(ctx context.Context) Client {
	c, _ := value[Client](ctx, clientKey{})
	return c
}

func ClientIP(ctx context.Context) string       { return ClientFrom(ctx).IP }
func UserAgent(ctx context.Context) string      { return ClientFrom(ctx).UserAgent }
func ClientPlatform(ctx context.Context) string { return ClientFrom(ctx).Platform }

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestID(ctx context.Context) string {
	id, _ := value[string](ctx, requestIDKey{})
	return id
}

// WithTime pins the clock for the request. Tests use it for deterministic
// timestamps.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the pinned request time, or the wall clock when none is set.
func Now(ctx context.Context) time.Time {
	if t, ok := value[time.Time](ctx, requestTimeKey{}); ok {
		return t
	}
	return time.Now()
}
