// Package requesttime pins one "now" per request so every timestamp written
// while serving it (created_at, audit events, logs) agrees.
package requesttime

import (
	"net/http"
	"time"

	"bothub/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
// Read it with requestcontext.Now.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
