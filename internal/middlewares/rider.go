package middlewares

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const RiderIDKey contextKey = "riderID"

const riderHeader = "X-Rider-ID"

// Rider installs the rider identity from the X-Rider-ID header into the
// request context, falling back to the configured default. The backend
// runs unauthenticated; the header only selects whose documents to serve.
func Rider(defaultRiderID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			riderID := strings.TrimSpace(r.Header.Get(riderHeader))
			if riderID == "" {
				riderID = defaultRiderID
			}

			ctx := context.WithValue(r.Context(), RiderIDKey, riderID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RiderID pulls the rider identity out of a request context.
func RiderID(ctx context.Context) string {
	if id, ok := ctx.Value(RiderIDKey).(string); ok {
		return id
	}
	return ""
}
