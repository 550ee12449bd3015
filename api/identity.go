package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the caller's user id from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID returns a copy of ctx carrying userId.
func WithUserID(ctx context.Context, userId string) context.Context {
	return context.WithValue(ctx, userIDKey, userId)
}

// Identity trusts the user id resolved by the upstream auth layer and passed
// in header. Requests without one are rejected.
func Identity(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userId := strings.TrimSpace(r.Header.Get(header))
			if userId == "" {
				Error(w, http.StatusUnauthorized, "Not authorized, no user")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userId)))
		})
	}
}

// BearerAuth rejects requests without the shared token. An empty token
// disables the check.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				Error(w, http.StatusUnauthorized, "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
