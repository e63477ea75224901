package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// Parser is the token check the middleware needs. *Tokens satisfies it.
type Parser interface {
	Parse(raw string) (string, error)
}

// Middleware rejects requests without a valid bearer token and stores the
// user id in the request context. unauthorized writes the rejection.
func Middleware(p Parser, unauthorized func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" || !strings.HasPrefix(h, "Bearer ") {
				unauthorized(w, r)
				return
			}

			userID, err := p.Parse(strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
			if err != nil {
				unauthorized(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(userIDKey).(string)
	return uid, ok && uid != ""
}
