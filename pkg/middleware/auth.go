package middleware

import (
	"context"
	"net/http"

	"github.com/nsaleh/socialnet/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the context key for the authenticated user ID
	UserIDKey ContextKey = "user_id"

	// SessionCookieName is the cookie carrying the session token.
	SessionCookieName = "session_id"
)

// SessionValidator resolves a session token to a user ID.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (int64, error)
}

// RequireAuth rejects requests without a valid session cookie and puts the
// authenticated user ID on the request context.
func RequireAuth(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				response.Unauthorized(w, "Authentication required")
				return
			}

			userID, err := sessions.Validate(r.Context(), cookie.Value)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts the user ID from the request context
func GetUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

// WithUserID returns a context carrying userID. Used by tests.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
