package httppresentation

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopkart-labs/shopkart-api/internal/domain/user"
)

// Authenticator resolves the request's identity. Credential checking happens
// upstream; implementations only map whatever the trusted proxy or session
// layer forwarded onto a user record.
type Authenticator interface {
	Authenticate(r *http.Request) (*user.User, error)
}

var errUnauthenticated = errors.New("authentication required")

type userKey struct{}

// UserFromContext returns the authenticated user injected by RequireUser.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userKey{}).(*user.User)
	return u, ok
}

// RequireUser rejects unauthenticated requests and injects the user into the
// request context for handlers downstream.
func RequireUser(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := auth.Authenticate(r)
			if err != nil || u == nil {
				writeError(w, http.StatusUnauthorized, errUnauthenticated)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, u)))
		})
	}
}

// RequireAdmin runs after RequireUser and rejects non-admin callers.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok || !u.Admin {
			writeError(w, http.StatusForbidden, errors.New("admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
