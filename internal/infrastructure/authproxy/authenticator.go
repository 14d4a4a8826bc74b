// Package authproxy trusts identity headers set by the fronting auth proxy.
// The proxy terminates sessions and strips these headers from client
// traffic, so their presence here is authoritative.
package authproxy

import (
	"errors"
	"net/http"

	"github.com/shopkart-labs/shopkart-api/internal/domain/user"
)

const headerUserID = "X-User-ID"

var ErrNoIdentity = errors.New("authproxy: no identity header")

type Authenticator struct {
	users user.Repository
}

func New(users user.Repository) *Authenticator {
	return &Authenticator{users: users}
}

func (a *Authenticator) Authenticate(r *http.Request) (*user.User, error) {
	id := r.Header.Get(headerUserID)
	if id == "" {
		return nil, ErrNoIdentity
	}
	return a.users.FindByID(r.Context(), id)
}
