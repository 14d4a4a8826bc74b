package user

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("user: not found")

// User is the authenticated identity supplied by the auth collaborator. The
// core never performs credential checks; it only reads the fields below and
// persists the gateway customer reference.
type User struct {
	ID                string
	Email             string
	Name              string
	GatewayCustomerID string
	Admin             bool
}

type Repository interface {
	FindByID(ctx context.Context, id string) (*User, error)

	// ClaimGatewayCustomer writes customerID onto the user only when no
	// reference is stored yet (compare-and-set). It returns the reference
	// that ended up stored, which may belong to a concurrent winner.
	ClaimGatewayCustomer(ctx context.Context, userID, customerID string) (string, error)
}
