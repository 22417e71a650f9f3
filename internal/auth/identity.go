package auth

import (
	"context"

	"messaging-service/internal/models"
)

// UserFinder is the slice of the identity store login needs.
type UserFinder interface {
	FindByEmailAndName(ctx context.Context, email, name string) (models.User, error)
}

// IdentityAssertion proves who a caller is without a password: the caller
// asserts an (email, name) pair and it must match a stored user exactly.
type IdentityAssertion struct {
	users UserFinder
}

func NewIdentityAssertion(users UserFinder) *IdentityAssertion {
	return &IdentityAssertion{users: users}
}

// Assert returns the identity of the matching user. The store's not-found
// error is passed through unchanged.
func (a *IdentityAssertion) Assert(ctx context.Context, email, name string) (Identity, error) {
	u, err := a.users.FindByEmailAndName(ctx, email, name)
	if err != nil {
		return Identity{}, err
	}
	return IdentityOf(u), nil
}

// IdentityOf is the identity a token for u binds.
func IdentityOf(u models.User) Identity {
	return Identity{UserID: u.ID, Email: u.Email, Name: u.Name}
}
