package user

import (
	"context"

	"github.com/courtbook/courtbook/internal/auth"
)

// AuthAdapter adapts user.Store to the auth.SessionLookup interface.
type AuthAdapter struct {
	store *Store
}

// NewAuthAdapter creates a new AuthAdapter wrapping the given user store.
func NewAuthAdapter(store *Store) *AuthAdapter {
	return &AuthAdapter{store: store}
}

// LookupSession resolves a session token to the acting auth.User.
func (a *AuthAdapter) LookupSession(ctx context.Context, token string) (*auth.User, error) {
	u, err := a.store.GetSessionUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return &auth.User{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
	}, nil
}
