package auth

import "context"

// User is the acting identity resolved from a login session.
type User struct {
	ID      string
	Name    string
	Email   string
	IsAdmin bool
}

// SessionLookup resolves an opaque session token to a user.
type SessionLookup interface {
	LookupSession(ctx context.Context, token string) (*User, error)
}

type contextKey int

const userContextKey contextKey = iota

// ContextWithUser returns a new context carrying the given user.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the user from the context, or nil if not present.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey).(*User)
	return user
}
