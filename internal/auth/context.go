package auth

import (
	"context"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
)

type userKey struct{}

// WithUser attaches the authenticated user to ctx.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom returns the user attached by WithUser.
func UserFrom(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey{}).(models.User)
	return user, ok
}

// ActingUser is the identifier written on ledger entries.
func ActingUser(ctx context.Context) string {
	if user, ok := UserFrom(ctx); ok && user.Email != "" {
		return user.Email
	}
	return models.UnknownUser
}
