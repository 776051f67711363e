package auth

import (
	"context"

	"github.com/agriconnectke/marketplace-service/internal/model"
)

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

// WithUser stores the authenticated user and the prefix of the token used.
func WithUser(ctx context.Context, u *model.User, tokenPrefix string) context.Context {
	ctx = context.WithValue(ctx, userKey, u)
	return context.WithValue(ctx, tokenKey, tokenPrefix)
}

func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// GetUserID returns the caller's ID, or "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	if u, ok := UserFromContext(ctx); ok {
		return u.ID
	}
	return ""
}

func TokenKeyFromContext(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey).(string)
	return v
}

// IsStaff is false for anonymous callers.
func IsStaff(ctx context.Context) bool {
	u, ok := UserFromContext(ctx)
	return ok && u.IsStaff
}

// CanModify reports whether the caller owns the object or is staff.
func CanModify(ctx context.Context, ownerID string) bool {
	u, ok := UserFromContext(ctx)
	if !ok {
		return false
	}
	return u.IsStaff || u.ID == ownerID
}
