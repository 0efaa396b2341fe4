package auth

import (
	"context"
	"errors"

	"github.com/dukerupert/pointjar/internal/model"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("admin access required")
)

type contextKey struct{}

// AuthContext is the identity attached to an authenticated request.
type AuthContext struct {
	UserID    int64
	Username  string
	Role      string
	SessionID int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// RequireSession returns the request identity or ErrUnauthenticated.
func RequireSession(ctx context.Context) (AuthContext, error) {
	ac, ok := FromContext(ctx)
	if !ok || ac.UserID == 0 {
		return AuthContext{}, ErrUnauthenticated
	}
	return ac, nil
}

// RequireAdminRole returns the request identity if it carries the admin role.
func RequireAdminRole(ctx context.Context) (AuthContext, error) {
	ac, err := RequireSession(ctx)
	if err != nil {
		return AuthContext{}, err
	}
	if ac.Role != model.RoleAdmin {
		return AuthContext{}, ErrForbidden
	}
	return ac, nil
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == model.RoleAdmin
}
