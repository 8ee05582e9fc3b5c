package common

import "context"

// UserContext holds the per-request identity resolved by the HTTP middleware.
// When absent (nil), the server operates in single-user mode.
type UserContext struct {
	UserID string
	Source string
}

type contextKey int

const userContextKey contextKey = iota

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// WithUserID is shorthand for storing a bare user identity, used by the scheduler and tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return WithUserContext(ctx, &UserContext{UserID: userID})
}

// ResolveUserID returns the UserID from context, or "default" when no user context is present.
// Used by services and storage operations that need a user scope.
func ResolveUserID(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil && uc.UserID != "" {
		return uc.UserID
	}
	return "default"
}
