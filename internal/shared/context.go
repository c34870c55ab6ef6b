package shared

import "context"

type userContextKey struct{}

// ContextWithUser stores the acting user identifier in context.
func ContextWithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userContextKey{}, userID)
}

// UserFromContext extracts the acting user identifier from context.
// Empty string when no user is attached.
func UserFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userContextKey{}).(string)
	return userID
}
