package auth

import "context"

type userIDKey struct{}

// WithUserID attaches the acting user to the context for audit trails.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the acting user, or "system" when no user is attached.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok && id != "" {
		return id
	}
	return "system"
}
