package auth

import "context"

type contextKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok && id != nil
}

// UserID returns the authenticated user's id, or "" when the request is
// anonymous.
func UserID(ctx context.Context) string {
	id, ok := FromContext(ctx)
	if !ok || id.User == nil {
		return ""
	}
	return id.User.ID
}

// SessionID returns the id of the session that authenticated the request.
func SessionID(ctx context.Context) string {
	id, ok := FromContext(ctx)
	if !ok || id.Session == nil {
		return ""
	}
	return id.Session.ID
}
