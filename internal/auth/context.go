package auth

import (
	"context"

	"github.com/xscan/xscan/internal/model"
)

type sessionKey struct{}

// ContextWithAuth stores the caller's session on ctx.
func ContextWithAuth(ctx context.Context, session *model.AuthContext) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// AuthFromContext returns the caller's session, or nil for anonymous requests.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	session, _ := ctx.Value(sessionKey{}).(*model.AuthContext)
	return session
}

// MustAuthFromContext is AuthFromContext for handlers mounted behind the
// auth middleware. It panics when the session is missing.
func MustAuthFromContext(ctx context.Context) *model.AuthContext {
	session := AuthFromContext(ctx)
	if session == nil {
		panic("auth: no session in context; route is missing the auth middleware")
	}
	return session
}

// UserIDFromContext returns the caller's user id, or "" when anonymous.
func UserIDFromContext(ctx context.Context) string {
	if session := AuthFromContext(ctx); session != nil {
		return session.UserID
	}
	return ""
}

// RoleFromContext returns the caller's role, or "" when anonymous.
func RoleFromContext(ctx context.Context) model.Role {
	if session := AuthFromContext(ctx); session != nil {
		return session.Role
	}
	return ""
}
