package auth

import (
	"context"
	"strings"
)

type userContextKey struct{}

type contextUser struct {
	id    string
	roles []string
}

// ContextWithUser attaches the authenticated user id and roles to the context.
func ContextWithUser(ctx context.Context, id string, roles []string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, userContextKey{}, &contextUser{id: id, roles: dedupeRoles(roles)})
}

// UserIDFromContext extracts the authenticated user id from the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	u, ok := ctx.Value(userContextKey{}).(*contextUser)
	if !ok || u == nil {
		return "", false
	}
	return u.id, true
}

// RolesFromContext returns the deduplicated roles attached to the context.
func RolesFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	u, ok := ctx.Value(userContextKey{}).(*contextUser)
	if !ok || u == nil {
		return nil
	}
	return u.roles
}

// HasRole reports whether the context user carries the given role.
func HasRole(ctx context.Context, role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	for _, r := range RolesFromContext(ctx) {
		if r == role {
			return true
		}
	}
	return false
}
