package auth

import (
	"context"
	"strings"
)

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID         string
	Email          string
	Role           string
	OrganizationID string
}

// IsAdmin reports whether the principal may manage its organization.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// NormalizeRole lower-cases a role and maps blanks to employee.
func NormalizeRole(role string) string {
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		return RoleEmployee
	}
	return role
}

// ValidRole reports whether role is one the service understands.
func ValidRole(role string) bool {
	switch NormalizeRole(role) {
	case RoleAdmin, RoleEmployee:
		return true
	}
	return false
}

type principalContextKey struct{}
type tokenContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil {
		return Principal{}, false
	}
	return *v, true
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || strings.TrimSpace(p.UserID) == "" {
		return "", false
	}
	return p.UserID, true
}

// ContextWithToken stores the raw bearer token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
