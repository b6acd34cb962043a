// ABOUTME: Authentication context for tracking the tenant through request handlers
// ABOUTME: Provides WithTenant/TenantFromContext for propagating identity via context

package auth

import (
	"context"
)

// tenantContextKey is the key type for storing the tenant id in context.Context.
type tenantContextKey struct{}

// WithTenant returns a new context carrying the authenticated tenant id.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// TenantFromContext retrieves the tenant id, reporting false if none was set.
func TenantFromContext(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(tenantContextKey{}).(string)
	if !ok || tenantID == "" {
		return "", false
	}
	return tenantID, true
}

// MustTenantFromContext retrieves the tenant id, panicking if not present.
func MustTenantFromContext(ctx context.Context) string {
	tenantID, ok := TenantFromContext(ctx)
	if !ok {
		panic("auth: tenant not found in context")
	}
	return tenantID
}
