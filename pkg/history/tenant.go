package history

import "context"

type tenantKey struct{}

// WithTenant scopes the history operations made with ctx to one tenant,
// e.g. a classroom. Runs saved under a tenant are invisible to others.
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenant)
}

// TenantFrom returns the tenant of ctx, or "" for the shared history of a
// single-tenant deployment.
func TenantFrom(ctx context.Context) string {
	tenant, _ := ctx.Value(tenantKey{}).(string)
	return tenant
}
