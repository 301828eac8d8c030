// Package identity carries the caller's resolved email through a request.
package identity

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const emailKey contextKey = "caller_email"

// WithEmail returns a copy of ctx carrying the normalized caller email.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey, email)
}

// EmailFromContext returns the caller email, or "" if the gate did not run.
func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(emailKey).(string)
	return email
}

// MustEmailFromContext returns the caller email.
// Panics if not present (use only behind the identity gate).
func MustEmailFromContext(ctx context.Context) string {
	email := EmailFromContext(ctx)
	if email == "" {
		panic("caller email not found - ensure identity middleware is applied")
	}
	return email
}
