package auth

import "context"

// Principal is the authenticated identity attached to a browser session.
// Role is a snapshot taken at login or registration time.
type Principal struct {
	Subject string `json:"sub"`
	Role    Role   `json:"role"`
}

// Complete reports whether the principal carries both a subject and a granted role.
func (p *Principal) Complete() bool {
	return p != nil && p.Subject != "" && p.Role != RoleNone
}

// Authorize is the gate predicate: it checks a session principal against the
// minimum role an endpoint requires. A nil principal is not authenticated.
func Authorize(p *Principal, required Role) error {
	if p == nil || p.Subject == "" {
		return ErrNotAuthenticated
	}
	if !p.Role.AtLeast(required) {
		return &NotAuthorizedError{Held: p.Role, Required: required}
	}
	return nil
}

type principalContextKey struct{}

// SetPrincipalContext stores the authorized principal on the context for downstream handlers.
func SetPrincipalContext(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// GetPrincipalFromContext retrieves the principal stored by the gate.
func GetPrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(Principal)
	return principal, ok
}
