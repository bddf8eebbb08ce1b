package httpx

import "context"

type ctxKey string

const (
	CtxKeyPrincipal ctxKey = "principal"
	CtxKeyClientIP  ctxKey = "client_ip"
	CtxKeyService   ctxKey = "trusted_service"
)

// Principal is the authenticated caller behind a request.
type Principal struct {
	UserID      string
	SessionID   string
	Roles       []string
	Permissions []string
}

// HasRole reports whether p carries role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, CtxKeyPrincipal, p)
}

// PrincipalFromCtx returns the caller set by AuthnMiddleware.
func PrincipalFromCtx(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(CtxKeyPrincipal).(Principal)
	return p, ok
}
