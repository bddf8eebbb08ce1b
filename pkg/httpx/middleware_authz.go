package httpx

import (
	"net/http"
	"strings"
)

// RequireAnyRole the caller must have at least one of the provided roles.
func RequireAnyRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := PrincipalFromCtx(r.Context())
			for _, role := range roles {
				if p.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeForbidden(w, roles...)
		})
	}
}

// RequireSelfOrRole lets a caller act on their own user id (taken from the
// {param} path value) or, failing that, requires one of roles.
func RequireSelfOrRole(param string, roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := PrincipalFromCtx(r.Context())
			if p.UserID != "" && p.UserID == r.PathValue(param) {
				next.ServeHTTP(w, r)
				return
			}
			for _, role := range roles {
				if p.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeForbidden(w, roles...)
		})
	}
}

// RFC 6750-compliant error response for bearer insufficient_scope.
func writeForbidden(w http.ResponseWriter, roles ...string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(roles, " ")+`"`)
	WriteError(w, http.StatusForbidden, "insufficient_scope", "requires role: "+strings.Join(roles, " or "))
}
