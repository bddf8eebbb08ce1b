package httpx

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

// ServiceKeyHeader carries the shared secret of a trusted backend.
const ServiceKeyHeader = "X-Service-Key"

// RequireServiceKey rejects requests whose ServiceKeyHeader does not match key
// and marks the rest as coming from a trusted service. An empty key disables
// the check and marks nothing, so IsTrustedService stays false.
func RequireServiceKey(key string) Middleware {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(ServiceKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				slogx.FromContext(r.Context()).Info("service key rejected", "present", got != "")
				WriteError(w, http.StatusUnauthorized, "invalid_client", "missing or invalid service key")
				return
			}
			ctx := context.WithValue(r.Context(), CtxKeyService, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsTrustedService reports whether RequireServiceKey accepted the request.
func IsTrustedService(ctx context.Context) bool {
	ok, _ := ctx.Value(CtxKeyService).(bool)
	return ok
}
