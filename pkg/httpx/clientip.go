package httpx

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the caller's address. Forwarded headers are only honoured
// when ProxyHeaders resolved them for this request; otherwise the TCP peer
// address is used.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(CtxKeyClientIP).(string); ok && ip != "" {
		return ip
	}
	return remoteIP(r)
}

// ProxyHeaders resolves the client address from X-Forwarded-For or X-Real-IP
// when trust is true. Enable it only behind a proxy that overwrites those
// headers; with trust false it is a no-op and clients cannot pick their own
// address.
func ProxyHeaders(trust bool) Middleware {
	return func(next http.Handler) http.Handler {
		if !trust {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := forwardedIP(r); ip != "" {
				r = r.WithContext(context.WithValue(r.Context(), CtxKeyClientIP, ip))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return ""
}

func remoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
