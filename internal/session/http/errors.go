package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/sessiond/internal/session/domain"
	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

// statusClientClosedRequest is nginx's code for a client that went away
// before the reply. Nobody reads it, but it keeps logs and metrics honest.
const statusClientClosedRequest = 499

// statusFor maps an error code to its HTTP status.
func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeInvalidTokenFormat,
		domain.CodeInvalidTokenSignature,
		domain.CodeTokenPayloadCorrupt,
		domain.CodeInvalidToken,
		domain.CodeTokenExpired,
		domain.CodeRefreshTokenExpired,
		domain.CodeSessionNotFound:
		return http.StatusUnauthorized
	case domain.CodeClockRegression:
		return http.StatusServiceUnavailable
	case domain.CodeWorkerIDOutOfRange, domain.CodeTokenSecretNotConfigured:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError renders err. Tagged errors keep their code; anything else
// is logged and hidden behind server_error.
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := slogx.FromContext(ctx)

	if errors.Is(err, context.Canceled) {
		log.Debug("request cancelled", "err", err)
		w.WriteHeader(statusClientClosedRequest)
		return
	}

	code := domain.CodeOf(err)
	if code == "" {
		log.Error("request failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	// Codec failures are nested under invalid_token; report the outer code
	// and keep the detail in the log only.
	status := statusFor(code)
	switch {
	case code.Fatal():
		log.Error("fatal session error", "code", code, "err", err)
	case status >= http.StatusInternalServerError:
		log.Error("session service misconfigured", "code", code, "err", err)
	default:
		log.Info("request rejected", "code", code, "err", err)
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	apiErr := &authsdk.APIError{StatusCode: status, Code: string(code), Description: describe(code)}
	apiErr.WriteError(w)
}

func describe(code domain.ErrorCode) string {
	switch code {
	case domain.CodeWorkerIDOutOfRange:
		return authsdk.ErrWorkerIDOutOfRange.Description
	case domain.CodeClockRegression:
		return authsdk.ErrClockRegression.Description
	case domain.CodeTokenSecretNotConfigured:
		return authsdk.ErrTokenSecretNotConfigured.Description
	case domain.CodeInvalidTokenFormat,
		domain.CodeInvalidTokenSignature,
		domain.CodeTokenPayloadCorrupt,
		domain.CodeInvalidToken:
		return authsdk.ErrInvalidToken.Description
	case domain.CodeTokenExpired:
		return authsdk.ErrTokenExpired.Description
	case domain.CodeRefreshTokenExpired:
		return authsdk.ErrRefreshTokenExpired.Description
	case domain.CodeSessionNotFound:
		return authsdk.ErrSessionNotFound.Description
	default:
		return ""
	}
}
