package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/sessiond/pkg/httpx"
)

// Error codes returned in the "error" field. Token and session codes match
// the service's internal taxonomy one to one.
const (
	ErrorCodeInvalidRequest           = "invalid_request"
	ErrorCodeServerError              = "server_error"
	ErrorCodeInvalidClient            = "invalid_client"
	ErrorCodeInsufficientScope        = "insufficient_scope"
	ErrorCodeNotFound                 = "not_found"
	ErrorCodeRateLimited              = "rate_limit_exceeded"
	ErrorCodeTokenSecretNotConfigured = "token_secret_not_configured"
	ErrorCodeInvalidTokenFormat       = "invalid_token_format"
	ErrorCodeInvalidTokenSignature    = "invalid_token_signature"
	ErrorCodeTokenPayloadCorrupt      = "token_payload_corrupt"
	ErrorCodeInvalidToken             = "invalid_token"
	ErrorCodeTokenExpired             = "token_expired"
	ErrorCodeRefreshTokenExpired      = "refresh_token_expired"
	ErrorCodeSessionNotFound          = "session_not_found"
	ErrorCodeClockRegression          = "clock_regression"
	ErrorCodeWorkerIDOutOfRange       = "worker_id_out_of_range"
)

// APIError is an error response. It is used by the server to write replies
// and by the client to surface them.
type APIError struct {
	StatusCode  int               `json:"-"`
	Code        string            `json:"error"`
	Description string            `json:"error_description,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches any *APIError with the same code.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WriteError writes e as the HTTP response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, e)
}

// WithDescription returns a copy of e with a different description.
func (e *APIError) WithDescription(desc string) *APIError {
	c := *e
	c.Description = desc
	return &c
}

// WithDetails returns a copy of e carrying per-field messages.
func (e *APIError) WithDetails(details map[string]string) *APIError {
	c := *e
	c.Details = details
	return &c
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	ErrInvalidClient = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidClient,
		Description: "missing or invalid service key",
	}

	ErrRolesNotAllowed = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInsufficientScope,
		Description: "roles and permissions may only be granted by a trusted service",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "resource not found",
	}

	ErrInsufficientScope = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInsufficientScope,
		Description: "the access token does not carry the required role",
	}

	ErrTokenSecretNotConfigured = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeTokenSecretNotConfigured,
		Description: "the token secret is not configured",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the token is malformed or its signature does not verify",
	}

	ErrTokenExpired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTokenExpired,
		Description: "the access token has expired",
	}

	ErrRefreshTokenExpired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeRefreshTokenExpired,
		Description: "the refresh token has expired",
	}

	ErrSessionNotFound = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeSessionNotFound,
		Description: "the session does not exist or was revoked",
	}

	ErrClockRegression = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeClockRegression,
		Description: "the server clock moved backwards",
	}

	ErrWorkerIDOutOfRange = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeWorkerIDOutOfRange,
		Description: "the server worker id is misconfigured",
	}
)

// parseErrorResponse turns a non-2xx response into an *APIError. It returns
// nil for 2xx responses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
