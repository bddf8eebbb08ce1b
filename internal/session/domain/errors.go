package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the machine-readable tag of an Error. The set is closed; add a
// constant here and a case in every switch over codes.
type ErrorCode string

const (
	// Fatal: misconfigured or broken host, never retried.
	CodeWorkerIDOutOfRange ErrorCode = "worker_id_out_of_range"
	CodeClockRegression    ErrorCode = "clock_regression"

	// Token: the caller should re-authenticate.
	CodeTokenSecretNotConfigured ErrorCode = "token_secret_not_configured"
	CodeInvalidTokenFormat       ErrorCode = "invalid_token_format"
	CodeInvalidTokenSignature    ErrorCode = "invalid_token_signature"
	CodeTokenPayloadCorrupt      ErrorCode = "token_payload_corrupt"
	CodeInvalidToken             ErrorCode = "invalid_token"
	CodeTokenExpired             ErrorCode = "token_expired"
	CodeRefreshTokenExpired      ErrorCode = "refresh_token_expired"

	// Session: force a new login.
	CodeSessionNotFound ErrorCode = "session_not_found"
)

// Codes lists every ErrorCode.
var Codes = []ErrorCode{
	CodeWorkerIDOutOfRange,
	CodeClockRegression,
	CodeTokenSecretNotConfigured,
	CodeInvalidTokenFormat,
	CodeInvalidTokenSignature,
	CodeTokenPayloadCorrupt,
	CodeInvalidToken,
	CodeTokenExpired,
	CodeRefreshTokenExpired,
	CodeSessionNotFound,
}

// Fatal reports whether the code signals a broken process rather than a bad
// credential.
func (c ErrorCode) Fatal() bool {
	switch c {
	case CodeWorkerIDOutOfRange, CodeClockRegression:
		return true
	default:
		return false
	}
}

// Error is the single error type surfaced by the session authority. Callers
// branch on Code, never on the message.
type Error struct {
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so errors.Is(err, ErrTokenExpired)
// works regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError tags cause with code.
func NewError(code ErrorCode, cause error) *Error {
	return &Error{Code: code, Err: cause}
}

// CodeOf extracts the code from err, or "" when err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Sentinels for errors.Is.
var (
	ErrWorkerIDOutOfRange       = &Error{Code: CodeWorkerIDOutOfRange}
	ErrClockRegression          = &Error{Code: CodeClockRegression}
	ErrTokenSecretNotConfigured = &Error{Code: CodeTokenSecretNotConfigured}
	ErrInvalidTokenFormat       = &Error{Code: CodeInvalidTokenFormat}
	ErrInvalidTokenSignature    = &Error{Code: CodeInvalidTokenSignature}
	ErrTokenPayloadCorrupt      = &Error{Code: CodeTokenPayloadCorrupt}
	ErrInvalidToken             = &Error{Code: CodeInvalidToken}
	ErrTokenExpired             = &Error{Code: CodeTokenExpired}
	ErrRefreshTokenExpired      = &Error{Code: CodeRefreshTokenExpired}
	ErrSessionNotFound          = &Error{Code: CodeSessionNotFound}
)
