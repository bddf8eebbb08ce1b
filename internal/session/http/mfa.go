package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/sessiond/internal/session/service"
	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

// MFAHandler handles all MFA-related endpoints.
type MFAHandler struct {
	MFAService *service.MFAService
}

// HandleVerifyTOTP handles POST /v1/mfa/totp/verify
//
//	@Summary		Verify TOTP code
//	@Description	Checks a six digit code against the service TOTP secret, allowing one step of clock drift either way.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TOTPVerifyRequest	true	"Code"
//	@Success		200		{object}	authsdk.VerifyResponse
//	@Failure		400		{object}	authsdk.APIError	"invalid_request"
//	@Failure		429		{object}	authsdk.APIError	"rate_limit_exceeded"
//	@Router			/v1/mfa/totp/verify [post].
func (h *MFAHandler) HandleVerifyTOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.TOTPVerifyRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyResponse{
		Valid: h.MFAService.VerifyTOTP(r.Context(), req.Code),
	})
}

type enrollmentQuery struct {
	Account string `json:"account" validate:"required,max=256"`
}

// HandleEnrollment handles GET /v1/mfa/totp/enrollment
//
//	@Summary		TOTP enrollment URL
//	@Description	Returns the otpauth:// URL for the service TOTP secret, labelled with account. Requires the admin role.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Param			account	query		string	true	"Account label shown by authenticator apps"
//	@Success		200		{object}	authsdk.EnrollmentResponse
//	@Failure		400		{object}	authsdk.APIError	"invalid_request"
//	@Failure		401		{object}	authsdk.APIError	"invalid_token"
//	@Failure		403		{object}	authsdk.APIError	"insufficient_scope"
//	@Router			/v1/mfa/totp/enrollment [get].
func (h *MFAHandler) HandleEnrollment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := enrollmentQuery{Account: r.URL.Query().Get("account")}
	if !validateRequest(w, r, &q) {
		return
	}

	u, err := h.MFAService.EnrollmentURL(q.Account)
	if err != nil {
		slogx.FromContext(ctx).Error("build enrollment url", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.EnrollmentResponse{
		URL:     u,
		Issuer:  h.MFAService.Issuer,
		Account: q.Account,
	})
}

// HandleGenerateBackupCodes handles POST /v1/mfa/backup-codes
//
//	@Summary		Generate backup codes
//	@Description	Returns fresh random backup codes. The service does not store them.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.BackupCodesRequest	false	"How many codes (default 8, max 32)"
//	@Success		200		{object}	authsdk.BackupCodesResponse
//	@Failure		400		{object}	authsdk.APIError	"invalid_request"
//	@Router			/v1/mfa/backup-codes [post].
func (h *MFAHandler) HandleGenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.BackupCodesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	codes, err := h.MFAService.GenerateBackupCodes(req.Count)
	if errors.Is(err, service.ErrInvalidBackupCodeCount) {
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}
	if err != nil {
		slogx.FromContext(ctx).Error("generate backup codes", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{Codes: codes})
}

// HandleVerifyBackupCode handles POST /v1/mfa/backup-codes/verify
//
//	@Summary		Check backup code format
//	@Description	Reports whether a code is eight uppercase hex characters. Matching against issued codes is the caller's job.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.BackupCodeVerifyRequest	true	"Code"
//	@Success		200		{object}	authsdk.VerifyResponse
//	@Failure		400		{object}	authsdk.APIError	"invalid_request"
//	@Router			/v1/mfa/backup-codes/verify [post].
func (h *MFAHandler) HandleVerifyBackupCode(w http.ResponseWriter, r *http.Request) {
	var req authsdk.BackupCodeVerifyRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyResponse{
		Valid: h.MFAService.VerifyBackupCode(req.Code),
	})
}
