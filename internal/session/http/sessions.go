package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/sessiond/internal/session/domain"
	"github.com/aussiebroadwan/sessiond/internal/session/service"
	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/cryptox"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

// SessionsHandler serves the /v1/sessions endpoints.
type SessionsHandler struct {
	Authority *service.Authority
}

// HandleCreate handles POST /v1/sessions
//
//	@Summary		Create session
//	@Description	Creates a session for an already authenticated user and returns its token pair.
//	@Description	user_agent and ip default to the values seen on the request.
//	@Description	When the service is configured with a key, X-Service-Key is required. Roles and permissions are only accepted from a caller presenting the key.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			X-Service-Key	header		string							false	"Shared service key"
//	@Param			request			body		authsdk.CreateSessionRequest	true	"Login details"
//	@Success		201				{object}	authsdk.TokenResponse
//	@Failure		400				{object}	authsdk.APIError	"invalid_request"
//	@Failure		401				{object}	authsdk.APIError	"invalid_client"
//	@Failure		403				{object}	authsdk.APIError	"insufficient_scope"
//	@Failure		429		{object}	authsdk.APIError	"rate_limit_exceeded"
//	@Failure		500		{object}	authsdk.APIError	"server_error"
//	@Router			/v1/sessions [post].
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.CreateSessionRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if (len(req.Roles) > 0 || len(req.Permissions) > 0) && !httpx.IsTrustedService(ctx) {
		slogx.FromContext(ctx).Warn("untrusted caller requested roles", "user_id", req.UserID, "roles", req.Roles)
		authsdk.ErrRolesNotAllowed.WriteError(w)
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}
	if req.IP == "" {
		req.IP = httpx.ClientIP(r)
	}

	pair, err := h.Authority.CreateSession(ctx, domain.LoginRequest{
		UserID:       req.UserID,
		Roles:        req.Roles,
		Permissions:  req.Permissions,
		IsRememberMe: req.RememberMe,
		UserAgent:    req.UserAgent,
		IP:           req.IP,
	})
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toTokenResponse(pair))
}

// HandleValidate handles POST /v1/sessions/validate
//
//	@Summary		Validate access token
//	@Description	Verifies an access token and returns its payload. The token is read from the body or, when the body is empty, from the Authorization header.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ValidateRequest	false	"Token to validate"
//	@Success		200		{object}	authsdk.TokenInfo
//	@Failure		400		{object}	authsdk.APIError	"invalid_request"
//	@Failure		401		{object}	authsdk.APIError	"invalid_token, token_expired, session_not_found"
//	@Router			/v1/sessions/validate [post].
func (h *SessionsHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.ValidateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		if !errors.Is(err, httpx.ErrEmptyBody) {
			authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
			return
		}
		req.Token, _ = httpx.BearerToken(r)
	}
	if !validateRequest(w, r, &req) {
		return
	}

	data, err := h.Authority.ValidateAccessToken(ctx, req.Token)
	if err != nil {
		slogx.FromContext(ctx).Debug("validation failed", "token", cryptox.FingerprintToken(req.Token))
		writeDomainError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTokenInfo(data))
}

// HandleRefresh handles POST /v1/sessions/refresh
//
//	@Summary		Refresh session
//	@Description	Trades a refresh token for a new token pair. With rotation enabled the old session is revoked and the refresh token cannot be reused.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.APIError	"invalid_request"
//	@Failure		401		{object}	authsdk.APIError	"invalid_token, refresh_token_expired, session_not_found"
//	@Router			/v1/sessions/refresh [post].
func (h *SessionsHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.RefreshRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	pair, err := h.Authority.RefreshAccessToken(ctx, req.RefreshToken)
	if err != nil {
		slogx.FromContext(ctx).Debug("refresh failed", "token", cryptox.FingerprintToken(req.RefreshToken))
		writeDomainError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
}

// HandleGet handles GET /v1/sessions/{id}
//
//	@Summary		Get session
//	@Description	Returns a session record. Callers may read their own sessions; admins may read any.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	authsdk.SessionInfo
//	@Failure		401	{object}	authsdk.APIError	"invalid_token"
//	@Failure		404	{object}	authsdk.APIError	"not_found"
//	@Router			/v1/sessions/{id} [get].
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := httpx.PrincipalFromCtx(ctx)

	sess, err := h.Authority.GetSession(ctx, r.PathValue("id"))
	if errors.Is(err, domain.ErrSessionNotFound) {
		authsdk.ErrNotFound.WriteError(w)
		return
	}
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	if sess.UserID != p.UserID && !p.HasRole(AdminRole) {
		authsdk.ErrNotFound.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toSessionInfo(sess, p.SessionID))
}

type revokeQuery struct {
	Reason string `json:"reason" validate:"omitempty,oneof=logout user_revoked admin"`
}

// HandleRevoke handles DELETE /v1/sessions/{id}
//
//	@Summary		Revoke session
//	@Description	Destroys a session. Revoking an unknown or already revoked session succeeds.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Param			id		path	string	true	"Session id"
//	@Param			reason	query	string	false	"Revocation reason"	Enums(logout, user_revoked, admin)
//	@Success		204
//	@Failure		400	{object}	authsdk.APIError	"invalid_request"
//	@Failure		401	{object}	authsdk.APIError	"invalid_token"
//	@Failure		404	{object}	authsdk.APIError	"not_found"
//	@Router			/v1/sessions/{id} [delete].
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := httpx.PrincipalFromCtx(ctx)
	id := r.PathValue("id")

	q := revokeQuery{Reason: r.URL.Query().Get("reason")}
	if !validateRequest(w, r, &q) {
		return
	}

	sess, err := h.Authority.GetSession(ctx, id)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		writeDomainError(ctx, w, err)
		return
	}

	admin := p.HasRole(AdminRole)
	if sess.UserID != p.UserID && !admin {
		authsdk.ErrNotFound.WriteError(w)
		return
	}

	reason := domain.RevocationReason(q.Reason)
	if reason == "" {
		reason = domain.ReasonLogout
		if sess.UserID != p.UserID {
			reason = domain.ReasonAdmin
		}
	}

	if err := h.Authority.RevokeSession(ctx, id, reason); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCleanup handles POST /v1/sessions/cleanup
//
//	@Summary		Remove idle sessions
//	@Description	Deletes every session idle for longer than the configured timeout. Requires the admin role.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.CountResponse
//	@Failure		401	{object}	authsdk.APIError	"invalid_token"
//	@Failure		403	{object}	authsdk.APIError	"insufficient_scope"
//	@Router			/v1/sessions/cleanup [post].
func (h *SessionsHandler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := h.Authority.CleanupSessions(ctx)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	slogx.FromContext(ctx).Info("manual cleanup", "removed", n)
	httpx.WriteJSON(w, http.StatusOK, authsdk.CountResponse{Count: n})
}
