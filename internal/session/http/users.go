package http

import (
	"net/http"

	"github.com/aussiebroadwan/sessiond/internal/session/domain"
	"github.com/aussiebroadwan/sessiond/internal/session/service"
	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
)

// UsersHandler serves the per-user session endpoints.
type UsersHandler struct {
	Authority *service.Authority
}

// HandleList handles GET /v1/users/{userID}/sessions
//
//	@Summary		List user sessions
//	@Description	Lists a user's sessions, most recently active first. The caller's own session is flagged current.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			userID	path		string	true	"User id"
//	@Success		200		{object}	authsdk.SessionListResponse
//	@Failure		401		{object}	authsdk.APIError	"invalid_token"
//	@Failure		403		{object}	authsdk.APIError	"insufficient_scope"
//	@Router			/v1/users/{userID}/sessions [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := httpx.PrincipalFromCtx(ctx)

	sessions, err := h.Authority.ListUserSessions(ctx, r.PathValue("userID"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	resp := authsdk.SessionListResponse{Sessions: make([]authsdk.SessionInfo, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionInfo(s, p.SessionID))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleRevokeAll handles DELETE /v1/users/{userID}/sessions
//
//	@Summary		Revoke all user sessions
//	@Description	Destroys every session of a user, including the caller's own when revoking self.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			userID	path		string	true	"User id"
//	@Success		200		{object}	authsdk.CountResponse
//	@Failure		401		{object}	authsdk.APIError	"invalid_token"
//	@Failure		403		{object}	authsdk.APIError	"insufficient_scope"
//	@Router			/v1/users/{userID}/sessions [delete].
func (h *UsersHandler) HandleRevokeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := httpx.PrincipalFromCtx(ctx)
	userID := r.PathValue("userID")

	reason := domain.ReasonUserRevoked
	if p.UserID != userID {
		reason = domain.ReasonAdmin
	}

	n, err := h.Authority.RevokeUserSessions(ctx, userID, reason)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.CountResponse{Count: n})
}
