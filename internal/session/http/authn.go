package http

import (
	"context"

	"github.com/aussiebroadwan/sessiond/internal/session/service"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
)

// Authenticator validates bearer tokens against the session authority, so a
// revoked session stops authenticating immediately.
type Authenticator struct {
	Authority *service.Authority
}

func (a Authenticator) Authenticate(ctx context.Context, token string) (httpx.Principal, error) {
	data, err := a.Authority.ValidateAccessToken(ctx, token)
	if err != nil {
		return httpx.Principal{}, err
	}
	return httpx.Principal{
		UserID:      data.UserID,
		SessionID:   data.SessionID,
		Roles:       data.Roles,
		Permissions: data.Permissions,
	}, nil
}
