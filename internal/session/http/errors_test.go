package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiond/internal/session/domain"
)

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"cancelled", fmt.Errorf("store session: %w", context.Canceled), statusClientClosedRequest, ""},
		{"untagged", errors.New("disk full"), http.StatusInternalServerError, "server_error"},
		{"expired", domain.NewError(domain.CodeTokenExpired, nil), http.StatusUnauthorized, "token_expired"},
		{"clock", domain.NewError(domain.CodeClockRegression, nil), http.StatusServiceUnavailable, "clock_regression"},
		{"no secret", domain.ErrTokenSecretNotConfigured, http.StatusInternalServerError, "token_secret_not_configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(context.Background(), rec, tt.err)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode == "" {
				require.Empty(t, rec.Body.String())
				return
			}
			require.Contains(t, rec.Body.String(), `"error":"`+tt.wantCode+`"`)
		})
	}
}
