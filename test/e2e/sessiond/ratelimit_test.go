//go:build e2e

package sessiond_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
)

func TestRateLimit_Refresh(t *testing.T) {
	// Production defaults: 10 strict requests per minute per IP.
	client := setupContainer(t, map[string]string{
		"RATELIMIT_STRICT_REQUESTS":   "",
		"RATELIMIT_STRICT_WINDOW_SEC": "",
		"RATELIMIT_STRICT_BURST":      "",
	})
	ctx := context.Background()

	var limited bool
	for range 15 {
		_, err := client.Refresh(ctx, "garbage")
		var apiErr *authsdk.APIError
		require.True(t, errors.As(err, &apiErr))
		if apiErr.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
		require.Equal(t, authsdk.ErrorCodeInvalidToken, apiErr.Code)
	}
	require.True(t, limited)
}
