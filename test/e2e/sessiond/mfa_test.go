//go:build e2e

package sessiond_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiond/pkg/totpx"
)

func TestTOTP(t *testing.T) {
	client := setupContainer(t, nil)
	ctx := context.Background()

	code, err := totpx.GenerateCode(totpSecret, time.Now())
	require.NoError(t, err)

	ok, err := client.VerifyTOTP(ctx, code)
	require.NoError(t, err)
	require.True(t, ok)

	previous, err := totpx.GenerateCode(totpSecret, time.Now().Add(-totpx.Period*time.Second))
	require.NoError(t, err)
	ok, err = client.VerifyTOTP(ctx, previous)
	require.NoError(t, err)
	require.True(t, ok, "one step of drift is tolerated")

	stale, err := totpx.GenerateCode(totpSecret, time.Now().Add(-5*time.Minute))
	require.NoError(t, err)
	ok, err = client.VerifyTOTP(ctx, stale)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBackupCodes(t *testing.T) {
	client := setupContainer(t, nil)
	ctx := context.Background()

	codes, err := client.GenerateBackupCodes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, codes, 10)

	for _, c := range codes {
		ok, err := client.VerifyBackupCode(ctx, c)
		require.NoError(t, err)
		require.True(t, ok, c)
	}
}
