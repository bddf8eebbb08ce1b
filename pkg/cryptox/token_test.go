package cryptox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"128-bit token", TokenSize128},
		{"256-bit token", TokenSize256},
		{"custom size", 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			// Verify token is unique (generate another and compare)
			token2, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEqual(t, token, token2, "tokens should be unique")
		})
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestFingerprintToken(t *testing.T) {
	fp1a := FingerprintToken("test-token-1")
	fp1b := FingerprintToken("test-token-1")
	fp2 := FingerprintToken("test-token-2")

	require.Equal(t, fp1a, fp1b, "fingerprint should be deterministic")
	require.NotEqual(t, fp1a, fp2)
	require.Len(t, fp1a, 12)
}

func TestResolveSecret(t *testing.T) {
	t.Run("inline value wins", func(t *testing.T) {
		s, err := ResolveSecret("  inline  ", "/does/not/exist", TokenSize256)
		require.NoError(t, err)
		require.Equal(t, []byte("inline"), s.Bytes)
		require.Equal(t, SecretFromValue, s.Source)
		require.False(t, s.Ephemeral())
	})

	t.Run("file is read and trimmed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "secret")
		require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

		s, err := ResolveSecret("", path, TokenSize256)
		require.NoError(t, err)
		require.Equal(t, []byte("from-file"), s.Bytes)
		require.Equal(t, SecretFromFile, s.Source)
	})

	t.Run("missing or empty file is an error", func(t *testing.T) {
		_, err := ResolveSecret("", filepath.Join(t.TempDir(), "missing"), TokenSize256)
		require.Error(t, err)

		path := filepath.Join(t.TempDir(), "empty")
		require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))
		_, err = ResolveSecret("", path, TokenSize256)
		require.Error(t, err)
	})

	t.Run("falls back to generated", func(t *testing.T) {
		s, err := ResolveSecret("", "", TokenSize256)
		require.NoError(t, err)
		require.Len(t, s.Bytes, TokenSize256)
		require.True(t, s.Ephemeral())
	})
}
