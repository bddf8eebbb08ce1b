package tokenx_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/aussiebroadwan/sessiond/pkg/tokenx"
	"github.com/stretchr/testify/require"
)

type payload struct {
	SessionID string   `json:"sessionId"`
	UserID    string   `json:"userId"`
	Roles     []string `json:"roles"`
	Exp       int64    `json:"exp"`
	Iat       int64    `json:"iat"`
}

var secret = []byte("super-secret-signing-key")

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	in := payload{SessionID: "123456789", UserID: "u1", Roles: []string{"admin", "user"}, Exp: 1700000900, Iat: 1700000000}

	tok, err := tokenx.GenerateToken(secret, in)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(tok, "."))

	var out payload
	require.NoError(t, tokenx.VerifyToken(secret, tok, &out))
	require.Equal(t, in, out)
}

func TestRoundTripArbitraryJSON(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"nested":  map[string]any{"a": []any{1.0, "two", true, nil}},
		"unicode": "héllo ✓",
	}

	tok, err := tokenx.GenerateToken(secret, in)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, tokenx.VerifyToken(secret, tok, &out))
	require.Equal(t, in, out)
}

func TestSignatureMatchesWireFormat(t *testing.T) {
	t.Parallel()

	tok, err := tokenx.GenerateToken(secret, map[string]string{"k": "v"})
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(parts[0]))
	require.Equal(t, base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), parts[1])

	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	require.JSONEq(t, `{"k":"v"}`, string(raw))
}

func TestEmptySecret(t *testing.T) {
	t.Parallel()

	_, err := tokenx.GenerateToken(nil, payload{})
	require.ErrorIs(t, err, tokenx.ErrSecretNotConfigured)

	require.ErrorIs(t, tokenx.VerifyToken(nil, "a.b", &payload{}), tokenx.ErrSecretNotConfigured)
	require.False(t, tokenx.NewCodec(nil).Configured())
}

func TestInvalidFormat(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"", "nodot", "a.b.c", "..", "a.b.c.d"} {
		var out payload
		require.ErrorIs(t, tokenx.VerifyToken(secret, tok, &out), tokenx.ErrInvalidFormat, "token %q", tok)
	}
}

func TestFlippingAnySignatureCharacterFails(t *testing.T) {
	t.Parallel()

	tok, err := tokenx.GenerateToken(secret, payload{UserID: "u1", Exp: 1})
	require.NoError(t, err)

	dot := strings.IndexByte(tok, '.')
	for i := dot + 1; i < len(tok); i++ {
		b := []byte(tok)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}

		var out payload
		require.ErrorIs(t, tokenx.VerifyToken(secret, string(b), &out), tokenx.ErrInvalidSignature, "flip at %d", i)
	}
}

func TestTamperedPayloadFails(t *testing.T) {
	t.Parallel()

	tok, err := tokenx.GenerateToken(secret, payload{UserID: "u1"})
	require.NoError(t, err)

	forged, err := tokenx.GenerateToken(secret, payload{UserID: "admin"})
	require.NoError(t, err)

	// Splice the forged payload onto the original signature.
	spliced := strings.Split(forged, ".")[0] + "." + strings.Split(tok, ".")[1]

	var out payload
	require.ErrorIs(t, tokenx.VerifyToken(secret, spliced, &out), tokenx.ErrInvalidSignature)
}

func TestWrongSecretFails(t *testing.T) {
	t.Parallel()

	tok, err := tokenx.GenerateToken(secret, payload{UserID: "u1"})
	require.NoError(t, err)

	var out payload
	require.ErrorIs(t, tokenx.VerifyToken([]byte("other"), tok, &out), tokenx.ErrInvalidSignature)
}

func TestCorruptPayloadWithValidSignature(t *testing.T) {
	t.Parallel()

	segment := base64.RawURLEncoding.EncodeToString([]byte("{not json"))
	sig, err := tokenx.Sign(secret, segment)
	require.NoError(t, err)

	var out payload
	require.ErrorIs(t, tokenx.VerifyToken(secret, segment+"."+sig, &out), tokenx.ErrPayloadCorrupt)

	// Signed garbage that isn't even base64url.
	bad := "!!!"
	sig, err = tokenx.Sign(secret, bad)
	require.NoError(t, err)
	require.ErrorIs(t, tokenx.VerifyToken(secret, bad+"."+sig, &out), tokenx.ErrPayloadCorrupt)
}

func TestCodec(t *testing.T) {
	t.Parallel()

	c := tokenx.NewCodec(secret)
	require.True(t, c.Configured())

	tok, err := c.Encode(payload{UserID: "u2"})
	require.NoError(t, err)

	var out payload
	require.NoError(t, c.Decode(tok, &out))
	require.Equal(t, "u2", out.UserID)
}
