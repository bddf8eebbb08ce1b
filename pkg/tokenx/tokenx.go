// Package tokenx implements the compact signed token used for access and
// refresh tokens:
//
//	base64url(JSON(payload)) + "." + base64url(HMAC-SHA256(secret, base64url(JSON(payload))))
//
// Both segments use unpadded base64url. This is deliberately not a JWT: there
// is no header and no algorithm negotiation, the secret alone decides.
package tokenx

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const separator = "."

var (
	ErrSecretNotConfigured = errors.New("tokenx: token secret not configured")
	ErrInvalidFormat       = errors.New("tokenx: invalid token format")
	ErrInvalidSignature    = errors.New("tokenx: invalid token signature")
	ErrPayloadCorrupt      = errors.New("tokenx: token payload corrupt")
)

var segmentEncoding = base64.RawURLEncoding

// Sign returns the base64url HMAC-SHA256 of the payload segment.
func Sign(secret []byte, payloadSegment string) (string, error) {
	if len(secret) == 0 {
		return "", ErrSecretNotConfigured
	}
	sig, err := jwt.SigningMethodHS256.Sign(payloadSegment, secret)
	if err != nil {
		return "", fmt.Errorf("tokenx: sign: %w", err)
	}
	return segmentEncoding.EncodeToString(sig), nil
}

// GenerateToken serialises data to JSON and returns the signed token.
func GenerateToken(secret []byte, data any) (string, error) {
	if len(secret) == 0 {
		return "", ErrSecretNotConfigured
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("tokenx: marshal payload: %w", err)
	}

	payload := segmentEncoding.EncodeToString(raw)
	sig, err := Sign(secret, payload)
	if err != nil {
		return "", err
	}
	return payload + separator + sig, nil
}

// VerifyToken checks the signature of token and decodes its payload into out.
// Signatures are compared in constant time; the payload is only parsed after
// the signature matched.
func VerifyToken(secret []byte, token string, out any) error {
	if len(secret) == 0 {
		return ErrSecretNotConfigured
	}

	parts := strings.Split(token, separator)
	if len(parts) != 2 {
		return ErrInvalidFormat
	}
	payload, sig := parts[0], parts[1]

	expected, err := Sign(secret, payload)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) != 1 {
		return ErrInvalidSignature
	}

	raw, err := segmentEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPayloadCorrupt, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %w", ErrPayloadCorrupt, err)
	}
	return nil
}

// Codec binds a secret so callers don't pass it around.
type Codec struct {
	secret []byte
}

// NewCodec returns a codec for secret. An empty secret is accepted here and
// reported as ErrSecretNotConfigured on first use.
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: append([]byte(nil), secret...)}
}

// Configured reports whether the codec has a usable secret.
func (c *Codec) Configured() bool { return c != nil && len(c.secret) > 0 }

// Encode signs data.
func (c *Codec) Encode(data any) (string, error) {
	return GenerateToken(c.secret, data)
}

// Decode verifies token and unmarshals it into out.
func (c *Codec) Decode(token string, out any) error {
	return VerifyToken(c.secret, token, out)
}
