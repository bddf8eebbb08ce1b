package totpx

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	Period            = 30 // seconds per time step
	Skew              = 1  // steps accepted either side of now
	DefaultBackupCode = 8  // number of backup codes per batch
	SecretSize        = 20 // bytes, the RFC 4226 recommended 160 bits
	backupCodeBytes   = 4  // 8 hex characters
)

var (
	ErrEmptySecret   = errors.New("totpx: empty secret")
	ErrInvalidSecret = errors.New("totpx: secret is not valid base64")
)

var backupCodePattern = regexp.MustCompile(`^[0-9A-F]{8}$`)

var validateOpts = totp.ValidateOpts{
	Period:    Period,
	Skew:      Skew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// encodeSecret renders raw secret bytes the way the otp package expects them.
func encodeSecret(secret []byte) string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret)
}

// GenerateCode returns the 6 digit code for the 30 second step containing t
// (RFC 6238 over RFC 4226 HOTP with HMAC-SHA1).
func GenerateCode(secret []byte, t time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	code, err := totp.GenerateCodeCustom(encodeSecret(secret), t, validateOpts)
	if err != nil {
		return "", fmt.Errorf("totpx: generate code: %w", err)
	}
	return code, nil
}

// VerifyCode reports whether code matches the step at now or one step either
// side. It fails closed: malformed input yields false, never an error.
func VerifyCode(secret []byte, code string, now time.Time) bool {
	if len(secret) == 0 {
		return false
	}
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), encodeSecret(secret), now, validateOpts)
	return err == nil && ok
}

// GenerateBackupCodes returns count random 8 character uppercase hex codes.
// A count <= 0 means DefaultBackupCode.
func GenerateBackupCodes(count int) ([]string, error) {
	if count <= 0 {
		count = DefaultBackupCode
	}

	codes := make([]string, count)
	buf := make([]byte, backupCodeBytes)
	for i := range codes {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("totpx: generate backup code: %w", err)
		}
		codes[i] = strings.ToUpper(hex.EncodeToString(buf))
	}
	return codes, nil
}

// VerifyBackupCode only checks the shape of a backup code. There is no
// registry of issued or consumed codes behind it.
func VerifyBackupCode(code string) bool {
	return backupCodePattern.MatchString(code)
}

// NewSecret returns SecretSize random bytes.
func NewSecret() ([]byte, error) {
	b := make([]byte, SecretSize)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("totpx: generate secret: %w", err)
	}
	return b, nil
}

// DecodeSecret decodes a base64 secret as supplied through configuration.
// Both standard and URL alphabets, padded or not, are accepted.
func DecodeSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptySecret
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil && len(b) > 0 {
			return b, nil
		}
	}
	return nil, ErrInvalidSecret
}

// EnrollmentURL returns the otpauth:// URL authenticator apps scan to import
// secret.
func EnrollmentURL(issuer, account string, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      Period,
		Secret:      secret,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("totpx: enrollment url: %w", err)
	}
	return key.URL(), nil
}
