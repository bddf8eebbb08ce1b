package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessiond/pkg/slogx"
	"github.com/aussiebroadwan/sessiond/pkg/totpx"
)

const maxBackupCodes = 32

var ErrInvalidBackupCodeCount = errors.New("backup code count out of range")

// MFAService checks one-time codes against the service-wide TOTP secret.
type MFAService struct {
	Secret []byte
	Issuer string // shown by authenticator apps
	Now    func() time.Time
}

func (s *MFAService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// VerifyTOTP reports whether code is valid for the current step or the ones
// either side of it. It never errors; a missing secret simply fails.
func (s *MFAService) VerifyTOTP(ctx context.Context, code string) bool {
	ok := totpx.VerifyCode(s.Secret, strings.TrimSpace(code), s.now())
	if !ok {
		slogx.FromContext(ctx).Debug("totp verification failed")
	}
	return ok
}

// EnrollmentURL returns the otpauth:// URL for account.
func (s *MFAService) EnrollmentURL(account string) (string, error) {
	return totpx.EnrollmentURL(s.Issuer, account, s.Secret)
}

// GenerateBackupCodes returns count fresh codes, or the default batch size
// when count is zero.
func (s *MFAService) GenerateBackupCodes(count int) ([]string, error) {
	if count == 0 {
		count = totpx.DefaultBackupCode
	}
	if count < 0 || count > maxBackupCodes {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBackupCodeCount, count)
	}
	return totpx.GenerateBackupCodes(count)
}

// VerifyBackupCode checks the format of a backup code only. Matching against
// issued codes is the caller's job.
func (s *MFAService) VerifyBackupCode(code string) bool {
	return totpx.VerifyBackupCode(strings.TrimSpace(code))
}
