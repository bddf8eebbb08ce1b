package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/session/device"
	"github.com/aussiebroadwan/sessiond/internal/session/domain"
	"github.com/aussiebroadwan/sessiond/internal/session/store"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
	"github.com/aussiebroadwan/sessiond/pkg/snowflake"
	"github.com/aussiebroadwan/sessiond/pkg/tokenx"
)

const (
	DefaultAccessTokenExpiry  = 15 * time.Minute
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour
	DefaultRememberMeExpiry   = 30 * 24 * time.Hour
	DefaultIdleTimeout        = 30 * 24 * time.Hour
	DefaultMaxSessionsPerUser = 5
)

// Config holds the session lifetime policy.
type Config struct {
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	RememberMeExpiry   time.Duration
	IdleTimeout        time.Duration

	// MaxSessionsPerUser caps concurrent sessions; the least recently active
	// are evicted first. Zero disables the cap.
	MaxSessionsPerUser int

	// RotateRefreshSessions revokes the old session on refresh, making each
	// refresh token single-use.
	RotateRefreshSessions bool
}

// DefaultConfig returns the stock policy.
func DefaultConfig() Config {
	return Config{
		AccessTokenExpiry:     DefaultAccessTokenExpiry,
		RefreshTokenExpiry:    DefaultRefreshTokenExpiry,
		RememberMeExpiry:      DefaultRememberMeExpiry,
		IdleTimeout:           DefaultIdleTimeout,
		MaxSessionsPerUser:    DefaultMaxSessionsPerUser,
		RotateRefreshSessions: true,
	}
}

// IDGenerator mints session ids. *snowflake.Generator satisfies it.
type IDGenerator interface {
	Generate() (snowflake.ID, error)
}

// Locator resolves an IP to a location and never fails. *geoip.Resolver
// satisfies it.
type Locator interface {
	Lookup(ctx context.Context, ip string) domain.IPGeolocation
}

// Recorder receives session counters. *metrics.Metrics satisfies it.
type Recorder interface {
	SessionCreated()
	SessionsRevoked(reason string, n int)
	SetActiveSessions(n int)
	Validation(result string)
	Refresh(result string)
}

// Authority owns the session table. It creates, validates, refreshes, revokes
// and sweeps sessions.
type Authority struct {
	Store  store.Sessions
	IDs    IDGenerator
	Tokens *tokenx.Codec
	Config Config

	Geo     Locator  // optional; sessions carry no location without it
	Metrics Recorder // optional
	Logger  *slog.Logger
	Now     func() time.Time
}

func (a *Authority) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Authority) log(ctx context.Context) *slog.Logger {
	return slogx.FromContextOr(ctx, a.Logger)
}

func (a *Authority) accessExpiry(rememberMe bool) time.Duration {
	if rememberMe {
		return a.Config.RememberMeExpiry
	}
	return a.Config.AccessTokenExpiry
}

// CreateSession enriches the request with device and location data, stores a
// new session and issues its token pair.
func (a *Authority) CreateSession(ctx context.Context, req domain.LoginRequest) (domain.TokenPair, error) {
	info := device.Describe(req.UserAgent, req.IP)
	if a.Geo != nil && req.IP != "" {
		loc := a.Geo.Lookup(ctx, req.IP)
		info.Location = &loc
	}

	return a.createSession(ctx, domain.Session{
		UserID:       req.UserID,
		Roles:        req.Roles,
		Permissions:  req.Permissions,
		DeviceInfo:   info,
		IsRememberMe: req.IsRememberMe,
	})
}

func (a *Authority) createSession(ctx context.Context, sess domain.Session) (domain.TokenPair, error) {
	stored, pair, err := a.storeSession(ctx, sess)
	if err != nil {
		return domain.TokenPair{}, err
	}
	a.applySessionLimit(ctx, stored)
	return pair, nil
}

// storeSession mints an id and tokens for sess and persists it. The per-user
// cap is not applied.
func (a *Authority) storeSession(ctx context.Context, sess domain.Session) (domain.Session, domain.TokenPair, error) {
	if a.Tokens == nil || !a.Tokens.Configured() {
		return domain.Session{}, domain.TokenPair{}, domain.ErrTokenSecretNotConfigured
	}

	id, err := a.IDs.Generate()
	if err != nil {
		return domain.Session{}, domain.TokenPair{}, IDError(err)
	}

	now := a.now()
	sess.ID = id.String()
	sess.CreatedAt = now
	sess.LastActivity = now

	pair, err := a.issue(sess, now)
	if err != nil {
		return domain.Session{}, domain.TokenPair{}, err
	}

	if err := a.Store.Set(ctx, sess); err != nil {
		return domain.Session{}, domain.TokenPair{}, fmt.Errorf("store session: %w", err)
	}

	a.recordCreated()
	a.log(ctx).Info("session created",
		"session_id", sess.ID,
		"user_id", sess.UserID,
		"device_type", sess.DeviceInfo.DeviceType,
		"remember_me", sess.IsRememberMe,
	)
	return sess, pair, nil
}

func (a *Authority) applySessionLimit(ctx context.Context, keep domain.Session) {
	if err := a.enforceSessionLimit(ctx, keep); err != nil {
		a.log(ctx).Error("failed to enforce session limit", "user_id", keep.UserID, "error", err)
	}
}

func (a *Authority) issue(sess domain.Session, now time.Time) (domain.TokenPair, error) {
	expiresIn := a.accessExpiry(sess.IsRememberMe)

	data := domain.TokenData{
		SessionID:    sess.ID,
		UserID:       sess.UserID,
		Roles:        sess.Roles,
		Permissions:  sess.Permissions,
		DeviceInfo:   sess.DeviceInfo,
		IsRememberMe: sess.IsRememberMe,
		Iat:          now.Unix(),
	}

	access := data
	access.Type = domain.TokenAccess
	access.Exp = now.Add(expiresIn).Unix()
	accessToken, err := a.Tokens.Encode(access)
	if err != nil {
		return domain.TokenPair{}, codecError(err)
	}

	refresh := data
	refresh.Type = domain.TokenRefresh
	refresh.Exp = now.Add(a.Config.RefreshTokenExpiry).Unix()
	refreshToken, err := a.Tokens.Encode(refresh)
	if err != nil {
		return domain.TokenPair{}, codecError(err)
	}

	return domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(expiresIn / time.Second),
		SessionID:    sess.ID,
	}, nil
}

func (a *Authority) enforceSessionLimit(ctx context.Context, keep domain.Session) error {
	limit := a.Config.MaxSessionsPerUser
	if limit <= 0 {
		return nil
	}

	sessions, err := a.Store.ListByUser(ctx, keep.UserID)
	if err != nil {
		return err
	}
	if len(sessions) <= limit {
		return nil
	}

	// Newest first; everything past the limit goes, except the session just created.
	excess := len(sessions) - limit
	for i := len(sessions) - 1; i >= 0 && excess > 0; i-- {
		if sessions[i].ID == keep.ID {
			continue
		}
		if err := a.revoke(ctx, sessions[i].ID, sessions[i].UserID, domain.ReasonSessionLimit); err != nil {
			return err
		}
		excess--
	}
	return nil
}

// ValidateAccessToken verifies token and returns its payload. The session
// must still exist; its last activity is bumped on success.
func (a *Authority) ValidateAccessToken(ctx context.Context, token string) (domain.TokenData, error) {
	data, err := a.validate(ctx, token)
	a.recordResult(a.metricsValidation, err)
	return data, err
}

func (a *Authority) validate(ctx context.Context, token string) (domain.TokenData, error) {
	data, err := a.decode(token, domain.TokenAccess)
	if err != nil {
		return domain.TokenData{}, err
	}

	now := a.now()
	if data.ExpiredAt(now) {
		return domain.TokenData{}, domain.NewError(domain.CodeTokenExpired,
			fmt.Errorf("expired at %s", time.Unix(data.Exp, 0).UTC().Format(time.RFC3339)))
	}

	if _, err := a.lookup(ctx, data); err != nil {
		return domain.TokenData{}, err
	}

	if err := a.Store.Touch(ctx, data.SessionID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenData{}, domain.NewError(domain.CodeSessionNotFound, err)
		}
		a.log(ctx).Warn("failed to record session activity", "session_id", data.SessionID, "error", err)
	}

	return data, nil
}

// RefreshAccessToken exchanges a refresh token for a new pair bound to a new
// session id. With RotateRefreshSessions the old session is revoked, so the
// same refresh token cannot be used twice.
func (a *Authority) RefreshAccessToken(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	pair, err := a.refresh(ctx, refreshToken)
	a.recordResult(a.metricsRefresh, err)
	return pair, err
}

func (a *Authority) refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	data, err := a.decode(refreshToken, domain.TokenRefresh)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if data.ExpiredAt(a.now()) {
		return domain.TokenPair{}, domain.NewError(domain.CodeRefreshTokenExpired,
			fmt.Errorf("expired at %s", time.Unix(data.Exp, 0).UTC().Format(time.RFC3339)))
	}

	sess, err := a.lookup(ctx, data)
	if err != nil {
		return domain.TokenPair{}, err
	}

	next, pair, err := a.storeSession(ctx, domain.Session{
		UserID:       sess.UserID,
		Roles:        sess.Roles,
		Permissions:  sess.Permissions,
		DeviceInfo:   sess.DeviceInfo,
		IsRememberMe: sess.IsRememberMe,
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	// The old session is only removed once its replacement is stored.
	if a.Config.RotateRefreshSessions {
		if err := a.retire(ctx, sess, next); err != nil {
			return domain.TokenPair{}, err
		}
	}

	a.applySessionLimit(ctx, next)
	return pair, nil
}

// retire deletes the session a refresh token belonged to. If it is already
// gone a concurrent refresh won, and the replacement is discarded.
func (a *Authority) retire(ctx context.Context, old, next domain.Session) error {
	existed, err := a.Store.Delete(ctx, old.ID)
	switch {
	case err != nil:
		err = fmt.Errorf("rotate session: %w", err)
	case !existed:
		err = domain.NewError(domain.CodeSessionNotFound, errors.New("refresh token already used"))
	}

	if err != nil {
		if _, derr := a.Store.Delete(ctx, next.ID); derr != nil {
			a.log(ctx).Error("failed to discard replacement session",
				"session_id", next.ID, "user_id", next.UserID, "error", derr)
		}
		return err
	}

	a.recordRevoked(ctx, old.ID, old.UserID, domain.ReasonRotated, 1)
	return nil
}

// decode verifies the token and checks it is of the wanted type. Tokens
// without a type are accepted as either.
func (a *Authority) decode(token string, want domain.TokenType) (domain.TokenData, error) {
	if a.Tokens == nil || !a.Tokens.Configured() {
		return domain.TokenData{}, domain.ErrTokenSecretNotConfigured
	}

	var data domain.TokenData
	if err := a.Tokens.Decode(token, &data); err != nil {
		return domain.TokenData{}, codecError(err)
	}

	if data.Type != "" && data.Type != want {
		return domain.TokenData{}, domain.NewError(domain.CodeInvalidToken,
			fmt.Errorf("%s token presented as %s token", data.Type, want))
	}
	if data.SessionID == "" {
		return domain.TokenData{}, domain.NewError(domain.CodeInvalidToken, errors.New("missing session id"))
	}
	return data, nil
}

func (a *Authority) lookup(ctx context.Context, data domain.TokenData) (domain.Session, error) {
	sess, err := a.Store.Get(ctx, data.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Session{}, domain.NewError(domain.CodeSessionNotFound, err)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != data.UserID {
		return domain.Session{}, domain.NewError(domain.CodeInvalidToken, errors.New("session belongs to another user"))
	}
	return sess, nil
}

// GetSession returns the stored session with id.
func (a *Authority) GetSession(ctx context.Context, id string) (domain.Session, error) {
	sess, err := a.Store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Session{}, domain.NewError(domain.CodeSessionNotFound, err)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// ListUserSessions returns a user's sessions, most recently active first.
func (a *Authority) ListUserSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	sessions, err := a.Store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// RevokeSession deletes the session. Revoking an unknown id is not an error.
func (a *Authority) RevokeSession(ctx context.Context, id string, reason domain.RevocationReason) error {
	sess, err := a.Store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	return a.revoke(ctx, id, sess.UserID, reason)
}

func (a *Authority) revoke(ctx context.Context, id, userID string, reason domain.RevocationReason) error {
	existed, err := a.Store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if existed {
		a.recordRevoked(ctx, id, userID, reason, 1)
	}
	return nil
}

// RevokeUserSessions deletes every session of userID and returns how many
// there were.
func (a *Authority) RevokeUserSessions(ctx context.Context, userID string, reason domain.RevocationReason) (int, error) {
	removed, err := a.Store.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}

	if a.Metrics != nil {
		a.Metrics.SessionsRevoked(string(reason), len(removed))
	}
	a.log(ctx).Info("user sessions revoked", "user_id", userID, "reason", reason, "count", len(removed))
	return len(removed), nil
}

// CleanupSessions deletes sessions idle for longer than IdleTimeout and
// returns how many were removed. Nothing schedules it here; see
// HousekeepingService.
func (a *Authority) CleanupSessions(ctx context.Context) (int, error) {
	cutoff := a.now().Add(-a.Config.IdleTimeout)

	removed, err := a.Store.DeleteIdle(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete idle sessions: %w", err)
	}

	for _, sess := range removed {
		a.log(ctx).Debug("session expired", "session_id", sess.ID, "user_id", sess.UserID,
			"last_activity", sess.LastActivity)
	}

	if a.Metrics != nil {
		a.Metrics.SessionsRevoked(string(domain.ReasonIdle), len(removed))
		if n, err := a.Store.Count(ctx); err == nil {
			a.Metrics.SetActiveSessions(n)
		}
	}
	return len(removed), nil
}

func (a *Authority) recordCreated() {
	if a.Metrics != nil {
		a.Metrics.SessionCreated()
	}
}

func (a *Authority) recordRevoked(ctx context.Context, id, userID string, reason domain.RevocationReason, n int) {
	if a.Metrics != nil {
		a.Metrics.SessionsRevoked(string(reason), n)
	}
	a.log(ctx).Info("session revoked", "session_id", id, "user_id", userID, "reason", reason)
}

func (a *Authority) metricsValidation(result string) { a.Metrics.Validation(result) }
func (a *Authority) metricsRefresh(result string)    { a.Metrics.Refresh(result) }

func (a *Authority) recordResult(record func(string), err error) {
	if a.Metrics == nil {
		return
	}
	switch {
	case err == nil:
		record("ok")
	case domain.CodeOf(err) != "":
		record(string(domain.CodeOf(err)))
	default:
		record("error")
	}
}

// codecError maps tokenx failures onto the domain taxonomy. Format, signature
// and payload problems surface as invalid_token with the precise code wrapped
// inside, so errors.Is matches either.
func codecError(err error) error {
	var code domain.ErrorCode
	switch {
	case errors.Is(err, tokenx.ErrSecretNotConfigured):
		return domain.NewError(domain.CodeTokenSecretNotConfigured, err)
	case errors.Is(err, tokenx.ErrInvalidFormat):
		code = domain.CodeInvalidTokenFormat
	case errors.Is(err, tokenx.ErrInvalidSignature):
		code = domain.CodeInvalidTokenSignature
	case errors.Is(err, tokenx.ErrPayloadCorrupt):
		code = domain.CodeTokenPayloadCorrupt
	default:
		return domain.NewError(domain.CodeInvalidToken, err)
	}
	return domain.NewError(domain.CodeInvalidToken, domain.NewError(code, err))
}

// IDError tags a snowflake failure with its error code.
func IDError(err error) error {
	switch {
	case errors.Is(err, snowflake.ErrClockRegression):
		return domain.NewError(domain.CodeClockRegression, err)
	case errors.Is(err, snowflake.ErrWorkerIDOutOfRange):
		return domain.NewError(domain.CodeWorkerIDOutOfRange, err)
	default:
		return fmt.Errorf("generate id: %w", err)
	}
}
