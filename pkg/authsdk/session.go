package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// refreshBuffer is how long before expiry a Session refreshes its token.
const refreshBuffer = 30 * time.Second

// ErrSessionClosed is returned by a Session after Logout.
var ErrSessionClosed = errors.New("authsdk: session closed")

// Session holds a token pair and refreshes it transparently. It is safe for
// concurrent use.
type Session struct {
	client *Client

	mu           sync.RWMutex
	sessionID    string
	userID       string
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	closed       bool
}

// newSession creates a new authenticated session from a token response.
func newSession(client *Client, tokens *TokenResponse) *Session {
	s := &Session{client: client}
	s.store(tokens)
	return s
}

// store must be called with mu held for writing, or before s is shared.
func (s *Session) store(tokens *TokenResponse) {
	s.sessionID = tokens.SessionID
	s.accessToken = tokens.AccessToken
	s.refreshToken = tokens.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - refreshBuffer)
}

// ID returns the server-side session id.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token. With rotation enabled it
// changes after every refresh.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Token returns a valid access token, refreshing first if it is about to
// expire.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return "", ErrSessionClosed
	}
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if s.closed {
		return "", ErrSessionClosed
	}
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		return "", fmt.Errorf("access token expired and no refresh token available")
	}

	tokens, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	s.store(tokens)
	return s.accessToken, nil
}

// Refresh forces a token refresh regardless of expiry.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	tokens, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return err
	}
	s.store(tokens)
	return nil
}

// do performs an authenticated request. A token_expired reply triggers one
// refresh and retry.
func (s *Session) do(ctx context.Context, method, path string, in, out any, want int) error {
	token, err := s.Token(ctx)
	if err != nil {
		return err
	}
	err = s.client.do(ctx, method, path, token, in, out, want)
	if !errors.Is(err, ErrTokenExpired) {
		return err
	}

	if err := s.Refresh(ctx); err != nil {
		return err
	}
	return s.client.do(ctx, method, path, s.AccessToken(), in, out, want)
}

// Info validates the current access token and returns its payload.
func (s *Session) Info(ctx context.Context) (*TokenInfo, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	info, err := s.client.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.userID = info.UserID
	s.mu.Unlock()
	return info, nil
}

// UserID returns the id of the session's user, asking the server the first
// time.
func (s *Session) UserID(ctx context.Context) (string, error) {
	s.mu.RLock()
	id := s.userID
	s.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	info, err := s.Info(ctx)
	if err != nil {
		return "", err
	}
	return info.UserID, nil
}

// GetSession fetches a session record. Non-admin callers may only read their
// own sessions.
func (s *Session) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	var out SessionInfo
	err := s.do(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(sessionID), nil, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeSession destroys a session. Revoking an unknown id succeeds.
func (s *Session) RevokeSession(ctx context.Context, sessionID, reason string) error {
	path := "/v1/sessions/" + url.PathEscape(sessionID)
	if reason != "" {
		path += "?reason=" + url.QueryEscape(reason)
	}
	return s.do(ctx, http.MethodDelete, path, nil, nil, http.StatusNoContent)
}

// ListUserSessions lists a user's sessions, newest first.
func (s *Session) ListUserSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	var out SessionListResponse
	err := s.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(userID)+"/sessions", nil, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// RevokeUserSessions destroys every session of userID and reports how many
// were removed.
func (s *Session) RevokeUserSessions(ctx context.Context, userID string) (int, error) {
	var out CountResponse
	err := s.do(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(userID)+"/sessions", nil, &out, http.StatusOK)
	if err != nil {
		return 0, err
	}
	return out.Count, nil
}

// ListMySessions lists the sessions of the user this session belongs to.
func (s *Session) ListMySessions(ctx context.Context) ([]SessionInfo, error) {
	userID, err := s.UserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.ListUserSessions(ctx, userID)
}

// Cleanup runs the idle sweep on the server. Requires the admin role.
func (s *Session) Cleanup(ctx context.Context) (int, error) {
	var out CountResponse
	if err := s.do(ctx, http.MethodPost, "/v1/sessions/cleanup", nil, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// TOTPEnrollment returns the otpauth:// URL for account. Requires the admin
// role.
func (s *Session) TOTPEnrollment(ctx context.Context, account string) (*EnrollmentResponse, error) {
	var out EnrollmentResponse
	path := "/v1/mfa/totp/enrollment?account=" + url.QueryEscape(account)
	if err := s.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes this session and closes it. Later calls fail with
// ErrSessionClosed.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.RevokeSession(ctx, s.ID(), "logout"); err != nil {
		return err
	}

	s.mu.Lock()
	s.closed = true
	s.accessToken = ""
	s.refreshToken = ""
	s.mu.Unlock()
	return nil
}
