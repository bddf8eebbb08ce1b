package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a sessiond instance. Calls that need a session's access
// token go through a Session instead.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// UserAgent is sent on every request. When empty, net/http's default
	// applies.
	UserAgent string

	// ServiceKey is sent as X-Service-Key. Backends creating sessions with
	// roles need it.
	ServiceKey string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.UserAgent = ua }
}

// WithServiceKey sets the shared secret that identifies a trusted backend.
func WithServiceKey(key string) Option {
	return func(c *Client) { c.ServiceKey = key }
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateSession logs a user in and returns the raw token pair.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", "", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login creates a session and wraps the token pair in an auto-refreshing
// Session.
func (c *Client) Login(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	tokens, err := c.CreateSession(ctx, req)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens), nil
}

// Validate verifies an access token and returns its payload. The session's
// last activity is updated as a side effect.
func (c *Client) Validate(ctx context.Context, accessToken string) (*TokenInfo, error) {
	var out TokenInfo
	err := c.do(ctx, http.MethodPost, "/v1/sessions/validate", "",
		ValidateRequest{Token: accessToken}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh trades a refresh token for a new pair. With rotation enabled on the
// server the old refresh token stops working.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/v1/sessions/refresh", "",
		RefreshRequest{RefreshToken: refreshToken}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ResumeSession refreshes an existing refresh token and returns a Session
// holding the new pair.
func (c *Client) ResumeSession(ctx context.Context, refreshToken string) (*Session, error) {
	tokens, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens), nil
}

// NewSessionFromTokens wraps tokens obtained elsewhere. The session still
// refreshes itself when the access token nears expiry.
func (c *Client) NewSessionFromTokens(accessToken, refreshToken, sessionID string, expiresIn int64) *Session {
	return newSession(c, &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
		SessionID:    sessionID,
	})
}

// VerifyTOTP checks a six digit code against the server's TOTP secret.
func (c *Client) VerifyTOTP(ctx context.Context, code string) (bool, error) {
	var out VerifyResponse
	err := c.do(ctx, http.MethodPost, "/v1/mfa/totp/verify", "",
		TOTPVerifyRequest{Code: code}, &out, http.StatusOK)
	if err != nil {
		return false, err
	}
	return out.Valid, nil
}

// GenerateBackupCodes asks for count fresh backup codes. Zero uses the
// server default.
func (c *Client) GenerateBackupCodes(ctx context.Context, count int) ([]string, error) {
	var out BackupCodesResponse
	err := c.do(ctx, http.MethodPost, "/v1/mfa/backup-codes", "",
		BackupCodesRequest{Count: count}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return out.Codes, nil
}

// VerifyBackupCode checks the format of a backup code.
func (c *Client) VerifyBackupCode(ctx context.Context, code string) (bool, error) {
	var out VerifyResponse
	err := c.do(ctx, http.MethodPost, "/v1/mfa/backup-codes/verify", "",
		BackupCodeVerifyRequest{Code: code}, &out, http.StatusOK)
	if err != nil {
		return false, err
	}
	return out.Valid, nil
}

// NewID mints a snowflake id.
func (c *Client) NewID(ctx context.Context) (*IDResponse, error) {
	var out IDResponse
	if err := c.do(ctx, http.MethodGet, "/v1/ids", "", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecodeID splits a snowflake id into its parts.
func (c *Client) DecodeID(ctx context.Context, id string) (*IDResponse, error) {
	var out IDResponse
	err := c.do(ctx, http.MethodGet, "/v1/ids/"+url.PathEscape(id), "", nil, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
