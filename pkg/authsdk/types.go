package authsdk

import "time"

// CreateSessionRequest is the body of POST /v1/sessions. UserAgent and IP
// default to the values seen on the HTTP request.
type CreateSessionRequest struct {
	UserID      string   `json:"user_id" validate:"required,max=128"`
	Roles       []string `json:"roles,omitempty" validate:"max=32,dive,required,max=64"`
	Permissions []string `json:"permissions,omitempty" validate:"max=128,dive,required,max=128"`
	RememberMe  bool     `json:"remember_me"`
	UserAgent   string   `json:"user_agent,omitempty" validate:"max=1024"`
	IP          string   `json:"ip,omitempty" validate:"omitempty,ip"`
}

// TokenResponse is returned by session creation and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	SessionID    string `json:"session_id"`
}

// ValidateRequest is the optional body of POST /v1/sessions/validate. When
// absent the bearer token is validated.
type ValidateRequest struct {
	Token string `json:"token" validate:"required"`
}

// RefreshRequest is the body of POST /v1/sessions/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Location is the geolocation attached to a session.
type Location struct {
	IP       string  `json:"ip"`
	Country  string  `json:"country"`
	City     string  `json:"city"`
	Timezone string  `json:"timezone"`
	Lat      float64 `json:"lat,omitempty"`
	Lon      float64 `json:"lon,omitempty"`
	ISP      string  `json:"isp,omitempty"`
	ASN      string  `json:"as,omitempty"`
}

// DeviceInfo describes the client a session was created from.
type DeviceInfo struct {
	UserAgent  string    `json:"userAgent"`
	IP         string    `json:"ip"`
	Location   *Location `json:"location,omitempty"`
	DeviceType string    `json:"deviceType"`
}

// TokenInfo is the verified payload of an access token.
type TokenInfo struct {
	SessionID    string     `json:"sessionId"`
	UserID       string     `json:"userId"`
	Roles        []string   `json:"roles"`
	Permissions  []string   `json:"permissions"`
	DeviceInfo   DeviceInfo `json:"deviceInfo"`
	IsRememberMe bool       `json:"isRememberMe"`
	Type         string     `json:"typ,omitempty"`
	Exp          int64      `json:"exp"`
	Iat          int64      `json:"iat"`
}

// ExpiresAt is Exp as a time.
func (t TokenInfo) ExpiresAt() time.Time { return time.Unix(t.Exp, 0) }

// SessionInfo is a stored session.
type SessionInfo struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Roles        []string   `json:"roles,omitempty"`
	Permissions  []string   `json:"permissions,omitempty"`
	DeviceInfo   DeviceInfo `json:"deviceInfo"`
	IsRememberMe bool       `json:"isRememberMe"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActivity time.Time  `json:"lastActivity"`
	Current      bool       `json:"current,omitempty"`
}

// SessionListResponse is returned by GET /v1/users/{userID}/sessions.
type SessionListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// CountResponse reports how many sessions an operation removed.
type CountResponse struct {
	Count int `json:"count"`
}

// TOTPVerifyRequest is the body of POST /v1/mfa/totp/verify.
type TOTPVerifyRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

// BackupCodesRequest is the body of POST /v1/mfa/backup-codes.
type BackupCodesRequest struct {
	Count int `json:"count,omitempty" validate:"omitempty,min=1,max=32"`
}

// BackupCodesResponse carries freshly generated backup codes.
type BackupCodesResponse struct {
	Codes []string `json:"codes"`
}

// BackupCodeVerifyRequest is the body of POST /v1/mfa/backup-codes/verify.
type BackupCodeVerifyRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// EnrollmentResponse carries the otpauth:// URL authenticator apps scan.
type EnrollmentResponse struct {
	URL     string `json:"url"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

// VerifyResponse is the result of a code check.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// IDResponse describes a snowflake id.
type IDResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	WorkerID  int64     `json:"worker_id"`
	Sequence  int64     `json:"sequence"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime,omitempty"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}
