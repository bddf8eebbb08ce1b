package domain

import "time"

// DeviceType is the coarse device class derived from a user agent.
type DeviceType string

const (
	DeviceTablet  DeviceType = "tablet"
	DeviceMobile  DeviceType = "mobile"
	DeviceDesktop DeviceType = "desktop"
	DeviceUnknown DeviceType = "unknown"
)

// IPGeolocation is the location resolved for an IP address.
type IPGeolocation struct {
	IP       string  `json:"ip"`
	Country  string  `json:"country"`
	City     string  `json:"city"`
	Timezone string  `json:"timezone"`
	Lat      float64 `json:"lat,omitempty"`
	Lon      float64 `json:"lon,omitempty"`
	ISP      string  `json:"isp,omitempty"`
	ASN      string  `json:"as,omitempty"`
}

// UnknownLocation is the placeholder used whenever a lookup fails.
func UnknownLocation(ip string) IPGeolocation {
	return IPGeolocation{IP: ip, Country: "Unknown", City: "Unknown", Timezone: "UTC"}
}

// DeviceInfo describes the client a session was created from.
type DeviceInfo struct {
	UserAgent  string         `json:"userAgent"`
	IP         string         `json:"ip"`
	Location   *IPGeolocation `json:"location,omitempty"`
	DeviceType DeviceType     `json:"deviceType"`
}

// Session is the server-side record behind a token pair. LastActivity drives
// idle cleanup.
type Session struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Roles        []string   `json:"roles,omitempty"`
	Permissions  []string   `json:"permissions,omitempty"`
	DeviceInfo   DeviceInfo `json:"deviceInfo"`
	IsRememberMe bool       `json:"isRememberMe"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActivity time.Time  `json:"lastActivity"`
}

// IdleFor reports how long the session has been inactive at now.
func (s Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}

// LoginRequest is the input to session creation.
type LoginRequest struct {
	UserID       string
	Roles        []string
	Permissions  []string
	IsRememberMe bool
	UserAgent    string
	IP           string
}

// TokenPair is what session creation and refresh hand back to the caller.
// ExpiresIn is the access token lifetime in seconds.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	SessionID    string `json:"session_id"`
}

// RevocationReason labels why a session was destroyed.
type RevocationReason string

const (
	ReasonLogout       RevocationReason = "logout"
	ReasonUserRevoked  RevocationReason = "user_revoked"
	ReasonIdle         RevocationReason = "idle_timeout"
	ReasonRotated      RevocationReason = "rotated"
	ReasonSessionLimit RevocationReason = "session_limit"
	ReasonAdmin        RevocationReason = "admin"
)
