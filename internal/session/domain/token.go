package domain

import "time"

// TokenType distinguishes access from refresh tokens inside the payload.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// TokenData is the full payload signed into access and refresh tokens.
// Exp and Iat are Unix seconds.
type TokenData struct {
	SessionID    string     `json:"sessionId"`
	UserID       string     `json:"userId"`
	Roles        []string   `json:"roles"`
	Permissions  []string   `json:"permissions"`
	DeviceInfo   DeviceInfo `json:"deviceInfo"`
	IsRememberMe bool       `json:"isRememberMe"`
	Type         TokenType  `json:"typ,omitempty"`
	Exp          int64      `json:"exp"`
	Iat          int64      `json:"iat"`
}

// ExpiredAt reports whether the token is past its exp at now.
func (t TokenData) ExpiredAt(now time.Time) bool {
	return t.Exp < now.Unix()
}

// HasRole reports whether the token carries role.
func (t TokenData) HasRole(role string) bool {
	for _, r := range t.Roles {
		if r == role {
			return true
		}
	}
	return false
}
