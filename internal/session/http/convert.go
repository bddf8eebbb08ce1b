package http

import (
	"github.com/aussiebroadwan/sessiond/internal/session/domain"
	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
)

func toTokenResponse(p domain.TokenPair) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    p.ExpiresIn,
		SessionID:    p.SessionID,
	}
}

func toDeviceInfo(d domain.DeviceInfo) authsdk.DeviceInfo {
	out := authsdk.DeviceInfo{
		UserAgent:  d.UserAgent,
		IP:         d.IP,
		DeviceType: string(d.DeviceType),
	}
	if loc := d.Location; loc != nil {
		out.Location = &authsdk.Location{
			IP:       loc.IP,
			Country:  loc.Country,
			City:     loc.City,
			Timezone: loc.Timezone,
			Lat:      loc.Lat,
			Lon:      loc.Lon,
			ISP:      loc.ISP,
			ASN:      loc.ASN,
		}
	}
	return out
}

func toTokenInfo(t domain.TokenData) authsdk.TokenInfo {
	return authsdk.TokenInfo{
		SessionID:    t.SessionID,
		UserID:       t.UserID,
		Roles:        t.Roles,
		Permissions:  t.Permissions,
		DeviceInfo:   toDeviceInfo(t.DeviceInfo),
		IsRememberMe: t.IsRememberMe,
		Type:         string(t.Type),
		Exp:          t.Exp,
		Iat:          t.Iat,
	}
}

func toSessionInfo(s domain.Session, currentID string) authsdk.SessionInfo {
	return authsdk.SessionInfo{
		ID:           s.ID,
		UserID:       s.UserID,
		Roles:        s.Roles,
		Permissions:  s.Permissions,
		DeviceInfo:   toDeviceInfo(s.DeviceInfo),
		IsRememberMe: s.IsRememberMe,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		Current:      s.ID == currentID,
	}
}
