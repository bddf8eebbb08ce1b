// Package device classifies clients by their User-Agent header.
package device

import (
	"regexp"
	"strings"

	"github.com/aussiebroadwan/sessiond/internal/session/domain"
)

var (
	tabletRe  = regexp.MustCompile(`(?i)tablet|ipad|playbook|silk|kindle|nexus (7|9|10)`)
	androidRe = regexp.MustCompile(`(?i)android`)
	mobileRe  = regexp.MustCompile(`(?i)mobile|iphone|ipod|android|blackberry|bb10|opera mini|iemobile|windows phone|webos`)
	desktopRe = regexp.MustCompile(`(?i)windows nt|macintosh|mac os x|x11|linux|cros`)
)

// Classify returns the device class for a user agent. Rules are checked in
// order: tablet, mobile, desktop, unknown. Android without "mobile" is a tablet.
func Classify(userAgent string) domain.DeviceType {
	ua := strings.TrimSpace(userAgent)
	if ua == "" {
		return domain.DeviceUnknown
	}

	switch {
	case isTablet(ua):
		return domain.DeviceTablet
	case mobileRe.MatchString(ua):
		return domain.DeviceMobile
	case desktopRe.MatchString(ua):
		return domain.DeviceDesktop
	default:
		return domain.DeviceUnknown
	}
}

func isTablet(ua string) bool {
	if tabletRe.MatchString(ua) {
		return true
	}
	return androidRe.MatchString(ua) && !strings.Contains(strings.ToLower(ua), "mobile")
}

// Describe builds the DeviceInfo for a request without location data.
func Describe(userAgent, ip string) domain.DeviceInfo {
	return domain.DeviceInfo{
		UserAgent:  userAgent,
		IP:         ip,
		DeviceType: Classify(userAgent),
	}
}
