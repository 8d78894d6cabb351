package agent

import (
	"strings"

	"attendance-backend/internal/domain"
)

// BuildFingerprint derives device/OS/browser metadata from a user-agent
// string for attendance audit. Pure substring heuristics; cannot fail.
//
// Ordering matters: Edge user agents also contain "Chrome", and Chrome user
// agents also contain "Safari", so the checks go Edge -> Chrome -> Firefox
// -> Safari. Likewise iOS is detected before macOS ("like Mac OS X") and
// Android before Linux.
func BuildFingerprint(userAgent string) domain.DeviceInfo {
	return domain.DeviceInfo{
		DeviceType: deviceTypeOf(userAgent),
		OS:         osOf(userAgent),
		Browser:    browserOf(userAgent),
		UserAgent:  userAgent,
	}
}

func deviceTypeOf(ua string) string {
	switch {
	case strings.Contains(ua, "iPad") || strings.Contains(ua, "Tablet"):
		return "tablet"
	case strings.Contains(ua, "Mobi") || strings.Contains(ua, "iPhone") || strings.Contains(ua, "Android"):
		return "mobile"
	default:
		return "desktop"
	}
}

func osOf(ua string) string {
	switch {
	case strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad") || strings.Contains(ua, "iPod"):
		return "iOS"
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Mac OS X") || strings.Contains(ua, "Macintosh"):
		return "macOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	default:
		return "Unknown"
	}
}

func browserOf(ua string) string {
	switch {
	case strings.Contains(ua, "Edg"):
		return "Edge"
	case strings.Contains(ua, "Chrome"):
		return "Chrome"
	case strings.Contains(ua, "Firefox"):
		return "Firefox"
	case strings.Contains(ua, "Safari"):
		return "Safari"
	default:
		return "Unknown"
	}
}
