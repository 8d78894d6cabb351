package domain

// DeviceInfo user-agent derived metadata attached to a check-in for audit.
type DeviceInfo struct {
	DeviceType string `json:"deviceType"` // mobile / tablet / desktop
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	UserAgent  string `json:"userAgent"`
}
