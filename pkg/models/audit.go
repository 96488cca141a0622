package models

// DeviceRecord is one entry of the device-history audit trail.
type DeviceRecord struct {
	ID        string `json:"id"`
	UserAgent string `json:"userAgent"`
	Platform  string `json:"platform,omitempty"`
	Language  string `json:"language,omitempty"`
	Portal    string `json:"portal,omitempty"`
	Time      string `json:"time"`
}

// SecurityLogEntry records an auth-related action for the security log.
type SecurityLogEntry struct {
	Action     string `json:"action"`
	Identifier string `json:"identifier"`
	RemoteAddr string `json:"remoteAddr,omitempty"`
	Portal     string `json:"portal,omitempty"`
	Time       string `json:"time"`
}
