package models

import "github.com/mechflow/mechflow-backend/pkg/enums"

// Notification is one alert-log entry, targeted at a role or, for
// customer-facing entries, a specific email.
type Notification struct {
	ID        string                 `json:"id"`
	Role      enums.Role             `json:"role"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]any         `json:"data,omitempty"`
	Read      bool                   `json:"read"`
	Time      string                 `json:"time"`
	Timestamp int64                  `json:"timestamp"`
	Email     string                 `json:"email,omitempty"`
}
