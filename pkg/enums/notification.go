package enums

import "fmt"

// NotificationType labels entries in the notification log.
type NotificationType string

const (
	NotificationTypeNewEstimate  NotificationType = "new_estimate"
	NotificationTypeStatusChange NotificationType = "status_change"
	NotificationTypeSystem       NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeNewEstimate,
	NotificationTypeStatusChange,
	NotificationTypeSystem,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
