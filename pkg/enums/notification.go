package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationAppointment NotificationType = "appointment"
	NotificationLead        NotificationType = "lead"
	NotificationProperty    NotificationType = "property"
	NotificationOffer       NotificationType = "offer"
	NotificationContract    NotificationType = "contract"
	NotificationCommission  NotificationType = "commission"
	NotificationPayment     NotificationType = "payment"
	NotificationSystem      NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationAppointment,
	NotificationLead,
	NotificationProperty,
	NotificationOffer,
	NotificationContract,
	NotificationCommission,
	NotificationPayment,
	NotificationSystem,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value matches the canonical notification_type enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
