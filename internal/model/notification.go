package model

import "time"

// NotificationType classifies a user notification.
type NotificationType string

// NotificationType constants.
const (
	NotifyDonationReceived    NotificationType = "donation_received"
	NotifyApplicationApproved NotificationType = "application_approved"
	NotifyApplicationRejected NotificationType = "application_rejected"
	NotifyWithdrawalApproved  NotificationType = "withdrawal_approved"
	NotifyWithdrawalRejected  NotificationType = "withdrawal_rejected"
	NotifyNewFollower         NotificationType = "new_follower"
	NotifyPasswordReset       NotificationType = "password_reset"
)

var validNotificationTypes = map[NotificationType]bool{
	NotifyDonationReceived:    true,
	NotifyApplicationApproved: true,
	NotifyApplicationRejected: true,
	NotifyWithdrawalApproved:  true,
	NotifyWithdrawalRejected:  true,
	NotifyNewFollower:         true,
	NotifyPasswordReset:       true,
}

// IsValid reports whether t is a known notification type.
func (t NotificationType) IsValid() bool {
	return validNotificationTypes[t]
}

// Notification is an in-app message to a user.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	EventID   string           `json:"-"` // stream id, idempotency key
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// IsRead returns true once the user has seen the notification.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
