package model

import (
	"fmt"
	"time"
)

// Notification type constants
const (
	NotifTypeBillReminder  = "bill_reminder"
	NotifTypeChoreReminder = "chore_reminder"
	NotifTypeEventReminder = "event_reminder"
	NotifTypeAnnouncement  = "announcement"
)

type Notification struct {
	ID          int64      `json:"id"`
	RecipientID int64      `json:"recipient_id"`
	HouseholdID int64      `json:"household_id"`
	Type        string     `json:"type"`
	Priority    Priority   `json:"priority"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	DedupKey    string     `json:"dedup_key"`
	EntityType  string     `json:"entity_type"`
	EntityID    int64      `json:"entity_id"`
	InApp       bool       `json:"in_app"`
	EmailSent   bool       `json:"email_sent"`
	PushSent    bool       `json:"push_sent"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at"`
}

// DeliveryPreference holds a member's per-type channel toggles.
// In-app delivery is unconditional and has no toggle.
type DeliveryPreference struct {
	UserID           int64  `json:"user_id"`
	NotificationType string `json:"notification_type"`
	EmailEnabled     bool   `json:"email_enabled"`
	PushEnabled      bool   `json:"push_enabled"`
}

// DefaultPreference returns the documented default toggles for a notification
// type: reminders default email+push on, announcements email-only.
func DefaultPreference(userID int64, notifType string) DeliveryPreference {
	p := DeliveryPreference{
		UserID:           userID,
		NotificationType: notifType,
		EmailEnabled:     true,
		PushEnabled:      true,
	}
	if notifType == NotifTypeAnnouncement {
		p.PushEnabled = false
	}
	return p
}

// DedupKey builds the suppression identity for a reminder rule firing against
// one related entity. Recipient is tracked separately so members who received
// the same reminder at different times stay independent.
func DedupKey(ruleKey, entityType string, entityID int64) string {
	return fmt.Sprintf("%s:%s:%d", ruleKey, entityType, entityID)
}

type PushSubscription struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
