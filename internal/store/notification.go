package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/finchley/burrow/internal/model"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationCols = `id, recipient_id, household_id, type, priority, title, body, dedup_key,
	entity_type, entity_id, in_app, email_sent, push_sent, created_at, read_at`

func scanNotification(scanner interface{ Scan(...any) error }) (*model.Notification, error) {
	var n model.Notification
	var readAt sql.NullTime
	err := scanner.Scan(
		&n.ID, &n.RecipientID, &n.HouseholdID, &n.Type, &n.Priority, &n.Title, &n.Body,
		&n.DedupKey, &n.EntityType, &n.EntityID, &n.InApp, &n.EmailSent, &n.PushSent,
		&n.CreatedAt, &readAt,
	)
	if err != nil {
		return nil, err
	}
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	return &n, nil
}

func (s *NotificationStore) Create(n *model.Notification) (*model.Notification, error) {
	result, err := s.db.Exec(
		`INSERT INTO notifications (recipient_id, household_id, type, priority, title, body,
		 dedup_key, entity_type, entity_id, in_app, email_sent, push_sent)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.RecipientID, n.HouseholdID, n.Type, n.Priority, n.Title, n.Body,
		n.DedupKey, n.EntityType, n.EntityID, n.InApp, n.EmailSent, n.PushSent,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *NotificationStore) GetByID(id int64) (*model.Notification, error) {
	row := s.db.QueryRow(`SELECT `+notificationCols+` FROM notifications WHERE id = ?`, id)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// FindRecent reports whether a notification with the same dedup key was
// created for the recipient since the given time. This is the cooldown
// lookback; it is per recipient because tick jitter means different members
// may have received the same reminder at different times.
func (s *NotificationStore) FindRecent(recipientID int64, dedupKey string, since time.Time) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications
		 WHERE recipient_id = ? AND dedup_key = ? AND created_at >= ?`,
		recipientID, dedupKey, since.UTC(),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("find recent notification: %w", err)
	}
	return count > 0, nil
}

// UpdateChannelFlags records which best-effort channels actually delivered.
// The notification row itself is the source of truth for in-app state and is
// otherwise never mutated after creation.
func (s *NotificationStore) UpdateChannelFlags(id int64, emailSent, pushSent bool) error {
	_, err := s.db.Exec(
		`UPDATE notifications SET email_sent = ?, push_sent = ? WHERE id = ?`,
		emailSent, pushSent, id,
	)
	if err != nil {
		return fmt.Errorf("update notification channels: %w", err)
	}
	return nil
}

func (s *NotificationStore) MarkRead(id, recipientID int64, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE notifications SET read_at = ? WHERE id = ? AND recipient_id = ? AND read_at IS NULL`,
		at.UTC(), id, recipientID,
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *NotificationStore) ListUnread(recipientID int64) ([]model.Notification, error) {
	rows, err := s.db.Query(
		`SELECT `+notificationCols+` FROM notifications
		 WHERE recipient_id = ? AND read_at IS NULL ORDER BY created_at DESC`,
		recipientID,
	)
	if err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	defer rows.Close()

	var notifs []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifs = append(notifs, *n)
	}
	return notifs, rows.Err()
}

// GetPreference returns the member's delivery preference for a notification
// type, falling back to the per-type defaults when no row exists.
func (s *NotificationStore) GetPreference(userID int64, notifType string) (model.DeliveryPreference, error) {
	var p model.DeliveryPreference
	err := s.db.QueryRow(
		`SELECT user_id, notification_type, email_enabled, push_enabled
		 FROM notification_preferences WHERE user_id = ? AND notification_type = ?`,
		userID, notifType,
	).Scan(&p.UserID, &p.NotificationType, &p.EmailEnabled, &p.PushEnabled)
	if err == sql.ErrNoRows {
		return model.DefaultPreference(userID, notifType), nil
	}
	if err != nil {
		return model.DeliveryPreference{}, fmt.Errorf("get delivery preference: %w", err)
	}
	return p, nil
}

func (s *NotificationStore) SetPreference(p model.DeliveryPreference) error {
	_, err := s.db.Exec(
		`INSERT INTO notification_preferences (user_id, notification_type, email_enabled, push_enabled)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, notification_type) DO UPDATE SET
		 email_enabled = excluded.email_enabled, push_enabled = excluded.push_enabled,
		 updated_at = CURRENT_TIMESTAMP`,
		p.UserID, p.NotificationType, p.EmailEnabled, p.PushEnabled,
	)
	if err != nil {
		return fmt.Errorf("set delivery preference: %w", err)
	}
	return nil
}
