package reminder

import (
	"fmt"
	"log/slog"

	"github.com/finchley/burrow/internal/model"
	"github.com/finchley/burrow/internal/store"
	"github.com/finchley/burrow/internal/websocket"
)

// EmailSender is the outbound email transport. Implementations are
// best-effort; errors are logged, never retried here.
type EmailSender interface {
	Send(to, subject, body string) error
}

// PushSender delivers a push notification to all of a member's devices.
type PushSender interface {
	Send(userID int64, title, body, tag string) error
}

// Dispatcher resolves delivery preferences, persists the notification, and
// fans out to the enabled channels. The persisted row is the source of truth
// for in-app read state; transport failures never roll it back.
type Dispatcher struct {
	notifications *store.NotificationStore
	members       *store.MemberStore
	email         EmailSender
	push          PushSender
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewDispatcher(notifications *store.NotificationStore, members *store.MemberStore, email EmailSender, push PushSender, hub *websocket.Hub, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		members:       members,
		email:         email,
		push:          push,
		hub:           hub,
		logger:        logger,
	}
}

// Dispatch sends one candidate to one recipient. In-app delivery (the
// persisted row plus a hub broadcast) is unconditional; email and push
// follow the recipient's preference for the candidate's type.
func (d *Dispatcher) Dispatch(recipientID int64, c Candidate) (*model.Notification, error) {
	pref, err := d.notifications.GetPreference(recipientID, c.Type)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	notif, err := d.notifications.Create(&model.Notification{
		RecipientID: recipientID,
		HouseholdID: c.HouseholdID,
		Type:        c.Type,
		Priority:    c.Priority,
		Title:       c.Title,
		Body:        c.Body,
		DedupKey:    c.DedupKey(),
		EntityType:  c.EntityType,
		EntityID:    c.EntityID,
		InApp:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	if d.hub != nil {
		d.hub.Broadcast(websocket.NewMessage("notification", "created", notif.ID, map[string]any{
			"recipient_id": recipientID,
			"type":         c.Type,
			"priority":     string(c.Priority),
		}))
	}

	var emailSent, pushSent bool
	if pref.EmailEnabled && d.email != nil {
		if to := d.recipientEmail(recipientID); to != "" {
			if err := d.email.Send(to, c.Title, c.Body); err != nil {
				d.logger.Warn("email delivery failed",
					"notification_id", notif.ID, "recipient_id", recipientID, "error", err)
			} else {
				emailSent = true
			}
		}
	}
	if pref.PushEnabled && d.push != nil {
		if err := d.push.Send(recipientID, c.Title, c.Body, c.DedupKey()); err != nil {
			d.logger.Warn("push delivery failed",
				"notification_id", notif.ID, "recipient_id", recipientID, "error", err)
		} else {
			pushSent = true
		}
	}

	if emailSent || pushSent {
		if err := d.notifications.UpdateChannelFlags(notif.ID, emailSent, pushSent); err != nil {
			d.logger.Warn("record channel flags failed", "notification_id", notif.ID, "error", err)
		} else {
			notif.EmailSent = emailSent
			notif.PushSent = pushSent
		}
	}
	return notif, nil
}

func (d *Dispatcher) recipientEmail(recipientID int64) string {
	member, err := d.members.GetByID(recipientID)
	if err != nil {
		d.logger.Warn("recipient lookup failed", "recipient_id", recipientID, "error", err)
		return ""
	}
	if member == nil {
		return ""
	}
	return member.Email
}
