package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/finchley/burrow/internal/store"
)

// Notifier fans a payload out to every device subscription a member has,
// pruning subscriptions the push service reports as gone.
type Notifier struct {
	service *Service
	subs    *store.PushStore
	logger  *slog.Logger
}

func NewNotifier(service *Service, subs *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{service: service, subs: subs, logger: logger}
}

// Send delivers to all of the member's subscriptions. It succeeds if at
// least one device accepted the notification; a member with no
// subscriptions is not an error.
func (n *Notifier) Send(userID int64, title, body, tag string) error {
	subs, err := n.subs.ListByUser(userID)
	if err != nil {
		return fmt.Errorf("push notify: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	payload := Payload{
		Title: title,
		Body:  body,
		URL:   "/notifications",
		Tag:   tag,
	}

	var delivered int
	var lastErr error
	for i := range subs {
		err := n.service.Send(&subs[i], payload)
		if err == nil {
			delivered++
			continue
		}
		if errors.Is(err, ErrExpired) {
			if derr := n.subs.DeleteByEndpoint(subs[i].Endpoint); derr != nil {
				n.logger.Warn("prune expired subscription failed", "error", derr)
			}
			continue
		}
		lastErr = err
	}

	if delivered == 0 && lastErr != nil {
		return fmt.Errorf("push notify: %w", lastErr)
	}
	return nil
}
