package reminder

import (
	"fmt"
	"time"

	"github.com/finchley/burrow/internal/store"
)

// Guard suppresses a reminder candidate when an equivalent notification was
// already created for the recipient inside the rule's cooldown window.
type Guard struct {
	notifications *store.NotificationStore
}

func NewGuard(notifications *store.NotificationStore) *Guard {
	return &Guard{notifications: notifications}
}

// ShouldSuppress is evaluated per recipient, not per candidate: tick jitter
// means two members can be on different cooldown clocks for the same rule
// and entity.
func (g *Guard) ShouldSuppress(recipientID int64, c Candidate, now time.Time) (bool, error) {
	since := now.Add(-c.cooldown())
	found, err := g.notifications.FindRecent(recipientID, c.DedupKey(), since)
	if err != nil {
		return false, fmt.Errorf("dedup lookback: %w", err)
	}
	return found, nil
}
