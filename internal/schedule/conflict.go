package schedule

import (
	"fmt"
	"time"

	"github.com/finchley/burrow/internal/store"
)

// DefaultEventWidth is assumed for event conflict checks when the caller has
// no end time.
const DefaultEventWidth = 2 * time.Hour

// Conflict describes an existing event overlapping a proposed time range.
type Conflict struct {
	EventID  int64     `json:"event_id"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// Detector answers whether a proposed assignment or event collides with an
// existing commitment. It has no side effects and is safe for concurrent use.
type Detector struct {
	chores *store.ChoreStore
	events *store.EventStore
}

func NewDetector(chores *store.ChoreStore, events *store.EventStore) *Detector {
	return &Detector{chores: chores, events: events}
}

// HasChoreConflict reports whether the member already has an incomplete chore
// due on the same calendar day (inclusive start, exclusive end of day).
func (d *Detector) HasChoreConflict(memberID int64, dueDate time.Time) (bool, error) {
	dayStart := startOfDay(dueDate)
	dayEnd := dayStart.Add(24 * time.Hour)

	count, err := d.chores.CountOpenOnDay(memberID, dayStart, dayEnd)
	if err != nil {
		return false, fmt.Errorf("chore conflict check: %w", err)
	}
	return count > 0, nil
}

// EventConflicts returns published or pending-approval events in the
// household that strictly overlap [start, end). A zero end defaults to
// start plus DefaultEventWidth.
func (d *Detector) EventConflicts(householdID int64, start, end time.Time) ([]Conflict, error) {
	if end.IsZero() || !end.After(start) {
		end = start.Add(DefaultEventWidth)
	}

	events, err := d.events.ListOverlapping(householdID, start, end)
	if err != nil {
		return nil, fmt.Errorf("event conflict check: %w", err)
	}

	var conflicts []Conflict
	for _, e := range events {
		conflicts = append(conflicts, Conflict{
			EventID:  e.ID,
			Title:    e.Title,
			StartsAt: e.StartsAt,
			EndsAt:   e.EndsAt,
		})
	}
	return conflicts, nil
}

// countDayConflicts is the scoring variant of the same-day check.
func (d *Detector) countDayConflicts(memberID int64, dueDate time.Time) (int, error) {
	dayStart := startOfDay(dueDate)
	return d.chores.CountOpenOnDay(memberID, dayStart, dayStart.Add(24*time.Hour))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
