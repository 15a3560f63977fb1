package schedule

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/finchley/burrow/internal/model"
	"github.com/finchley/burrow/internal/store"
)

// Assigner picks the next chore assignee by round-robin over the household's
// active members in id order. The cursor (last-assigned member) is explicit
// per-household state; two concurrent creations may race it, which is
// acceptable — fairness is approximate, not transactionally guaranteed.
type Assigner struct {
	members  *store.MemberStore
	cursor   *store.RotationStore
	detector *Detector
	retries  int
	logger   *slog.Logger
}

func NewAssigner(members *store.MemberStore, cursor *store.RotationStore, detector *Detector, retries int, logger *slog.Logger) *Assigner {
	if retries < 0 {
		retries = 0
	}
	return &Assigner{
		members:  members,
		cursor:   cursor,
		detector: detector,
		retries:  retries,
		logger:   logger,
	}
}

// NextAssignee proposes the member after the rotation cursor and advances
// the cursor. When the proposal has a same-day conflict with dueDate, the
// next member in rotation order is tried instead (up to the configured retry
// count); the final fallback keeps the last tried member even if they also
// conflict, so rotation fairness wins over conflict avoidance.
func (a *Assigner) NextAssignee(householdID int64, dueDate *time.Time) (int64, error) {
	members, err := a.members.ListActive(householdID)
	if err != nil {
		return 0, fmt.Errorf("next assignee: %w", err)
	}
	if len(members) == 0 {
		return 0, ErrNoActiveMembers
	}

	start := a.startIndex(householdID, members)
	chosen := members[start]

	if dueDate != nil && len(members) > 1 {
		conflict, err := a.detector.HasChoreConflict(chosen.ID, *dueDate)
		if err != nil {
			return 0, fmt.Errorf("next assignee: %w", err)
		}
		for r := 1; conflict && r <= a.retries; r++ {
			chosen = members[(start+r)%len(members)]
			conflict, err = a.detector.HasChoreConflict(chosen.ID, *dueDate)
			if err != nil {
				return 0, fmt.Errorf("next assignee: %w", err)
			}
		}
		if conflict {
			a.logger.Debug("rotation keeping conflicting assignee",
				"household_id", householdID, "member_id", chosen.ID)
		}
	}

	if err := a.cursor.Set(householdID, chosen.ID); err != nil {
		return 0, fmt.Errorf("next assignee: %w", err)
	}
	return chosen.ID, nil
}

// PreviewOrder returns the next count members in rotation order without
// moving the cursor or consulting conflicts.
func (a *Assigner) PreviewOrder(householdID int64, count int) ([]model.Member, error) {
	members, err := a.members.ListActive(householdID)
	if err != nil {
		return nil, fmt.Errorf("preview rotation: %w", err)
	}
	if len(members) == 0 {
		return nil, ErrNoActiveMembers
	}

	idx := a.startIndex(householdID, members)
	order := make([]model.Member, 0, count)
	for i := 0; i < count; i++ {
		order = append(order, members[(idx+i)%len(members)])
	}
	return order, nil
}

// startIndex locates the cursor member in the id-sorted active list and
// advances one position, wrapping to 0. A missing or stale cursor (member
// deactivated or removed) restarts at the first member.
func (a *Assigner) startIndex(householdID int64, members []model.Member) int {
	lastID, ok, err := a.cursor.Get(householdID)
	if err != nil {
		a.logger.Warn("rotation cursor read failed", "household_id", householdID, "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	for i, m := range members {
		if m.ID == lastID {
			return (i + 1) % len(members)
		}
	}
	return 0
}
