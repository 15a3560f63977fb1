package reminder

import (
	"fmt"
	"time"

	"github.com/finchley/burrow/internal/model"
)

// Rule keys identify which static rule produced a candidate. They feed the
// dedup key, so two rules firing against the same entity stay independent.
const (
	RuleBillUpcoming        = "bill_3day"
	RuleBillDueToday        = "bill_due_today"
	RuleBillOverdue         = "bill_overdue"
	RuleChoreOverdueMorning = "chore_overdue_am"
	RuleChoreOverdueEvening = "chore_overdue_pm"
	RuleEventDayBefore      = "event_24h"
	RuleEventSoon           = "event_2h"
)

// Tolerance is the evaluation window around each rule's target instant. The
// clock ticks every few minutes, so a rule "fires at 09:00" means any tick
// landing within this window of 09:00.
const Tolerance = time.Hour

// Cooldown is the minimum interval between two notifications with the same
// dedup key for one recipient. 23 hours rather than 24 so a daily rule is
// never suppressed by yesterday's slightly-late firing.
const Cooldown = 23 * time.Hour

// Candidate is a reminder a rule wants to send, before deduplication and
// preference resolution.
type Candidate struct {
	HouseholdID int64
	Recipients  []int64
	RuleKey     string
	Type        string
	Priority    model.Priority
	Title       string
	Body        string
	EntityType  string
	EntityID    int64
	Cooldown    time.Duration
}

// DedupKey returns the suppression identity for this candidate.
func (c Candidate) DedupKey() string {
	return model.DedupKey(c.RuleKey, c.EntityType, c.EntityID)
}

func (c Candidate) cooldown() time.Duration {
	if c.Cooldown > 0 {
		return c.Cooldown
	}
	return Cooldown
}

// TickError reports that one rule domain failed during a scheduler pass.
// One domain failing never aborts the other two.
type TickError struct {
	Domain string
	Err    error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("%s rules: %v", e.Domain, e.Err)
}

func (e *TickError) Unwrap() error {
	return e.Err
}

// withinTolerance reports whether now falls inside the evaluation window
// around target.
func withinTolerance(now, target time.Time) bool {
	diff := now.Sub(target)
	if diff < 0 {
		diff = -diff
	}
	return diff <= Tolerance
}
