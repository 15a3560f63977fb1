package reminder

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/finchley/burrow/internal/model"
	"github.com/finchley/burrow/internal/store"
)

// Reference times of day for bill and chore reminders.
const (
	billReminderHour   = 9
	billOverdueHour    = 10
	choreMorningHour   = 9
	choreEveningHour   = 18
	eventLookahead     = 48 * time.Hour
	billUpcomingOffset = 72 * time.Hour
)

// Engine evaluates the three static rule domains against a tick time and
// produces reminder candidates. Evaluation is read-only; a failure in one
// domain is reported as a TickError and does not stop the others.
type Engine struct {
	bills   *store.BillStore
	chores  *store.ChoreStore
	events  *store.EventStore
	members *store.MemberStore
	loc     *time.Location
	logger  *slog.Logger
}

func NewEngine(bills *store.BillStore, chores *store.ChoreStore, events *store.EventStore, members *store.MemberStore, loc *time.Location, logger *slog.Logger) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		bills:   bills,
		chores:  chores,
		events:  events,
		members: members,
		loc:     loc,
		logger:  logger,
	}
}

// Evaluate runs every rule domain for the given tick time.
func (e *Engine) Evaluate(now time.Time) ([]Candidate, []*TickError) {
	now = now.In(e.loc)

	var candidates []Candidate
	var errs []*TickError

	domains := []struct {
		name string
		eval func(time.Time) ([]Candidate, error)
	}{
		{"bill", e.evaluateBills},
		{"chore", e.evaluateChores},
		{"event", e.evaluateEvents},
	}
	for _, d := range domains {
		cands, err := d.eval(now)
		if err != nil {
			errs = append(errs, &TickError{Domain: d.name, Err: err})
			continue
		}
		candidates = append(candidates, cands...)
	}
	return candidates, errs
}

func (e *Engine) evaluateBills(now time.Time) ([]Candidate, error) {
	bills, err := e.bills.ListActive()
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, bill := range bills {
		recipients, err := e.householdRecipients(bill.HouseholdID)
		if err != nil {
			return nil, err
		}
		if len(recipients) == 0 {
			continue
		}

		// The due timestamp for the current and the next billing month both
		// matter: a bill due on the 2nd has its 3-day window in the prior month.
		// Anchor on the first of the month so that ticking on a day the next
		// month lacks (Aug 31, Jan 30) still lands in the right billing month.
		for monthOffset := 0; monthOffset <= 1; monthOffset++ {
			ref := time.Date(now.Year(), now.Month()+time.Month(monthOffset), 1, 0, 0, 0, 0, e.loc)
			due := billDueTime(bill.DueDay, ref.Year(), ref.Month(), billReminderHour, e.loc)
			month := due.Format("2006-01")

			paid, err := e.bills.IsPaid(bill.ID, month)
			if err != nil {
				return nil, err
			}
			if paid {
				continue
			}

			if withinTolerance(now, due.Add(-billUpcomingOffset)) {
				candidates = append(candidates, billCandidate(bill, recipients, RuleBillUpcoming,
					model.PriorityMedium,
					fmt.Sprintf("%s is due in 3 days", bill.Name),
					fmt.Sprintf("%s (%s) is due on %s.", bill.Name, formatCents(bill.AmountCents), due.Format("Jan 2")),
				))
			}
			if withinTolerance(now, due) {
				candidates = append(candidates, billCandidate(bill, recipients, RuleBillDueToday,
					model.PriorityHigh,
					fmt.Sprintf("%s is due today", bill.Name),
					fmt.Sprintf("%s (%s) is due today.", bill.Name, formatCents(bill.AmountCents)),
				))
			}

			// Overdue fires daily until the month is paid, current month only.
			if monthOffset == 0 {
				dueDayEnd := startOfDay(due, e.loc).Add(24 * time.Hour)
				overdueSlot := time.Date(now.Year(), now.Month(), now.Day(), billOverdueHour, 0, 0, 0, e.loc)
				if now.After(dueDayEnd) && withinTolerance(now, overdueSlot) {
					candidates = append(candidates, billCandidate(bill, recipients, RuleBillOverdue,
						model.PriorityUrgent,
						fmt.Sprintf("%s is overdue", bill.Name),
						fmt.Sprintf("%s (%s) was due on %s and has not been paid.", bill.Name, formatCents(bill.AmountCents), due.Format("Jan 2")),
					))
				}
			}
		}
	}
	return candidates, nil
}

func (e *Engine) evaluateChores(now time.Time) ([]Candidate, error) {
	overdue, err := e.chores.ListOverdue(now)
	if err != nil {
		return nil, err
	}

	slots := []struct {
		rule string
		hour int
	}{
		{RuleChoreOverdueMorning, choreMorningHour},
		{RuleChoreOverdueEvening, choreEveningHour},
	}

	var candidates []Candidate
	for _, chore := range overdue {
		if chore.AssigneeID == nil {
			continue
		}
		for _, slot := range slots {
			target := time.Date(now.Year(), now.Month(), now.Day(), slot.hour, 0, 0, 0, e.loc)
			if !withinTolerance(now, target) {
				continue
			}
			candidates = append(candidates, Candidate{
				HouseholdID: chore.HouseholdID,
				Recipients:  []int64{*chore.AssigneeID},
				RuleKey:     slot.rule,
				Type:        model.NotifTypeChoreReminder,
				Priority:    model.PriorityHigh,
				Title:       fmt.Sprintf("Overdue chore: %s", chore.Title),
				Body:        fmt.Sprintf("%s was due on %s and is still open.", chore.Title, chore.DueDate.In(e.loc).Format("Jan 2")),
				EntityType:  "chore",
				EntityID:    chore.ID,
			})
		}
	}
	return candidates, nil
}

func (e *Engine) evaluateEvents(now time.Time) ([]Candidate, error) {
	events, err := e.events.ListPublishedBetween(now, now.Add(eventLookahead))
	if err != nil {
		return nil, err
	}

	offsets := []struct {
		rule     string
		offset   time.Duration
		priority model.Priority
	}{
		{RuleEventDayBefore, 24 * time.Hour, model.PriorityMedium},
		{RuleEventSoon, 2 * time.Hour, model.PriorityHigh},
	}

	var candidates []Candidate
	for _, event := range events {
		recipients, err := e.householdRecipients(event.HouseholdID)
		if err != nil {
			return nil, err
		}
		if len(recipients) == 0 {
			continue
		}
		for _, o := range offsets {
			if !withinTolerance(now, event.StartsAt.In(e.loc).Add(-o.offset)) {
				continue
			}
			candidates = append(candidates, Candidate{
				HouseholdID: event.HouseholdID,
				Recipients:  recipients,
				RuleKey:     o.rule,
				Type:        model.NotifTypeEventReminder,
				Priority:    o.priority,
				Title:       fmt.Sprintf("Upcoming event: %s", event.Title),
				Body:        fmt.Sprintf("%s starts at %s.", event.Title, event.StartsAt.In(e.loc).Format("Jan 2 15:04")),
				EntityType:  "event",
				EntityID:    event.ID,
			})
		}
	}
	return candidates, nil
}

func (e *Engine) householdRecipients(householdID int64) ([]int64, error) {
	members, err := e.members.ListActive(householdID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func billCandidate(bill model.Bill, recipients []int64, rule string, priority model.Priority, title, body string) Candidate {
	return Candidate{
		HouseholdID: bill.HouseholdID,
		Recipients:  recipients,
		RuleKey:     rule,
		Type:        model.NotifTypeBillReminder,
		Priority:    priority,
		Title:       title,
		Body:        body,
		EntityType:  "bill",
		EntityID:    bill.ID,
	}
}

// billDueTime resolves a bill's due-day to a concrete timestamp in the given
// month, clamping short months (due_day 31 in February lands on the 28th).
func billDueTime(dueDay, year int, month time.Month, hour int, loc *time.Location) time.Time {
	if last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day(); dueDay > last {
		dueDay = last
	}
	return time.Date(year, month, dueDay, hour, 0, 0, 0, loc)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
