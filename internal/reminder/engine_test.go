package reminder

import (
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/finchley/burrow/internal/database"
	"github.com/finchley/burrow/internal/model"
	"github.com/finchley/burrow/internal/store"
)

type reminderFixture struct {
	db            *sql.DB
	bills         *store.BillStore
	chores        *store.ChoreStore
	events        *store.EventStore
	members       *store.MemberStore
	notifications *store.NotificationStore
	settings      *store.SettingsStore
	engine        *Engine
	household     int64
	alice         int64
	bob           int64
}

func newReminderFixture(t *testing.T) *reminderFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hh, err := store.NewHouseholdStore(db).Create("Test House")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}

	f := &reminderFixture{
		db:            db,
		bills:         store.NewBillStore(db),
		chores:        store.NewChoreStore(db),
		events:        store.NewEventStore(db),
		members:       store.NewMemberStore(db),
		notifications: store.NewNotificationStore(db),
		settings:      store.NewSettingsStore(db),
		household:     hh.ID,
	}
	alice, err := f.members.Create(hh.ID, "Alice", "alice@example.com", model.RoleAdmin)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	bob, _ := f.members.Create(hh.ID, "Bob", "bob@example.com", model.RoleMember)
	f.alice, f.bob = alice.ID, bob.ID

	f.engine = NewEngine(f.bills, f.chores, f.events, f.members, time.UTC, slog.Default())
	return f
}

func evaluateClean(t *testing.T, f *reminderFixture, now time.Time) []Candidate {
	t.Helper()
	candidates, errs := f.engine.Evaluate(now)
	if len(errs) != 0 {
		t.Fatalf("unexpected tick errors: %v", errs)
	}
	return candidates
}

func requireOne(t *testing.T, candidates []Candidate, rule string) Candidate {
	t.Helper()
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %+v", len(candidates), candidates)
	}
	if candidates[0].RuleKey != rule {
		t.Fatalf("rule = %q, want %q", candidates[0].RuleKey, rule)
	}
	return candidates[0]
}

func TestBillUpcomingReminder(t *testing.T) {
	f := newReminderFixture(t)
	bill, _ := f.bills.Create(f.household, "Electric", 8450, 15)

	// Three days before the 15th, just past the 09:00 reference.
	now := time.Date(2026, 8, 12, 9, 10, 0, 0, time.UTC)
	c := requireOne(t, evaluateClean(t, f, now), RuleBillUpcoming)
	if c.Priority != model.PriorityMedium {
		t.Errorf("priority = %q, want medium", c.Priority)
	}
	if c.EntityType != "bill" || c.EntityID != bill.ID {
		t.Errorf("entity = %s/%d, want bill/%d", c.EntityType, c.EntityID, bill.ID)
	}
	if len(c.Recipients) != 2 {
		t.Errorf("recipients = %d, want all 2 household members", len(c.Recipients))
	}
}

func TestBillUpcomingAcrossMonthEnd(t *testing.T) {
	f := newReminderFixture(t)
	bill, _ := f.bills.Create(f.household, "Internet", 6500, 3)
	// August's cycle is settled; only September's window matters.
	if err := f.bills.RecordPayment(bill.ID, "2026-08", &f.alice); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	// Aug 31: September has no 31st, but the 3-day window for a bill due
	// Sep 3 opens here all the same.
	now := time.Date(2026, 8, 31, 9, 10, 0, 0, time.UTC)
	c := requireOne(t, evaluateClean(t, f, now), RuleBillUpcoming)
	if c.EntityID != bill.ID {
		t.Errorf("entity id = %d, want %d", c.EntityID, bill.ID)
	}
}

func TestBillDueToday(t *testing.T) {
	f := newReminderFixture(t)
	f.bills.Create(f.household, "Electric", 8450, 15)

	now := time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC)
	c := requireOne(t, evaluateClean(t, f, now), RuleBillDueToday)
	if c.Priority != model.PriorityHigh {
		t.Errorf("priority = %q, want high", c.Priority)
	}
}

func TestBillOverdue(t *testing.T) {
	f := newReminderFixture(t)
	f.bills.Create(f.household, "Electric", 8450, 15)

	// Still on the due day: nothing fires at the overdue slot.
	sameDay := time.Date(2026, 8, 15, 10, 5, 0, 0, time.UTC)
	if got := evaluateClean(t, f, sameDay); len(got) != 0 {
		t.Fatalf("expected no candidates on the due day, got %+v", got)
	}

	// Next morning at the 10:00 slot the bill is overdue.
	now := time.Date(2026, 8, 16, 10, 5, 0, 0, time.UTC)
	c := requireOne(t, evaluateClean(t, f, now), RuleBillOverdue)
	if c.Priority != model.PriorityUrgent {
		t.Errorf("priority = %q, want urgent", c.Priority)
	}
}

func TestBillPaidSuppressesReminders(t *testing.T) {
	f := newReminderFixture(t)
	bill, _ := f.bills.Create(f.household, "Electric", 8450, 15)
	if err := f.bills.RecordPayment(bill.ID, "2026-08", &f.alice); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	for _, now := range []time.Time{
		time.Date(2026, 8, 12, 9, 10, 0, 0, time.UTC),
		time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC),
		time.Date(2026, 8, 16, 10, 5, 0, 0, time.UTC),
	} {
		if got := evaluateClean(t, f, now); len(got) != 0 {
			t.Errorf("paid bill at %v: expected no candidates, got %+v", now, got)
		}
	}
}

func TestBillDueDayClampedToMonthEnd(t *testing.T) {
	f := newReminderFixture(t)
	f.bills.Create(f.household, "Rent", 120000, 31)

	// February 2026 has 28 days; day 31 lands on the 28th.
	now := time.Date(2026, 2, 28, 9, 30, 0, 0, time.UTC)
	requireOne(t, evaluateClean(t, f, now), RuleBillDueToday)
}

func TestBillOffSlotIsQuiet(t *testing.T) {
	f := newReminderFixture(t)
	f.bills.Create(f.household, "Electric", 8450, 15)

	now := time.Date(2026, 8, 12, 14, 0, 0, 0, time.UTC)
	if got := evaluateClean(t, f, now); len(got) != 0 {
		t.Errorf("expected no candidates off-slot, got %+v", got)
	}
}

func TestChoreOverdueSlots(t *testing.T) {
	f := newReminderFixture(t)

	due := time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)
	chore, err := f.chores.Create(&model.Chore{
		HouseholdID: f.household,
		Title:       "Mow lawn",
		AssigneeID:  &f.alice,
		DueDate:     &due,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	// An unassigned overdue chore has nobody to remind.
	f.chores.Create(&model.Chore{HouseholdID: f.household, Title: "Orphan", DueDate: &due})

	morning := time.Date(2026, 8, 12, 9, 30, 0, 0, time.UTC)
	c := requireOne(t, evaluateClean(t, f, morning), RuleChoreOverdueMorning)
	if len(c.Recipients) != 1 || c.Recipients[0] != f.alice {
		t.Errorf("recipients = %v, want only the assignee", c.Recipients)
	}
	if c.EntityID != chore.ID {
		t.Errorf("entity id = %d, want %d", c.EntityID, chore.ID)
	}

	evening := time.Date(2026, 8, 12, 18, 30, 0, 0, time.UTC)
	requireOne(t, evaluateClean(t, f, evening), RuleChoreOverdueEvening)

	midday := time.Date(2026, 8, 12, 12, 0, 0, 0, time.UTC)
	if got := evaluateClean(t, f, midday); len(got) != 0 {
		t.Errorf("expected no candidates at midday, got %+v", got)
	}
}

func TestEventReminders(t *testing.T) {
	f := newReminderFixture(t)

	starts := time.Date(2026, 8, 13, 10, 0, 0, 0, time.UTC)
	event, err := f.events.Create(&model.Event{
		HouseholdID: f.household,
		Title:       "Soccer practice",
		StartsAt:    starts,
		EndsAt:      starts.Add(2 * time.Hour),
		Status:      model.EventPublished,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	// Drafts never remind.
	f.events.Create(&model.Event{
		HouseholdID: f.household,
		Title:       "Maybe brunch",
		StartsAt:    starts,
		EndsAt:      starts.Add(time.Hour),
		Status:      model.EventDraft,
	})

	dayBefore := time.Date(2026, 8, 12, 10, 30, 0, 0, time.UTC)
	c := requireOne(t, evaluateClean(t, f, dayBefore), RuleEventDayBefore)
	if c.Priority != model.PriorityMedium {
		t.Errorf("priority = %q, want medium", c.Priority)
	}
	if c.EntityID != event.ID {
		t.Errorf("entity id = %d, want %d", c.EntityID, event.ID)
	}
	if len(c.Recipients) != 2 {
		t.Errorf("recipients = %d, want all 2 household members", len(c.Recipients))
	}

	soon := time.Date(2026, 8, 13, 8, 30, 0, 0, time.UTC)
	c = requireOne(t, evaluateClean(t, f, soon), RuleEventSoon)
	if c.Priority != model.PriorityHigh {
		t.Errorf("priority = %q, want high", c.Priority)
	}
}

func TestEvaluateDomainIsolation(t *testing.T) {
	f := newReminderFixture(t)

	due := time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)
	f.chores.Create(&model.Chore{
		HouseholdID: f.household,
		Title:       "Mow lawn",
		AssigneeID:  &f.alice,
		DueDate:     &due,
	})

	// Break the bill domain only.
	if _, err := f.db.Exec("DROP TABLE bills"); err != nil {
		t.Fatalf("drop bills: %v", err)
	}

	now := time.Date(2026, 8, 12, 9, 30, 0, 0, time.UTC)
	candidates, errs := f.engine.Evaluate(now)
	if len(errs) != 1 {
		t.Fatalf("expected 1 tick error, got %d: %v", len(errs), errs)
	}
	if errs[0].Domain != "bill" {
		t.Errorf("failed domain = %q, want bill", errs[0].Domain)
	}
	if len(candidates) != 1 || candidates[0].RuleKey != RuleChoreOverdueMorning {
		t.Fatalf("chore reminders should survive a bill failure, got %+v", candidates)
	}
}
