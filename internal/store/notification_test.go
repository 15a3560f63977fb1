package store

import (
	"testing"
	"time"

	"github.com/finchley/burrow/internal/database"
	"github.com/finchley/burrow/internal/model"
)

func setupNotificationTestDB(t *testing.T) (*NotificationStore, int64, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hh, err := NewHouseholdStore(db).Create("Test House")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	m, err := NewMemberStore(db).Create(hh.ID, "Alice", "alice@example.com", model.RoleMember)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return NewNotificationStore(db), hh.ID, m.ID
}

func testNotification(hhID, recipientID int64) *model.Notification {
	return &model.Notification{
		RecipientID: recipientID,
		HouseholdID: hhID,
		Type:        model.NotifTypeBillReminder,
		Priority:    model.PriorityMedium,
		Title:       "Electric is due in 3 days",
		Body:        "Electric ($84.50) is due on Sep 15.",
		DedupKey:    model.DedupKey("bill_3day", "bill", 1),
		EntityType:  "bill",
		EntityID:    1,
		InApp:       true,
	}
}

func TestNotificationCreateAndGet(t *testing.T) {
	ns, hhID, alice := setupNotificationTestDB(t)

	n, err := ns.Create(testNotification(hhID, alice))
	if err != nil {
		t.Fatalf("create notification: %v", err)
	}
	if n.DedupKey != "bill_3day:bill:1" {
		t.Errorf("dedup key = %q, want bill_3day:bill:1", n.DedupKey)
	}
	if !n.InApp || n.EmailSent || n.PushSent {
		t.Errorf("channel flags = (%v, %v, %v), want (true, false, false)", n.InApp, n.EmailSent, n.PushSent)
	}
	if n.ReadAt != nil {
		t.Errorf("read_at = %v, want nil", n.ReadAt)
	}

	if err := ns.UpdateChannelFlags(n.ID, true, false); err != nil {
		t.Fatalf("update channel flags: %v", err)
	}
	got, _ := ns.GetByID(n.ID)
	if !got.EmailSent || got.PushSent {
		t.Errorf("flags after update = (%v, %v), want (true, false)", got.EmailSent, got.PushSent)
	}
}

func TestFindRecent(t *testing.T) {
	ns, hhID, alice := setupNotificationTestDB(t)

	key := model.DedupKey("bill_3day", "bill", 1)
	found, err := ns.FindRecent(alice, key, time.Now().Add(-23*time.Hour))
	if err != nil {
		t.Fatalf("find recent: %v", err)
	}
	if found {
		t.Error("empty table should find nothing")
	}

	if _, err := ns.Create(testNotification(hhID, alice)); err != nil {
		t.Fatalf("create notification: %v", err)
	}

	found, err = ns.FindRecent(alice, key, time.Now().Add(-23*time.Hour))
	if err != nil {
		t.Fatalf("find recent: %v", err)
	}
	if !found {
		t.Error("fresh notification should be found inside the lookback window")
	}

	// Different dedup key is independent
	found, _ = ns.FindRecent(alice, model.DedupKey("bill_due_today", "bill", 1), time.Now().Add(-23*time.Hour))
	if found {
		t.Error("different rule key should not match")
	}

	// Other recipients are independent
	found, _ = ns.FindRecent(alice+1, key, time.Now().Add(-23*time.Hour))
	if found {
		t.Error("other recipient should not match")
	}
}

func TestMarkReadAndListUnread(t *testing.T) {
	ns, hhID, alice := setupNotificationTestDB(t)

	first, _ := ns.Create(testNotification(hhID, alice))
	second := testNotification(hhID, alice)
	second.DedupKey = model.DedupKey("bill_due_today", "bill", 1)
	ns.Create(second)

	unread, err := ns.ListUnread(alice)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 2 {
		t.Fatalf("expected 2 unread, got %d", len(unread))
	}

	if err := ns.MarkRead(first.ID, alice, time.Now()); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, _ = ns.ListUnread(alice)
	if len(unread) != 1 {
		t.Fatalf("expected 1 unread after read, got %d", len(unread))
	}

	// Another recipient cannot mark it read
	if err := ns.MarkRead(unread[0].ID, alice+1, time.Now()); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	remaining, _ := ns.ListUnread(alice)
	if len(remaining) != 1 {
		t.Errorf("wrong recipient should not mark read, got %d unread", len(remaining))
	}
}

func TestPreferenceDefaults(t *testing.T) {
	ns, _, alice := setupNotificationTestDB(t)

	p, err := ns.GetPreference(alice, model.NotifTypeBillReminder)
	if err != nil {
		t.Fatalf("get preference: %v", err)
	}
	if !p.EmailEnabled || !p.PushEnabled {
		t.Errorf("reminder defaults = (%v, %v), want (true, true)", p.EmailEnabled, p.PushEnabled)
	}

	p, err = ns.GetPreference(alice, model.NotifTypeAnnouncement)
	if err != nil {
		t.Fatalf("get preference: %v", err)
	}
	if !p.EmailEnabled || p.PushEnabled {
		t.Errorf("announcement defaults = (%v, %v), want (true, false)", p.EmailEnabled, p.PushEnabled)
	}
}

func TestSetPreference(t *testing.T) {
	ns, _, alice := setupNotificationTestDB(t)

	pref := model.DeliveryPreference{
		UserID:           alice,
		NotificationType: model.NotifTypeChoreReminder,
		EmailEnabled:     false,
		PushEnabled:      true,
	}
	if err := ns.SetPreference(pref); err != nil {
		t.Fatalf("set preference: %v", err)
	}

	got, err := ns.GetPreference(alice, model.NotifTypeChoreReminder)
	if err != nil {
		t.Fatalf("get preference: %v", err)
	}
	if got.EmailEnabled || !got.PushEnabled {
		t.Errorf("preference = (%v, %v), want (false, true)", got.EmailEnabled, got.PushEnabled)
	}

	// Upsert overwrites
	pref.PushEnabled = false
	if err := ns.SetPreference(pref); err != nil {
		t.Fatalf("set preference again: %v", err)
	}
	got, _ = ns.GetPreference(alice, model.NotifTypeChoreReminder)
	if got.PushEnabled {
		t.Error("upsert should overwrite push toggle")
	}
}
