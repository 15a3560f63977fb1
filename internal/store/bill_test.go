package store

import (
	"testing"

	"github.com/finchley/burrow/internal/database"
)

func setupBillTestDB(t *testing.T) (*BillStore, int64) {
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
	return NewBillStore(db), hh.ID
}

func TestBillCreate(t *testing.T) {
	bs, hhID := setupBillTestDB(t)

	bill, err := bs.Create(hhID, "Electric", 8450, 15)
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if bill.Name != "Electric" {
		t.Errorf("name = %q, want Electric", bill.Name)
	}
	if bill.AmountCents != 8450 {
		t.Errorf("amount = %d, want 8450", bill.AmountCents)
	}
	if bill.DueDay != 15 {
		t.Errorf("due day = %d, want 15", bill.DueDay)
	}
	if !bill.Active {
		t.Error("new bill should be active")
	}

	for _, day := range []int{0, 32, -1} {
		if _, err := bs.Create(hhID, "Bad", 100, day); err == nil {
			t.Errorf("due day %d should be rejected", day)
		}
	}
}

func TestBillListActive(t *testing.T) {
	bs, hhID := setupBillTestDB(t)

	a, _ := bs.Create(hhID, "Rent", 120000, 1)
	b, _ := bs.Create(hhID, "Internet", 6500, 20)

	if err := bs.SetActive(a.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	bills, err := bs.ListActive()
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(bills) != 1 || bills[0].ID != b.ID {
		t.Fatalf("expected only bill %d active, got %+v", b.ID, bills)
	}
}

func TestBillPayments(t *testing.T) {
	bs, hhID := setupBillTestDB(t)

	bill, _ := bs.Create(hhID, "Water", 3200, 10)

	paid, err := bs.IsPaid(bill.ID, "2026-09")
	if err != nil {
		t.Fatalf("is paid: %v", err)
	}
	if paid {
		t.Error("unpaid bill should not report paid")
	}

	if err := bs.RecordPayment(bill.ID, "2026-09", nil); err != nil {
		t.Fatalf("record payment: %v", err)
	}
	// Recording the same month again is a no-op
	if err := bs.RecordPayment(bill.ID, "2026-09", nil); err != nil {
		t.Fatalf("record payment twice: %v", err)
	}

	paid, err = bs.IsPaid(bill.ID, "2026-09")
	if err != nil {
		t.Fatalf("is paid: %v", err)
	}
	if !paid {
		t.Error("bill should report paid for 2026-09")
	}

	// A payment covers one billing month only
	paid, _ = bs.IsPaid(bill.ID, "2026-10")
	if paid {
		t.Error("payment for 2026-09 should not cover 2026-10")
	}
}
