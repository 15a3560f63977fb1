package store

import (
	"database/sql"
	"fmt"

	"github.com/finchley/burrow/internal/model"
)

type BillStore struct {
	db *sql.DB
}

func NewBillStore(db *sql.DB) *BillStore {
	return &BillStore{db: db}
}

const billCols = `id, household_id, name, amount_cents, due_day, active, created_at, updated_at`

func scanBill(scanner interface{ Scan(...any) error }) (*model.Bill, error) {
	var b model.Bill
	err := scanner.Scan(
		&b.ID, &b.HouseholdID, &b.Name, &b.AmountCents, &b.DueDay, &b.Active,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *BillStore) Create(householdID int64, name string, amountCents int64, dueDay int) (*model.Bill, error) {
	if dueDay < 1 || dueDay > 31 {
		return nil, fmt.Errorf("due day %d out of range", dueDay)
	}
	result, err := s.db.Exec(
		`INSERT INTO bills (household_id, name, amount_cents, due_day) VALUES (?, ?, ?, ?)`,
		householdID, name, amountCents, dueDay,
	)
	if err != nil {
		return nil, fmt.Errorf("insert bill: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *BillStore) GetByID(id int64) (*model.Bill, error) {
	row := s.db.QueryRow(`SELECT `+billCols+` FROM bills WHERE id = ?`, id)
	b, err := scanBill(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	return b, nil
}

func (s *BillStore) ListActive() ([]model.Bill, error) {
	rows, err := s.db.Query(`SELECT ` + billCols + ` FROM bills WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active bills: %w", err)
	}
	defer rows.Close()

	var bills []model.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, *b)
	}
	return bills, rows.Err()
}

func (s *BillStore) SetActive(id int64, active bool) error {
	_, err := s.db.Exec(
		`UPDATE bills SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, id,
	)
	if err != nil {
		return fmt.Errorf("set bill active: %w", err)
	}
	return nil
}

// RecordPayment marks a bill paid for a billing month ("2026-08"). Paying the
// same month twice is a no-op.
func (s *BillStore) RecordPayment(billID int64, month string, paidBy *int64) error {
	var by sql.NullInt64
	if paidBy != nil {
		by = sql.NullInt64{Int64: *paidBy, Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO bill_payments (bill_id, month, paid_by) VALUES (?, ?, ?)`,
		billID, month, by,
	)
	if err != nil {
		return fmt.Errorf("record bill payment: %w", err)
	}
	return nil
}

// IsPaid reports whether a payment exists for the bill in the given month.
func (s *BillStore) IsPaid(billID int64, month string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM bill_payments WHERE bill_id = ? AND month = ?`,
		billID, month,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check bill payment: %w", err)
	}
	return count > 0, nil
}
