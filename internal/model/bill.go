package model

import "time"

type Bill struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Name        string    `json:"name"`
	AmountCents int64     `json:"amount_cents"`
	DueDay      int       `json:"due_day"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type BillPayment struct {
	ID     int64     `json:"id"`
	BillID int64     `json:"bill_id"`
	Month  string    `json:"month"` // YYYY-MM
	PaidBy *int64    `json:"paid_by"`
	PaidAt time.Time `json:"paid_at"`
}
