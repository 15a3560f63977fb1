package model

import "time"

type EventStatus string

const (
	EventDraft           EventStatus = "draft"
	EventPendingApproval EventStatus = "pending_approval"
	EventPublished       EventStatus = "published"
)

type Event struct {
	ID          int64       `json:"id"`
	HouseholdID int64       `json:"household_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	StartsAt    time.Time   `json:"starts_at"`
	EndsAt      time.Time   `json:"ends_at"`
	Status      EventStatus `json:"status"`
	CreatedBy   *int64      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
