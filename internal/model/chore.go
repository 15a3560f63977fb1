package model

import "time"

type ChoreStatus string

const (
	StatusPending    ChoreStatus = "pending"
	StatusInProgress ChoreStatus = "in_progress"
	StatusCompleted  ChoreStatus = "completed"
	StatusOverdue    ChoreStatus = "overdue"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Chore struct {
	ID              int64       `json:"id"`
	HouseholdID     int64       `json:"household_id"`
	ParentID        *int64      `json:"parent_id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	AssigneeID      *int64      `json:"assignee_id"`
	CreatorID       *int64      `json:"creator_id"`
	DueDate         *time.Time  `json:"due_date"`
	Status          ChoreStatus `json:"status"`
	Priority        Priority    `json:"priority"`
	Points          int         `json:"points"`
	RecurrenceRule  string      `json:"recurrence_rule"`
	CompletedAt     *time.Time  `json:"completed_at"`
	CompletedBy     *int64      `json:"completed_by"`
	CompletionNotes string      `json:"completion_notes"`
	Archived        bool        `json:"archived"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// EffectiveStatus derives the overdue state. Overdue is never persisted:
// a chore is overdue whenever it is not completed and its due date has passed.
func (c Chore) EffectiveStatus(now time.Time) ChoreStatus {
	if c.Status == StatusCompleted {
		return StatusCompleted
	}
	if c.DueDate != nil && c.DueDate.Before(now) {
		return StatusOverdue
	}
	return c.Status
}

// IsOpen reports whether the chore still counts toward its assignee's workload.
func (c Chore) IsOpen() bool {
	return c.Status != StatusCompleted && !c.Archived
}
