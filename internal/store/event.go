package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/finchley/burrow/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `id, household_id, title, description, location, starts_at, ends_at, status, created_by, created_at, updated_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var createdBy sql.NullInt64
	err := scanner.Scan(
		&e.ID, &e.HouseholdID, &e.Title, &e.Description, &e.Location,
		&e.StartsAt, &e.EndsAt, &e.Status, &createdBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if createdBy.Valid {
		e.CreatedBy = &createdBy.Int64
	}
	return &e, nil
}

func (s *EventStore) Create(e *model.Event) (*model.Event, error) {
	if !e.EndsAt.After(e.StartsAt) {
		return nil, fmt.Errorf("event end must be after start")
	}
	if e.Status == "" {
		e.Status = model.EventDraft
	}
	var createdBy sql.NullInt64
	if e.CreatedBy != nil {
		createdBy = sql.NullInt64{Int64: *e.CreatedBy, Valid: true}
	}
	result, err := s.db.Exec(
		`INSERT INTO events (household_id, title, description, location, starts_at, ends_at, status, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.HouseholdID, e.Title, e.Description, e.Location,
		e.StartsAt.UTC(), e.EndsAt.UTC(), e.Status, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *EventStore) SetStatus(id int64, status model.EventStatus) (*model.Event, error) {
	_, err := s.db.Exec(
		`UPDATE events SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("set event status: %w", err)
	}
	return s.GetByID(id)
}

// ListPublishedBetween returns published events starting in [start, end),
// across all households.
func (s *EventStore) ListPublishedBetween(start, end time.Time) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events
		 WHERE status = ? AND starts_at >= ? AND starts_at < ?
		 ORDER BY starts_at ASC`,
		model.EventPublished, start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list published events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListOverlapping returns published or pending-approval events in the
// household overlapping [start, end) by strict interval overlap.
func (s *EventStore) ListOverlapping(householdID int64, start, end time.Time) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events
		 WHERE household_id = ? AND status IN (?, ?)
		 AND starts_at < ? AND ends_at > ?
		 ORDER BY starts_at ASC`,
		householdID, model.EventPublished, model.EventPendingApproval,
		end.UTC(), start.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list overlapping events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]model.Event, error) {
	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}
