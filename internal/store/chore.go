package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/finchley/burrow/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

const choreCols = `id, household_id, parent_id, title, description, assignee_id, creator_id,
	due_date, status, priority, points, recurrence_rule, completed_at, completed_by,
	completion_notes, archived, created_at, updated_at`

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var parentID, assigneeID, creatorID, completedBy sql.NullInt64
	var dueDate, completedAt sql.NullTime

	err := scanner.Scan(
		&c.ID, &c.HouseholdID, &parentID, &c.Title, &c.Description, &assigneeID, &creatorID,
		&dueDate, &c.Status, &c.Priority, &c.Points, &c.RecurrenceRule, &completedAt,
		&completedBy, &c.CompletionNotes, &c.Archived, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	if assigneeID.Valid {
		c.AssigneeID = &assigneeID.Int64
	}
	if creatorID.Valid {
		c.CreatorID = &creatorID.Int64
	}
	if dueDate.Valid {
		t := dueDate.Time
		c.DueDate = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		c.CompletedAt = &t
	}
	if completedBy.Valid {
		c.CompletedBy = &completedBy.Int64
	}
	return &c, nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}

func (s *ChoreStore) Create(c *model.Chore) (*model.Chore, error) {
	if c.Status == "" {
		c.Status = model.StatusPending
	}
	if c.Priority == "" {
		c.Priority = model.PriorityMedium
	}
	result, err := s.db.Exec(
		`INSERT INTO chores (household_id, parent_id, title, description, assignee_id, creator_id,
		 due_date, status, priority, points, recurrence_rule)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.HouseholdID, nullInt(c.ParentID), c.Title, c.Description,
		nullInt(c.AssigneeID), nullInt(c.CreatorID), nullTime(c.DueDate),
		c.Status, c.Priority, c.Points, c.RecurrenceRule,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) ListByHousehold(householdID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE household_id = ? AND archived = 0
		 ORDER BY due_date ASC, id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

// CountOpenOnDay counts incomplete chores for an assignee with a due date in
// [dayStart, dayEnd). This is the same-day conflict check.
func (s *ChoreStore) CountOpenOnDay(assigneeID int64, dayStart, dayEnd time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM chores
		 WHERE assignee_id = ? AND status != ? AND archived = 0
		 AND due_date >= ? AND due_date < ?`,
		assigneeID, model.StatusCompleted, dayStart.UTC(), dayEnd.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open chores on day: %w", err)
	}
	return count, nil
}

// CountOpen counts all incomplete chores assigned to a member (workload).
func (s *ChoreStore) CountOpen(assigneeID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM chores WHERE assignee_id = ? AND status != ? AND archived = 0`,
		assigneeID, model.StatusCompleted,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open chores: %w", err)
	}
	return count, nil
}

// CompletionStats returns how many chores were assigned to a member since the
// given time and how many of those are completed.
func (s *ChoreStore) CompletionStats(assigneeID int64, since time.Time) (assigned, completed int, err error) {
	err = s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		 FROM chores WHERE assignee_id = ? AND created_at >= ?`,
		model.StatusCompleted, assigneeID, since.UTC(),
	).Scan(&assigned, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("completion stats: %w", err)
	}
	return assigned, completed, nil
}

func (s *ChoreStore) Complete(id, completedBy int64, notes string, at time.Time) (*model.Chore, error) {
	_, err := s.db.Exec(
		`UPDATE chores SET status = ?, completed_at = ?, completed_by = ?, completion_notes = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.StatusCompleted, at.UTC(), completedBy, notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("complete chore: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) Reassign(id, assigneeID int64) (*model.Chore, error) {
	_, err := s.db.Exec(
		`UPDATE chores SET assignee_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		assigneeID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("reassign chore: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) SetStatus(id int64, status model.ChoreStatus) (*model.Chore, error) {
	_, err := s.db.Exec(
		`UPDATE chores SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("set chore status: %w", err)
	}
	return s.GetByID(id)
}

// ListOverdue returns incomplete chores with a due date before now, across
// all households.
func (s *ChoreStore) ListOverdue(now time.Time) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores
		 WHERE status != ? AND archived = 0 AND due_date IS NOT NULL AND due_date < ?
		 ORDER BY due_date ASC`,
		model.StatusCompleted, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list overdue chores: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

// ListCompletedBefore returns completed, not-yet-archived chores finished
// before the cutoff. Used by the history archiver.
func (s *ChoreStore) ListCompletedBefore(cutoff time.Time) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores
		 WHERE status = ? AND archived = 0 AND completed_at IS NOT NULL AND completed_at < ?
		 ORDER BY completed_at ASC`,
		model.StatusCompleted, cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list completed chores: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

// MarkArchived flags chores as archived. Archived chores drop out of every
// scheduling query but stay referenced by history.
func (s *ChoreStore) MarkArchived(ids []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.Exec(`UPDATE chores SET archived = 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("mark archived: %w", err)
		}
	}
	return tx.Commit()
}

func collectChores(rows *sql.Rows) ([]model.Chore, error) {
	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}
