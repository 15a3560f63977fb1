package store

import (
	"database/sql"
	"fmt"
)

// RotationStore holds the per-household round-robin cursor: the id of the
// member who most recently received a rotation assignment. Keeping the cursor
// explicit avoids re-deriving it from chore history on every assignment.
type RotationStore struct {
	db *sql.DB
}

func NewRotationStore(db *sql.DB) *RotationStore {
	return &RotationStore{db: db}
}

// Get returns the last-assigned member id for a household. The second return
// is false when no assignment has been recorded yet.
func (s *RotationStore) Get(householdID int64) (int64, bool, error) {
	var memberID int64
	err := s.db.QueryRow(
		`SELECT last_member_id FROM rotation_cursors WHERE household_id = ?`,
		householdID,
	).Scan(&memberID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get rotation cursor: %w", err)
	}
	return memberID, true, nil
}

func (s *RotationStore) Set(householdID, memberID int64) error {
	_, err := s.db.Exec(
		`INSERT INTO rotation_cursors (household_id, last_member_id) VALUES (?, ?)
		 ON CONFLICT(household_id) DO UPDATE SET last_member_id = excluded.last_member_id,
		 updated_at = CURRENT_TIMESTAMP`,
		householdID, memberID,
	)
	if err != nil {
		return fmt.Errorf("set rotation cursor: %w", err)
	}
	return nil
}
