package store

import (
	"database/sql"
	"fmt"

	"github.com/finchley/burrow/internal/model"
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func (s *HouseholdStore) Create(name string) (*model.Household, error) {
	result, err := s.db.Exec(`INSERT INTO households (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) GetByID(id int64) (*model.Household, error) {
	var h model.Household
	err := s.db.QueryRow(
		`SELECT id, name, created_at, updated_at FROM households WHERE id = ?`, id,
	).Scan(&h.ID, &h.Name, &h.CreatedAt, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return &h, nil
}
