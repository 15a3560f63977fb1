package store

import (
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/finchley/burrow/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

const memberCols = `id, household_id, name, email, role, active, pin IS NOT NULL, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	err := scanner.Scan(
		&m.ID, &m.HouseholdID, &m.Name, &m.Email, &m.Role, &m.Active, &m.HasPIN,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MemberStore) Create(householdID int64, name, email string, role model.Role) (*model.Member, error) {
	result, err := s.db.Exec(
		`INSERT INTO members (household_id, name, email, role) VALUES (?, ?, ?, ?)`,
		householdID, name, email, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MemberStore) GetByID(id int64) (*model.Member, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// ListActive returns the household's active members ordered by id. Rotation
// depends on this ordering being stable.
func (s *MemberStore) ListActive(householdID int64) ([]model.Member, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM members WHERE household_id = ? AND active = 1 ORDER BY id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *MemberStore) SetActive(id int64, active bool) error {
	_, err := s.db.Exec(
		`UPDATE members SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, id,
	)
	if err != nil {
		return fmt.Errorf("set member active: %w", err)
	}
	return nil
}

// SetPIN hashes and stores a member's PIN. An empty PIN clears it.
func (s *MemberStore) SetPIN(id int64, pin string) error {
	var hash sql.NullString
	if pin != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash pin: %w", err)
		}
		hash = sql.NullString{String: string(h), Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE members SET pin = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		hash, id,
	)
	if err != nil {
		return fmt.Errorf("set member pin: %w", err)
	}
	return nil
}

// VerifyPIN checks a PIN against the stored hash. Members without a PIN
// always verify false.
func (s *MemberStore) VerifyPIN(id int64, pin string) (bool, error) {
	var hash sql.NullString
	err := s.db.QueryRow(`SELECT pin FROM members WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get member pin: %w", err)
	}
	if !hash.Valid {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(hash.String), []byte(pin)) == nil, nil
}
