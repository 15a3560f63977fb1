package schedule

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/finchley/burrow/internal/model"
	"github.com/finchley/burrow/internal/recurrence"
	"github.com/finchley/burrow/internal/store"
)

// Config tunes the assignment engine.
type Config struct {
	// ConflictRetries is how many alternate members rotation tries after a
	// same-day conflict before accepting the conflict.
	ConflictRetries int
	// MaxInstances caps how many forward instances a recurring chore
	// materializes.
	MaxInstances int
	// CompletionWindow is the trailing window for completion-rate scoring.
	CompletionWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		ConflictRetries:  1,
		MaxInstances:     12,
		CompletionWindow: 30 * 24 * time.Hour,
	}
}

// Service exposes the chore scheduling operations to the CRUD/API layer.
type Service struct {
	chores   *store.ChoreStore
	members  *store.MemberStore
	detector *Detector
	assigner *Assigner
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(chores *store.ChoreStore, members *store.MemberStore, rotation *store.RotationStore, events *store.EventStore, cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxInstances <= 0 {
		cfg.MaxInstances = DefaultConfig().MaxInstances
	}
	if cfg.CompletionWindow <= 0 {
		cfg.CompletionWindow = DefaultConfig().CompletionWindow
	}
	detector := NewDetector(chores, events)
	return &Service{
		chores:   chores,
		members:  members,
		detector: detector,
		assigner: NewAssigner(members, rotation, detector, cfg.ConflictRetries, logger),
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// Detector exposes the conflict checks for callers outside chore creation
// (event scheduling validation, the scorer path).
func (s *Service) Detector() *Detector {
	return s.detector
}

type CreateChoreInput struct {
	Title          string
	Description    string
	DueDate        *time.Time
	Priority       model.Priority
	Points         int
	RecurrenceRule string
	AssigneeID     *int64
}

// CreateResult is what chore creation hands back: the origin chore plus any
// recurrence instances materialized from it.
type CreateResult struct {
	Chore     *model.Chore
	Instances []model.Chore
}

// CreateChore creates a chore, assigning it by rotation when useRotation is
// set, and eagerly materializes forward instances for recurring chores.
func (s *Service) CreateChore(in CreateChoreInput, householdID, creatorID int64, useRotation bool) (*CreateResult, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrBusinessRule)
	}

	var pattern recurrence.Pattern
	if in.RecurrenceRule != "" {
		p, err := recurrence.Parse(in.RecurrenceRule)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBusinessRule, err)
		}
		if in.DueDate == nil {
			return nil, fmt.Errorf("%w: recurring chores need a due date", ErrBusinessRule)
		}
		pattern = p
	}

	assigneeID := in.AssigneeID
	if useRotation {
		id, err := s.assigner.NextAssignee(householdID, in.DueDate)
		if err != nil {
			return nil, err
		}
		assigneeID = &id
	} else if assigneeID != nil {
		if err := s.requireActiveMember(householdID, *assigneeID); err != nil {
			return nil, err
		}
	}

	chore, err := s.chores.Create(&model.Chore{
		HouseholdID:    householdID,
		Title:          in.Title,
		Description:    in.Description,
		AssigneeID:     assigneeID,
		CreatorID:      &creatorID,
		DueDate:        in.DueDate,
		Priority:       in.Priority,
		Points:         in.Points,
		RecurrenceRule: in.RecurrenceRule,
	})
	if err != nil {
		return nil, fmt.Errorf("create chore: %w", err)
	}

	result := &CreateResult{Chore: chore}
	if pattern != "" {
		instances, err := s.materialize(chore, pattern)
		if err != nil {
			return nil, err
		}
		result.Instances = instances
	}
	return result, nil
}

// materialize expands a recurring chore into forward instances, each dated
// one step after the previous and independently assigned by rotation.
func (s *Service) materialize(origin *model.Chore, pattern recurrence.Pattern) ([]model.Chore, error) {
	due := *origin.DueDate
	seen := map[string]bool{due.Format("2006-01-02"): true}

	var instances []model.Chore
	for i := 0; i < s.cfg.MaxInstances; i++ {
		due = pattern.Step(due)

		day := due.Format("2006-01-02")
		if seen[day] {
			continue
		}
		seen[day] = true

		instanceDue := due
		assigneeID, err := s.assigner.NextAssignee(origin.HouseholdID, &instanceDue)
		if err != nil {
			return nil, fmt.Errorf("materialize instance %d: %w", i+1, err)
		}

		instance, err := s.chores.Create(&model.Chore{
			HouseholdID: origin.HouseholdID,
			ParentID:    &origin.ID,
			Title:       origin.Title,
			Description: origin.Description,
			AssigneeID:  &assigneeID,
			CreatorID:   origin.CreatorID,
			DueDate:     &instanceDue,
			Priority:    origin.Priority,
			Points:      origin.Points,
		})
		if err != nil {
			return nil, fmt.Errorf("materialize instance %d: %w", i+1, err)
		}
		instances = append(instances, *instance)
	}

	s.logger.Info("materialized recurring chore",
		"chore_id", origin.ID, "pattern", pattern, "instances", len(instances))
	return instances, nil
}

// CompleteChore marks a chore done. Only the assignee, the creator, or a
// household admin may complete it.
func (s *Service) CompleteChore(choreID, userID int64, notes string) (*model.Chore, error) {
	chore, err := s.chores.GetByID(choreID)
	if err != nil {
		return nil, fmt.Errorf("complete chore: %w", err)
	}
	if chore == nil {
		return nil, fmt.Errorf("%w: chore %d", ErrNotFound, choreID)
	}
	if chore.Status == model.StatusCompleted {
		return nil, fmt.Errorf("%w: chore already completed", ErrBusinessRule)
	}
	if !chore.IsOpen() {
		return nil, fmt.Errorf("%w: chore is archived", ErrBusinessRule)
	}
	if err := s.requirePermission(chore, userID); err != nil {
		return nil, err
	}

	return s.chores.Complete(choreID, userID, notes, s.now())
}

// ReassignChore moves a chore to a new active member of the same household.
// Completed chores cannot be reassigned.
func (s *Service) ReassignChore(choreID, newAssigneeID, actingUserID int64) (*model.Chore, error) {
	chore, err := s.chores.GetByID(choreID)
	if err != nil {
		return nil, fmt.Errorf("reassign chore: %w", err)
	}
	if chore == nil {
		return nil, fmt.Errorf("%w: chore %d", ErrNotFound, choreID)
	}
	if chore.Status == model.StatusCompleted {
		return nil, fmt.Errorf("%w: cannot reassign a completed chore", ErrBusinessRule)
	}
	if !chore.IsOpen() {
		return nil, fmt.Errorf("%w: cannot reassign an archived chore", ErrBusinessRule)
	}
	if err := s.requirePermission(chore, actingUserID); err != nil {
		return nil, err
	}
	if err := s.requireActiveMember(chore.HouseholdID, newAssigneeID); err != nil {
		return nil, err
	}

	return s.chores.Reassign(choreID, newAssigneeID)
}

// ListChores returns the household's chores with the overdue state derived.
// Overdue is never written to the database; it is computed on read so a
// completed or rescheduled chore drops out of it immediately.
func (s *Service) ListChores(householdID int64) ([]model.Chore, error) {
	chores, err := s.chores.ListByHousehold(householdID)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	now := s.now()
	for i := range chores {
		chores[i].Status = chores[i].EffectiveStatus(now)
	}
	return chores, nil
}

// AssignmentResult reports the scorer's pick alongside every scored
// candidate, for the explicit "optimal assignment" query path.
type AssignmentResult struct {
	MemberID   int64       `json:"member_id"`
	Score      int         `json:"score"`
	Candidates []Candidate `json:"candidates"`
}

// OptimalAssignee scores every active member against a target due date and
// returns the best. Default chore creation uses rotation, not this.
func (s *Service) OptimalAssignee(householdID int64, dueDate time.Time) (*AssignmentResult, error) {
	members, err := s.members.ListActive(householdID)
	if err != nil {
		return nil, fmt.Errorf("optimal assignee: %w", err)
	}
	if len(members) == 0 {
		return nil, ErrNoActiveMembers
	}

	since := s.now().Add(-s.cfg.CompletionWindow)
	candidates := make([]Candidate, 0, len(members))
	for _, m := range members {
		open, err := s.chores.CountOpen(m.ID)
		if err != nil {
			return nil, fmt.Errorf("optimal assignee: %w", err)
		}
		assigned, completed, err := s.chores.CompletionStats(m.ID, since)
		if err != nil {
			return nil, fmt.Errorf("optimal assignee: %w", err)
		}
		rate := 0.5
		if assigned > 0 {
			rate = float64(completed) / float64(assigned)
		}
		conflicts, err := s.detector.countDayConflicts(m.ID, dueDate)
		if err != nil {
			return nil, fmt.Errorf("optimal assignee: %w", err)
		}
		candidates = append(candidates, Candidate{
			MemberID:       m.ID,
			OpenChores:     open,
			CompletionRate: rate,
			Conflicts:      conflicts,
		})
	}

	best, err := SelectBest(candidates)
	if err != nil {
		return nil, err
	}
	return &AssignmentResult{
		MemberID:   best.MemberID,
		Score:      Score(best),
		Candidates: candidates,
	}, nil
}

// ChoreAssignment is one row of a rotation preview.
type ChoreAssignment struct {
	Date       time.Time `json:"date"`
	MemberID   int64     `json:"member_id"`
	MemberName string    `json:"member_name"`
}

// RotationPreview projects who would receive a weekly chore over the next
// weeksAhead weeks if rotation ran without conflicts. Read-only.
func (s *Service) RotationPreview(householdID int64, weeksAhead int) ([]ChoreAssignment, error) {
	if weeksAhead <= 0 {
		weeksAhead = 4
	}

	order, err := s.assigner.PreviewOrder(householdID, weeksAhead)
	if err != nil {
		return nil, err
	}

	start := startOfDay(s.now())
	preview := make([]ChoreAssignment, 0, weeksAhead)
	for i, m := range order {
		preview = append(preview, ChoreAssignment{
			Date:       start.AddDate(0, 0, 7*(i+1)),
			MemberID:   m.ID,
			MemberName: m.Name,
		})
	}
	return preview, nil
}

func (s *Service) requirePermission(chore *model.Chore, userID int64) error {
	if chore.AssigneeID != nil && *chore.AssigneeID == userID {
		return nil
	}
	if chore.CreatorID != nil && *chore.CreatorID == userID {
		return nil
	}
	actor, err := s.members.GetByID(userID)
	if err != nil {
		return fmt.Errorf("check permission: %w", err)
	}
	if actor != nil && actor.HouseholdID == chore.HouseholdID && actor.IsAdmin() {
		return nil
	}
	return fmt.Errorf("%w: member %d cannot modify chore %d", ErrPermissionDenied, userID, chore.ID)
}

func (s *Service) requireActiveMember(householdID, memberID int64) error {
	member, err := s.members.GetByID(memberID)
	if err != nil {
		return fmt.Errorf("check member: %w", err)
	}
	if member == nil {
		return fmt.Errorf("%w: member %d", ErrNotFound, memberID)
	}
	if member.HouseholdID != householdID || !member.Active {
		return fmt.Errorf("%w: member %d is not an active member of household %d", ErrBusinessRule, memberID, householdID)
	}
	return nil
}
