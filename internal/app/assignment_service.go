package app

import (
	"context"
	"time"

	"assessment-service/internal/domain"
	"github.com/google/uuid"
)

// AssignmentRepository persists exam assignments. All read queries exclude
// soft-deleted rows.
type AssignmentRepository interface {
	Create(ctx context.Context, a *domain.ExamAssignment) error
	FindByID(ctx context.Context, id string) (*domain.ExamAssignment, error)
	// MarkCompleted flips the completion flag with a guard on the current
	// state. It reports false when the assignment was already completed,
	// so a concurrent duplicate call never moves completed_at.
	MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error)
	ByUser(ctx context.Context, userID string) ([]domain.ExamAssignment, error)
	ByExam(ctx context.Context, examID string) ([]domain.ExamAssignment, error)
	PendingByUser(ctx context.Context, userID string) ([]domain.ExamAssignment, error)
	OverdueByUser(ctx context.Context, userID string, now time.Time) ([]domain.ExamAssignment, error)
	CompletedByUser(ctx context.Context, userID string) ([]domain.ExamAssignment, error)
	PendingForExam(ctx context.Context, userID, examID string) ([]domain.ExamAssignment, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	CountCompletedByUser(ctx context.Context, userID string) (int, error)
}

// AssignmentService creates and tracks exam assignments. The only mutation
// after creation is the one-way Assigned → Completed transition.
type AssignmentService struct {
	assignments AssignmentRepository
	clock       func() time.Time
}

func NewAssignmentService(assignments AssignmentRepository) *AssignmentService {
	return NewAssignmentServiceWithClock(assignments, time.Now)
}

// NewAssignmentServiceWithClock allows deterministic timestamps in tests.
func NewAssignmentServiceWithClock(assignments AssignmentRepository, now func() time.Time) *AssignmentService {
	return &AssignmentService{assignments: assignments, clock: now}
}

// Assign creates a new assignment of examID to userID. Assigning the same
// exam to the same user again is allowed; re-assignment after completion
// is a supported admin flow.
func (s *AssignmentService) Assign(ctx context.Context, userID, examID, assignedBy string, dueDate *time.Time) (*domain.ExamAssignment, error) {
	if err := checkIdent("userId", userID); err != nil {
		return nil, err
	}
	if err := checkIdent("examId", examID); err != nil {
		return nil, err
	}
	if err := checkIdent("assignedBy", assignedBy); err != nil {
		return nil, err
	}

	assignment := &domain.ExamAssignment{
		ID:         uuid.NewString(),
		UserID:     userID,
		ExamID:     examID,
		AssignedBy: assignedBy,
		AssignedAt: s.clock(),
		DueDate:    dueDate,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// MarkCompleted transitions the assignment to its terminal state. Calling
// it on an already-completed assignment is a no-op that returns the stored
// record; completed_at keeps its first-set value.
func (s *AssignmentService) MarkCompleted(ctx context.Context, id string) (*domain.ExamAssignment, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment.Completed {
		return assignment, nil
	}

	now := s.clock()
	updated, err := s.assignments.MarkCompleted(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Lost the race to a concurrent completion; the stored timestamp wins.
		return s.assignments.FindByID(ctx, id)
	}
	assignment.Completed = true
	assignment.CompletedAt = &now
	return assignment, nil
}

func (s *AssignmentService) Get(ctx context.Context, id string) (*domain.ExamAssignment, error) {
	return s.assignments.FindByID(ctx, id)
}

func (s *AssignmentService) ByUser(ctx context.Context, userID string) ([]domain.ExamAssignment, error) {
	if err := checkIdent("userId", userID); err != nil {
		return nil, err
	}
	return s.assignments.ByUser(ctx, userID)
}

func (s *AssignmentService) ByExam(ctx context.Context, examID string) ([]domain.ExamAssignment, error) {
	if err := checkIdent("examId", examID); err != nil {
		return nil, err
	}
	return s.assignments.ByExam(ctx, examID)
}

func (s *AssignmentService) PendingByUser(ctx context.Context, userID string) ([]domain.ExamAssignment, error) {
	if err := checkIdent("userId", userID); err != nil {
		return nil, err
	}
	return s.assignments.PendingByUser(ctx, userID)
}

// OverdueByUser returns pending assignments whose due date has passed at
// call time. Overdue is never stored; it is evaluated against the clock
// on every call.
func (s *AssignmentService) OverdueByUser(ctx context.Context, userID string) ([]domain.ExamAssignment, error) {
	if err := checkIdent("userId", userID); err != nil {
		return nil, err
	}
	return s.assignments.OverdueByUser(ctx, userID, s.clock())
}

func (s *AssignmentService) CompletedByUser(ctx context.Context, userID string) ([]domain.ExamAssignment, error) {
	if err := checkIdent("userId", userID); err != nil {
		return nil, err
	}
	return s.assignments.CompletedByUser(ctx, userID)
}

// PendingFor lists the user's not-yet-completed assignments of one exam,
// for the orchestration step that completes them after a submission.
func (s *AssignmentService) PendingFor(ctx context.Context, userID, examID string) ([]domain.ExamAssignment, error) {
	if err := checkIdent("userId", userID); err != nil {
		return nil, err
	}
	if err := checkIdent("examId", examID); err != nil {
		return nil, err
	}
	return s.assignments.PendingForExam(ctx, userID, examID)
}
