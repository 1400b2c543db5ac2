package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"assessment-service/internal/domain"
)

// AssignmentRepository is a mutex-guarded in-memory implementation of
// app.AssignmentRepository.
type AssignmentRepository struct {
	mu          sync.RWMutex
	assignments map[string]domain.ExamAssignment
}

func NewAssignmentRepository() *AssignmentRepository {
	return &AssignmentRepository{assignments: make(map[string]domain.ExamAssignment)}
}

func (r *AssignmentRepository) Create(_ context.Context, a *domain.ExamAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments[a.ID] = *cloneAssignment(*a)
	return nil
}

func (r *AssignmentRepository) FindByID(_ context.Context, id string) (*domain.ExamAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assignments[id]
	if !ok || !a.DeletedAt.IsZero() {
		return nil, domain.ErrAssignmentNotFound
	}
	return cloneAssignment(a), nil
}

// MarkCompleted flips the completion flag under the lock; an already
// completed assignment reports false and keeps its original timestamp.
func (r *AssignmentRepository) MarkCompleted(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[id]
	if !ok || !a.DeletedAt.IsZero() {
		return false, domain.ErrAssignmentNotFound
	}
	if a.Completed {
		return false, nil
	}
	a.Completed = true
	completedAt := at
	a.CompletedAt = &completedAt
	r.assignments[id] = a
	return true, nil
}

func (r *AssignmentRepository) ByUser(ctx context.Context, userID string) ([]domain.ExamAssignment, error) {
	return r.filter(func(a domain.ExamAssignment) bool {
		return a.UserID == userID
	}), nil
}

func (r *AssignmentRepository) ByExam(ctx context.Context, examID string) ([]domain.ExamAssignment, error) {
	return r.filter(func(a domain.ExamAssignment) bool {
		return a.ExamID == examID
	}), nil
}

func (r *AssignmentRepository) PendingByUser(ctx context.Context, userID string) ([]domain.ExamAssignment, error) {
	return r.filter(func(a domain.ExamAssignment) bool {
		return a.UserID == userID && !a.Completed
	}), nil
}

func (r *AssignmentRepository) OverdueByUser(ctx context.Context, userID string, now time.Time) ([]domain.ExamAssignment, error) {
	return r.filter(func(a domain.ExamAssignment) bool {
		return a.UserID == userID && a.IsOverdue(now)
	}), nil
}

func (r *AssignmentRepository) CompletedByUser(ctx context.Context, userID string) ([]domain.ExamAssignment, error) {
	return r.filter(func(a domain.ExamAssignment) bool {
		return a.UserID == userID && a.Completed
	}), nil
}

func (r *AssignmentRepository) PendingForExam(ctx context.Context, userID, examID string) ([]domain.ExamAssignment, error) {
	return r.filter(func(a domain.ExamAssignment) bool {
		return a.UserID == userID && a.ExamID == examID && !a.Completed
	}), nil
}

func (r *AssignmentRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	matches, _ := r.ByUser(ctx, userID)
	return len(matches), nil
}

func (r *AssignmentRepository) CountCompletedByUser(ctx context.Context, userID string) (int, error) {
	matches, _ := r.CompletedByUser(ctx, userID)
	return len(matches), nil
}

func (r *AssignmentRepository) filter(keep func(domain.ExamAssignment) bool) []domain.ExamAssignment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ExamAssignment, 0)
	for _, a := range r.assignments {
		if a.DeletedAt.IsZero() && keep(a) {
			out = append(out, *cloneAssignment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.Before(out[j].AssignedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func cloneAssignment(a domain.ExamAssignment) *domain.ExamAssignment {
	out := a
	if a.DueDate != nil {
		due := *a.DueDate
		out.DueDate = &due
	}
	if a.CompletedAt != nil {
		at := *a.CompletedAt
		out.CompletedAt = &at
	}
	return &out
}
