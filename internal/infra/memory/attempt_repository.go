package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"assessment-service/internal/domain"
)

// AttemptRepository is a mutex-guarded in-memory implementation of
// app.AttemptRepository. The single-active-attempt guarantee is enforced
// under the same lock that inserts, mirroring what the Postgres partial
// unique index provides across instances.
type AttemptRepository struct {
	mu       sync.RWMutex
	attempts map[string]domain.ExamAttempt
}

func NewAttemptRepository() *AttemptRepository {
	return &AttemptRepository{attempts: make(map[string]domain.ExamAttempt)}
}

func (r *AttemptRepository) Create(_ context.Context, a *domain.ExamAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.attempts {
		if existing.UserID == a.UserID && existing.ExamID == a.ExamID &&
			!existing.IsCompleted() && existing.DeletedAt.IsZero() {
			return domain.ErrActiveAttempt
		}
	}
	r.attempts[a.ID] = *cloneAttempt(*a)
	return nil
}

func (r *AttemptRepository) FindByID(_ context.Context, id string) (*domain.ExamAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.attempts[id]
	if !ok || !a.DeletedAt.IsZero() {
		return nil, domain.ErrAttemptNotFound
	}
	return cloneAttempt(a), nil
}

func (r *AttemptRepository) FindActive(_ context.Context, userID, examID string) (*domain.ExamAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.attempts {
		if a.UserID == userID && a.ExamID == examID && !a.IsCompleted() && a.DeletedAt.IsZero() {
			return cloneAttempt(a), nil
		}
	}
	return nil, domain.ErrAttemptNotFound
}

// Complete writes the scored terminal state; a completed attempt reports
// false and is left untouched.
func (r *AttemptRepository) Complete(_ context.Context, id string, score int, passed bool, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok || !a.DeletedAt.IsZero() {
		return false, domain.ErrAttemptNotFound
	}
	if a.IsCompleted() {
		return false, nil
	}
	completedAt := at
	a.CompletedAt = &completedAt
	a.Score = &score
	a.Passed = &passed
	r.attempts[id] = a
	return true, nil
}

func (r *AttemptRepository) ByUser(_ context.Context, userID string) ([]domain.ExamAttempt, error) {
	return r.filter(func(a domain.ExamAttempt) bool {
		return a.UserID == userID
	}), nil
}

func (r *AttemptRepository) CompletedByExam(_ context.Context, examID string) ([]domain.ExamAttempt, error) {
	return r.filter(func(a domain.ExamAttempt) bool {
		return a.ExamID == examID && a.IsCompleted()
	}), nil
}

func (r *AttemptRepository) filter(keep func(domain.ExamAttempt) bool) []domain.ExamAttempt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ExamAttempt, 0)
	for _, a := range r.attempts {
		if a.DeletedAt.IsZero() && keep(a) {
			out = append(out, *cloneAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func cloneAttempt(a domain.ExamAttempt) *domain.ExamAttempt {
	out := a
	if a.CompletedAt != nil {
		at := *a.CompletedAt
		out.CompletedAt = &at
	}
	if a.Score != nil {
		score := *a.Score
		out.Score = &score
	}
	if a.Passed != nil {
		passed := *a.Passed
		out.Passed = &passed
	}
	return &out
}
