package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"assessment-service/internal/domain"
)

// QuestionRepository is a mutex-guarded in-memory implementation of
// app.QuestionRepository, the default when no Postgres is configured.
type QuestionRepository struct {
	mu        sync.RWMutex
	clock     func() time.Time
	questions map[string]domain.Question
}

func NewQuestionRepository() *QuestionRepository {
	return &QuestionRepository{
		clock:     time.Now,
		questions: make(map[string]domain.Question),
	}
}

func (r *QuestionRepository) Save(_ context.Context, q *domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *q
	if existing, ok := r.questions[q.ID]; ok && stored.CreatedAt.IsZero() {
		stored.CreatedAt = existing.CreatedAt
	}
	stored.Options = append([]string(nil), q.Options...)
	r.questions[q.ID] = stored
	return nil
}

func (r *QuestionRepository) FindByID(_ context.Context, id string) (*domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.questions[id]
	if !ok || !q.DeletedAt.IsZero() {
		return nil, domain.ErrQuestionNotFound
	}
	return cloneQuestion(q), nil
}

func (r *QuestionRepository) FindByExam(_ context.Context, examID string) ([]domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Question, 0)
	for _, q := range r.questions {
		if q.ExamID != examID || !q.Active || !q.DeletedAt.IsZero() {
			continue
		}
		out = append(out, *cloneQuestion(q))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *QuestionRepository) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok || !q.DeletedAt.IsZero() {
		return domain.ErrQuestionNotFound
	}
	q.DeletedAt = r.clock()
	r.questions[id] = q
	return nil
}

func (r *QuestionRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, q := range r.questions {
		if q.DeletedAt.IsZero() {
			n++
		}
	}
	return n, nil
}

func (r *QuestionRepository) CountActive(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, q := range r.questions {
		if q.DeletedAt.IsZero() && q.Active {
			n++
		}
	}
	return n, nil
}

func cloneQuestion(q domain.Question) *domain.Question {
	out := q
	out.Options = append([]string(nil), q.Options...)
	return &out
}
