package memory

import (
	"context"
	"sync"

	"assessment-service/internal/domain"
)

// ExamRepository is an in-memory exam catalogue (useful for tests/demos).
type ExamRepository struct {
	mu    sync.RWMutex
	exams map[string]domain.Exam
}

func NewExamRepository(exams ...domain.Exam) *ExamRepository {
	r := &ExamRepository{exams: make(map[string]domain.Exam, len(exams))}
	for _, e := range exams {
		r.exams[e.ID] = e
	}
	return r
}

// Put seeds or replaces an exam.
func (r *ExamRepository) Put(exam domain.Exam) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exams[exam.ID] = exam
}

func (r *ExamRepository) FindByID(_ context.Context, id string) (*domain.Exam, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exam, ok := r.exams[id]
	if !ok {
		return nil, domain.ErrExamNotFound
	}
	return &exam, nil
}

func (r *ExamRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.exams), nil
}

func (r *ExamRepository) CountActive(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.exams {
		if e.IsActive {
			n++
		}
	}
	return n, nil
}
