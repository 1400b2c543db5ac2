package app

import (
	"context"
	"strings"
	"time"

	"assessment-service/internal/domain"
	"github.com/google/uuid"
)

// QuestionRepository persists question content (in-memory, Postgres,
// optionally fronted by a Redis cache).
type QuestionRepository interface {
	Save(ctx context.Context, q *domain.Question) error
	FindByID(ctx context.Context, id string) (*domain.Question, error)
	// FindByExam returns the exam's active questions in a stable order.
	FindByExam(ctx context.Context, examID string) ([]domain.Question, error)
	SoftDelete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
}

// ExamRepository exposes the catalogue metadata the engine reads.
type ExamRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Exam, error)
	Count(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
}

// QuestionBank owns question content and the scoring primitives built on it.
type QuestionBank struct {
	questions QuestionRepository
	clock     func() time.Time
}

func NewQuestionBank(questions QuestionRepository) *QuestionBank {
	return NewQuestionBankWithClock(questions, time.Now)
}

// NewQuestionBankWithClock allows deterministic timestamps in tests.
func NewQuestionBankWithClock(questions QuestionRepository, now func() time.Time) *QuestionBank {
	return &QuestionBank{questions: questions, clock: now}
}

// Save upserts a question after validating its content. A question
// without an ID is treated as new and assigned one.
func (b *QuestionBank) Save(ctx context.Context, q *domain.Question) error {
	if err := checkIdent("examId", q.ExamID); err != nil {
		return err
	}
	if strings.TrimSpace(q.Text) == "" {
		return domain.Validation("question text must not be empty")
	}
	if !q.Type.Valid() {
		return domain.Validation("unknown question type %q", q.Type)
	}
	if len(q.Options) == 0 {
		return domain.Validation("question must have at least one option")
	}
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		return domain.Validation("correct option index %d is out of range for %d options", q.CorrectOption, len(q.Options))
	}
	if q.Points <= 0 {
		return domain.Validation("question points must be positive")
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
		q.CreatedAt = b.clock()
	}
	return b.questions.Save(ctx, q)
}

// FindByID looks up a single question, soft-deleted ones excluded.
func (b *QuestionBank) FindByID(ctx context.Context, id string) (*domain.Question, error) {
	if err := checkIdent("questionId", id); err != nil {
		return nil, err
	}
	return b.questions.FindByID(ctx, id)
}

// FindByExam returns the exam's active questions in a stable order.
func (b *QuestionBank) FindByExam(ctx context.Context, examID string) ([]domain.Question, error) {
	if err := checkIdent("examId", examID); err != nil {
		return nil, err
	}
	return b.questions.FindByExam(ctx, examID)
}

// Delete soft-deletes a question so historical attempts stay auditable.
func (b *QuestionBank) Delete(ctx context.Context, id string) error {
	if err := checkIdent("questionId", id); err != nil {
		return err
	}
	return b.questions.SoftDelete(ctx, id)
}

// IsCorrect reports whether the selected index answers the question. An
// out-of-range or negative index is simply incorrect, never an error, so
// a bad answer scores zero without failing the whole submission.
func (b *QuestionBank) IsCorrect(q domain.Question, selected int) bool {
	return selected == q.CorrectOption
}

// ScoreFor returns the question's points for a correct selection, else 0.
func (b *QuestionBank) ScoreFor(q domain.Question, selected int) int {
	if b.IsCorrect(q, selected) {
		return q.Points
	}
	return 0
}
