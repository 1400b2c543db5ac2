package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"assessment-service/internal/domain"
	"github.com/uptrace/bun"
)

// QuestionRepository stores questions in Postgres via bun. Soft deletion is
// handled by bun's soft-delete support on the deleted_at column, so reads
// never see deleted rows.
type QuestionRepository struct {
	db *bun.DB
}

func NewQuestionRepository(db *bun.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) Save(ctx context.Context, q *domain.Question) error {
	_, err := r.db.NewInsert().
		Model(q).
		On("CONFLICT (id) DO UPDATE").
		Set("exam_id = EXCLUDED.exam_id").
		Set("text = EXCLUDED.text").
		Set("type = EXCLUDED.type").
		Set("options = EXCLUDED.options").
		Set("correct_option = EXCLUDED.correct_option").
		Set("points = EXCLUDED.points").
		Set("active = EXCLUDED.active").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save question: %w", err)
	}
	return nil
}

func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*domain.Question, error) {
	question := new(domain.Question)
	err := r.db.NewSelect().Model(question).Where("q.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find question: %w", err)
	}
	return question, nil
}

func (r *QuestionRepository) FindByExam(ctx context.Context, examID string) ([]domain.Question, error) {
	var questions []domain.Question
	err := r.db.NewSelect().
		Model(&questions).
		Where("q.exam_id = ?", examID).
		Where("q.active").
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find exam questions: %w", err)
	}
	return questions, nil
}

func (r *QuestionRepository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().
		Model((*domain.Question)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (r *QuestionRepository) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*domain.Question)(nil)).Count(ctx)
}

func (r *QuestionRepository) CountActive(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*domain.Question)(nil)).Where("q.active").Count(ctx)
}
