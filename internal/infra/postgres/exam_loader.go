package postgres

import (
	"context"
	"errors"
	"fmt"

	"assessment-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ExamRepository reads exam catalogue metadata straight through pgx; the
// engine never writes exams, so there is no bun model traffic here.
type ExamRepository struct {
	pool *pgxpool.Pool
}

func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func (r *ExamRepository) FindByID(ctx context.Context, id string) (*domain.Exam, error) {
	exam := &domain.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, duration_minutes, passing_score_percentage, is_active
		 FROM exams WHERE id=$1`, id).
		Scan(&exam.ID, &exam.Title, &exam.Description, &exam.DurationMinutes,
			&exam.PassingScorePercentage, &exam.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}
	return exam, nil
}

func (r *ExamRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM exams`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count exams: %w", err)
	}
	return n, nil
}

func (r *ExamRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM exams WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active exams: %w", err)
	}
	return n, nil
}
