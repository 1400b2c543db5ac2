package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"assessment-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const uniqueViolation = "23505"

// AttemptRepository stores exam attempts in Postgres via bun. The
// exam_attempts_one_active partial unique index serializes concurrent
// starts for the same (user, exam) pair across service instances; a
// violation surfaces as domain.ErrActiveAttempt.
type AttemptRepository struct {
	db *bun.DB
}

func NewAttemptRepository(db *bun.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Create(ctx context.Context, a *domain.ExamAttempt) error {
	_, err := r.db.NewInsert().Model(a).Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
			return domain.ErrActiveAttempt
		}
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

func (r *AttemptRepository) FindByID(ctx context.Context, id string) (*domain.ExamAttempt, error) {
	attempt := new(domain.ExamAttempt)
	err := r.db.NewSelect().Model(attempt).Where("at.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	return attempt, nil
}

func (r *AttemptRepository) FindActive(ctx context.Context, userID, examID string) (*domain.ExamAttempt, error) {
	attempt := new(domain.ExamAttempt)
	err := r.db.NewSelect().
		Model(attempt).
		Where("at.user_id = ?", userID).
		Where("at.exam_id = ?", examID).
		Where("at.completed_at IS NULL").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active attempt: %w", err)
	}
	return attempt, nil
}

// Complete writes the terminal state guarded on completed_at IS NULL, so a
// second submission can never overwrite the first score.
func (r *AttemptRepository) Complete(ctx context.Context, id string, score int, passed bool, at time.Time) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*domain.ExamAttempt)(nil)).
		Set("score = ?", score).
		Set("passed = ?", passed).
		Set("completed_at = ?", at).
		Where("id = ?", id).
		Where("completed_at IS NULL").
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("complete attempt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *AttemptRepository) ByUser(ctx context.Context, userID string) ([]domain.ExamAttempt, error) {
	var attempts []domain.ExamAttempt
	err := r.db.NewSelect().
		Model(&attempts).
		Where("at.user_id = ?", userID).
		Order("started_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("attempts by user: %w", err)
	}
	return attempts, nil
}

func (r *AttemptRepository) CompletedByExam(ctx context.Context, examID string) ([]domain.ExamAttempt, error) {
	var attempts []domain.ExamAttempt
	err := r.db.NewSelect().
		Model(&attempts).
		Where("at.exam_id = ?", examID).
		Where("at.completed_at IS NOT NULL").
		Order("started_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("completed attempts by exam: %w", err)
	}
	return attempts, nil
}
