package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"assessment-service/internal/domain"
	"github.com/uptrace/bun"
)

// AssignmentRepository stores exam assignments in Postgres via bun.
type AssignmentRepository struct {
	db *bun.DB
}

func NewAssignmentRepository(db *bun.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Create(ctx context.Context, a *domain.ExamAssignment) error {
	if _, err := r.db.NewInsert().Model(a).Exec(ctx); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*domain.ExamAssignment, error) {
	assignment := new(domain.ExamAssignment)
	err := r.db.NewSelect().Model(assignment).Where("ea.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAssignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return assignment, nil
}

// MarkCompleted is guarded on completed = FALSE so concurrent duplicate
// calls cannot move completed_at; the losing call reports false.
func (r *AssignmentRepository) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*domain.ExamAssignment)(nil)).
		Set("completed = TRUE").
		Set("completed_at = ?", at).
		Where("id = ?", id).
		Where("completed = FALSE").
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("mark assignment completed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *AssignmentRepository) ByUser(ctx context.Context, userID string) ([]domain.ExamAssignment, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("ea.user_id = ?", userID)
	})
}

func (r *AssignmentRepository) ByExam(ctx context.Context, examID string) ([]domain.ExamAssignment, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("ea.exam_id = ?", examID)
	})
}

func (r *AssignmentRepository) PendingByUser(ctx context.Context, userID string) ([]domain.ExamAssignment, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("ea.user_id = ?", userID).Where("NOT ea.completed")
	})
}

func (r *AssignmentRepository) OverdueByUser(ctx context.Context, userID string, now time.Time) ([]domain.ExamAssignment, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("ea.user_id = ?", userID).
			Where("NOT ea.completed").
			Where("ea.due_date IS NOT NULL").
			Where("ea.due_date < ?", now)
	})
}

func (r *AssignmentRepository) CompletedByUser(ctx context.Context, userID string) ([]domain.ExamAssignment, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("ea.user_id = ?", userID).Where("ea.completed")
	})
}

func (r *AssignmentRepository) PendingForExam(ctx context.Context, userID, examID string) ([]domain.ExamAssignment, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("ea.user_id = ?", userID).
			Where("ea.exam_id = ?", examID).
			Where("NOT ea.completed")
	})
}

func (r *AssignmentRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	return r.db.NewSelect().
		Model((*domain.ExamAssignment)(nil)).
		Where("ea.user_id = ?", userID).
		Count(ctx)
}

func (r *AssignmentRepository) CountCompletedByUser(ctx context.Context, userID string) (int, error) {
	return r.db.NewSelect().
		Model((*domain.ExamAssignment)(nil)).
		Where("ea.user_id = ?", userID).
		Where("ea.completed").
		Count(ctx)
}

func (r *AssignmentRepository) list(ctx context.Context, apply func(*bun.SelectQuery) *bun.SelectQuery) ([]domain.ExamAssignment, error) {
	var assignments []domain.ExamAssignment
	q := r.db.NewSelect().Model(&assignments).Order("assigned_at ASC", "id ASC")
	if err := apply(q).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}
