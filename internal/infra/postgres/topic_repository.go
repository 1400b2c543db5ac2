package postgres

import (
	"context"
	"fmt"
	"time"

	"assessment-service/internal/domain"
	"github.com/uptrace/bun"
)

// TopicRepository stores question↔topic associations in Postgres. The
// (question_id, topic_id) primary key makes Associate naturally idempotent
// through ON CONFLICT DO NOTHING.
type TopicRepository struct {
	db *bun.DB
}

func NewTopicRepository(db *bun.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

func (r *TopicRepository) Associate(ctx context.Context, questionID, topicID string, at time.Time) error {
	pair := &domain.QuestionTopic{QuestionID: questionID, TopicID: topicID, CreatedAt: at}
	_, err := r.db.NewInsert().Model(pair).On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return fmt.Errorf("associate topic: %w", err)
	}
	return nil
}

func (r *TopicRepository) Disassociate(ctx context.Context, questionID, topicID string) error {
	_, err := r.db.NewDelete().
		Model((*domain.QuestionTopic)(nil)).
		Where("question_id = ?", questionID).
		Where("topic_id = ?", topicID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("disassociate topic: %w", err)
	}
	return nil
}

// Replace clears and reinserts the question's associations in one
// transaction so readers never observe a half-replaced set.
func (r *TopicRepository) Replace(ctx context.Context, questionID string, topicIDs []string, at time.Time) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*domain.QuestionTopic)(nil)).
			Where("question_id = ?", questionID).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear topics: %w", err)
		}
		if len(topicIDs) == 0 {
			return nil
		}
		pairs := make([]domain.QuestionTopic, 0, len(topicIDs))
		for _, topicID := range topicIDs {
			pairs = append(pairs, domain.QuestionTopic{
				QuestionID: questionID,
				TopicID:    topicID,
				CreatedAt:  at,
			})
		}
		if _, err := tx.NewInsert().Model(&pairs).Exec(ctx); err != nil {
			return fmt.Errorf("insert topics: %w", err)
		}
		return nil
	})
}

func (r *TopicRepository) TopicsFor(ctx context.Context, questionID string) ([]string, error) {
	var topicIDs []string
	err := r.db.NewSelect().
		Model((*domain.QuestionTopic)(nil)).
		Column("topic_id").
		Where("question_id = ?", questionID).
		Order("topic_id ASC").
		Scan(ctx, &topicIDs)
	if err != nil {
		return nil, fmt.Errorf("topics for question: %w", err)
	}
	return topicIDs, nil
}

func (r *TopicRepository) QuestionsFor(ctx context.Context, topicID string) ([]string, error) {
	var questionIDs []string
	err := r.db.NewSelect().
		Model((*domain.QuestionTopic)(nil)).
		Column("question_id").
		Where("topic_id = ?", topicID).
		Order("question_id ASC").
		Scan(ctx, &questionIDs)
	if err != nil {
		return nil, fmt.Errorf("questions for topic: %w", err)
	}
	return questionIDs, nil
}

func (r *TopicRepository) CountTopics(ctx context.Context) (int, error) {
	var n int
	err := r.db.NewSelect().
		Model((*domain.QuestionTopic)(nil)).
		ColumnExpr("count(DISTINCT topic_id)").
		Scan(ctx, &n)
	if err != nil {
		return 0, fmt.Errorf("count topics: %w", err)
	}
	return n, nil
}
