package app

import (
	"context"
	"time"
)

// TopicRepository persists the question↔topic association set.
type TopicRepository interface {
	// Associate inserts the pair if absent; an existing pair is a no-op.
	Associate(ctx context.Context, questionID, topicID string, at time.Time) error
	// Disassociate removes the pair; a missing pair is a no-op.
	Disassociate(ctx context.Context, questionID, topicID string) error
	// Replace swaps the question's full association set (clear-then-insert).
	Replace(ctx context.Context, questionID string, topicIDs []string, at time.Time) error
	TopicsFor(ctx context.Context, questionID string) ([]string, error)
	QuestionsFor(ctx context.Context, topicID string) ([]string, error)
	CountTopics(ctx context.Context) (int, error)
}

// TopicTagger owns the many-to-many categorization of questions,
// independent of exam and attempt lifecycles.
type TopicTagger struct {
	topics TopicRepository
	clock  func() time.Time
}

func NewTopicTagger(topics TopicRepository) *TopicTagger {
	return NewTopicTaggerWithClock(topics, time.Now)
}

// NewTopicTaggerWithClock allows deterministic timestamps in tests.
func NewTopicTaggerWithClock(topics TopicRepository, now func() time.Time) *TopicTagger {
	return &TopicTagger{topics: topics, clock: now}
}

func (t *TopicTagger) Associate(ctx context.Context, questionID, topicID string) error {
	if err := checkIdent("questionId", questionID); err != nil {
		return err
	}
	if err := checkIdent("topicId", topicID); err != nil {
		return err
	}
	return t.topics.Associate(ctx, questionID, topicID, t.clock())
}

func (t *TopicTagger) Disassociate(ctx context.Context, questionID, topicID string) error {
	if err := checkIdent("questionId", questionID); err != nil {
		return err
	}
	if err := checkIdent("topicId", topicID); err != nil {
		return err
	}
	return t.topics.Disassociate(ctx, questionID, topicID)
}

// SetTopics replaces the question's topic set with exactly topicIDs, the
// way admin edit forms submit a full selection. An empty list clears all
// associations for the question.
func (t *TopicTagger) SetTopics(ctx context.Context, questionID string, topicIDs []string) error {
	if err := checkIdent("questionId", questionID); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(topicIDs))
	deduped := make([]string, 0, len(topicIDs))
	for _, id := range topicIDs {
		if err := checkIdent("topicId", id); err != nil {
			return err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	return t.topics.Replace(ctx, questionID, deduped, t.clock())
}

func (t *TopicTagger) TopicsFor(ctx context.Context, questionID string) ([]string, error) {
	if err := checkIdent("questionId", questionID); err != nil {
		return nil, err
	}
	return t.topics.TopicsFor(ctx, questionID)
}

func (t *TopicTagger) QuestionsFor(ctx context.Context, topicID string) ([]string, error) {
	if err := checkIdent("topicId", topicID); err != nil {
		return nil, err
	}
	return t.topics.QuestionsFor(ctx, topicID)
}
