package memory

import (
	"context"
	"sort"
	"sync"
	"time"
)

type topicPair struct {
	questionID string
	topicID    string
}

// TopicRepository is an in-memory implementation of app.TopicRepository.
type TopicRepository struct {
	mu    sync.RWMutex
	pairs map[topicPair]time.Time
}

func NewTopicRepository() *TopicRepository {
	return &TopicRepository{pairs: make(map[topicPair]time.Time)}
}

func (r *TopicRepository) Associate(_ context.Context, questionID, topicID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := topicPair{questionID, topicID}
	if _, ok := r.pairs[key]; ok {
		return nil
	}
	r.pairs[key] = at
	return nil
}

func (r *TopicRepository) Disassociate(_ context.Context, questionID, topicID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pairs, topicPair{questionID, topicID})
	return nil
}

func (r *TopicRepository) Replace(_ context.Context, questionID string, topicIDs []string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.pairs {
		if key.questionID == questionID {
			delete(r.pairs, key)
		}
	}
	for _, topicID := range topicIDs {
		r.pairs[topicPair{questionID, topicID}] = at
	}
	return nil
}

func (r *TopicRepository) TopicsFor(_ context.Context, questionID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0)
	for key := range r.pairs {
		if key.questionID == questionID {
			out = append(out, key.topicID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *TopicRepository) QuestionsFor(_ context.Context, topicID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0)
	for key := range r.pairs {
		if key.topicID == topicID {
			out = append(out, key.questionID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *TopicRepository) CountTopics(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for key := range r.pairs {
		seen[key.topicID] = struct{}{}
	}
	return len(seen), nil
}
