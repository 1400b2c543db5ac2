package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"assessment-service/internal/app"
	"assessment-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionCache fronts a question repository with a Redis read-through
// cache of per-exam question sets, keyed exam:{examID}:questions as JSON.
// Start and Submit both read the full set for an exam, so this is the hot
// path worth caching; writes go to the inner repository and invalidate the
// exam's key. The cached payload includes correct-answer data and must
// never be handed to clients unsanitized.
type QuestionCache struct {
	client *redis.Client
	inner  app.QuestionRepository
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, inner app.QuestionRepository, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) FindByExam(ctx context.Context, examID string) ([]domain.Question, error) {
	key := c.key(examID)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var questions []domain.Question
		if err := json.Unmarshal(raw, &questions); err == nil {
			return questions, nil
		}
		// Corrupt entry; fall through and rebuild it.
	}

	result, err, _ := c.sf.Do(examID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var questions []domain.Question
			if err := json.Unmarshal(raw, &questions); err == nil {
				return questions, nil
			}
		}

		questions, err := c.inner.FindByExam(ctx, examID)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(questions); err == nil {
			// Best-effort; a failed SET just means the next call reloads.
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) Save(ctx context.Context, q *domain.Question) error {
	if err := c.inner.Save(ctx, q); err != nil {
		return err
	}
	_ = c.client.Del(ctx, c.key(q.ExamID)).Err()
	return nil
}

func (c *QuestionCache) SoftDelete(ctx context.Context, id string) error {
	// Resolve the exam before the delete so the right key gets dropped.
	question, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := c.inner.SoftDelete(ctx, id); err != nil {
		return err
	}
	_ = c.client.Del(ctx, c.key(question.ExamID)).Err()
	return nil
}

// FindByID is not cached; single-question lookups are admin traffic.
func (c *QuestionCache) FindByID(ctx context.Context, id string) (*domain.Question, error) {
	return c.inner.FindByID(ctx, id)
}

func (c *QuestionCache) Count(ctx context.Context) (int, error) {
	return c.inner.Count(ctx)
}

func (c *QuestionCache) CountActive(ctx context.Context) (int, error) {
	return c.inner.CountActive(ctx)
}

func (c *QuestionCache) key(examID string) string {
	return "exam:" + examID + ":questions"
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
