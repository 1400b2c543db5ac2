package app

import (
	"context"
	"errors"
	"math"
	"time"

	"assessment-service/internal/domain"
	"github.com/google/uuid"
)

// AttemptRepository persists exam attempts. Create must enforce, at the
// storage boundary, that only one non-completed attempt exists per
// (user, exam) pair and surface a violation as domain.ErrActiveAttempt;
// an in-memory lock is not enough when several instances run.
type AttemptRepository interface {
	Create(ctx context.Context, a *domain.ExamAttempt) error
	FindByID(ctx context.Context, id string) (*domain.ExamAttempt, error)
	// FindActive returns the non-completed attempt for the pair, or
	// domain.ErrAttemptNotFound when there is none.
	FindActive(ctx context.Context, userID, examID string) (*domain.ExamAttempt, error)
	// Complete writes score, passed and completed_at guarded on the attempt
	// still being in progress; it reports false when already completed.
	Complete(ctx context.Context, id string, score int, passed bool, at time.Time) (bool, error)
	ByUser(ctx context.Context, userID string) ([]domain.ExamAttempt, error)
	CompletedByExam(ctx context.Context, examID string) ([]domain.ExamAttempt, error)
}

// AttemptEngine orchestrates the attempt lifecycle: start, submission,
// scoring, completion. It reads questions through the QuestionBank and
// never touches assignments; completing an originating assignment is the
// caller's orchestration step.
type AttemptEngine struct {
	attempts AttemptRepository
	exams    ExamRepository
	bank     *QuestionBank
	clock    func() time.Time
}

func NewAttemptEngine(attempts AttemptRepository, exams ExamRepository, bank *QuestionBank) *AttemptEngine {
	return NewAttemptEngineWithClock(attempts, exams, bank, time.Now)
}

// NewAttemptEngineWithClock allows deterministic timestamps in tests.
func NewAttemptEngineWithClock(attempts AttemptRepository, exams ExamRepository, bank *QuestionBank, now func() time.Time) *AttemptEngine {
	return &AttemptEngine{attempts: attempts, exams: exams, bank: bank, clock: now}
}

// Start opens a new attempt for the user on the exam and returns the
// sanitized question set plus the exam duration in seconds. The duration
// is informational; expiry enforcement belongs to the caller. A second
// start while an attempt is in progress fails with domain.ErrActiveAttempt.
func (e *AttemptEngine) Start(ctx context.Context, userID, examID string) (*domain.StartResult, error) {
	if err := checkIdent("userId", userID); err != nil {
		return nil, err
	}
	if err := checkIdent("examId", examID); err != nil {
		return nil, err
	}

	exam, err := e.exams.FindByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !exam.IsActive {
		return nil, domain.ErrExamNotActive
	}

	// Friendly pre-check; the repository's uniqueness guard closes the
	// race between concurrent starts.
	if _, err := e.attempts.FindActive(ctx, userID, examID); err == nil {
		return nil, domain.ErrActiveAttempt
	} else if !errors.Is(err, domain.ErrAttemptNotFound) {
		return nil, err
	}

	attempt := &domain.ExamAttempt{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExamID:    examID,
		StartedAt: e.clock(),
	}
	if err := e.attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}

	questions, err := e.bank.FindByExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	return &domain.StartResult{
		AttemptID:       attempt.ID,
		ExamID:          examID,
		Questions:       sanitize(questions),
		DurationSeconds: exam.DurationMinutes * 60,
	}, nil
}

// Submit scores the attempt against every active question of its exam and
// completes it. Unanswered or out-of-range selections score zero. This is
// the attempt's single mutation point; a second submission fails with
// domain.ErrAttemptCompleted and leaves the stored result untouched.
func (e *AttemptEngine) Submit(ctx context.Context, attemptID string, answers map[string]int) (*domain.SubmitResult, error) {
	if err := checkIdent("attemptId", attemptID); err != nil {
		return nil, err
	}

	attempt, err := e.attempts.FindByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.IsCompleted() {
		return nil, domain.ErrAttemptCompleted
	}

	exam, err := e.exams.FindByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	questions, err := e.bank.FindByExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}

	earned, total := 0, 0
	breakdown := make([]domain.QuestionResult, 0, len(questions))
	for _, q := range questions {
		total += q.Points

		var selected *int
		points := 0
		correct := false
		if idx, answered := answers[q.ID]; answered {
			selected = &idx
			correct = e.bank.IsCorrect(q, idx)
			points = e.bank.ScoreFor(q, idx)
		}
		earned += points

		breakdown = append(breakdown, domain.QuestionResult{
			QuestionID:    q.ID,
			Selected:      selected,
			CorrectOption: q.CorrectOption,
			Correct:       correct,
			Points:        q.Points,
			PointsEarned:  points,
		})
	}

	percentage := percentageOf(earned, total)
	passed := percentage >= exam.PassingScorePercentage

	completed, err := e.attempts.Complete(ctx, attempt.ID, earned, passed, e.clock())
	if err != nil {
		return nil, err
	}
	if !completed {
		return nil, domain.ErrAttemptCompleted
	}

	return &domain.SubmitResult{
		AttemptID:    attempt.ID,
		UserID:       attempt.UserID,
		ExamID:       attempt.ExamID,
		EarnedPoints: earned,
		TotalPoints:  total,
		Percentage:   percentage,
		Passed:       passed,
		Breakdown:    breakdown,
	}, nil
}

// Active returns the user's in-progress attempt for the exam, so a caller
// that hit ErrActiveAttempt can resume instead of starting over.
func (e *AttemptEngine) Active(ctx context.Context, userID, examID string) (*domain.ExamAttempt, error) {
	if err := checkIdent("userId", userID); err != nil {
		return nil, err
	}
	if err := checkIdent("examId", examID); err != nil {
		return nil, err
	}
	return e.attempts.FindActive(ctx, userID, examID)
}

func (e *AttemptEngine) Get(ctx context.Context, attemptID string) (*domain.ExamAttempt, error) {
	return e.attempts.FindByID(ctx, attemptID)
}

func (e *AttemptEngine) ByUser(ctx context.Context, userID string) ([]domain.ExamAttempt, error) {
	if err := checkIdent("userId", userID); err != nil {
		return nil, err
	}
	return e.attempts.ByUser(ctx, userID)
}

func sanitize(questions []domain.Question) []domain.SanitizedQuestion {
	out := make([]domain.SanitizedQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, domain.SanitizedQuestion{
			ID:      q.ID,
			Text:    q.Text,
			Type:    q.Type,
			Options: q.Options,
			Points:  q.Points,
		})
	}
	return out
}

// percentageOf rounds to two decimals; a zero total scores zero rather
// than dividing by zero.
func percentageOf(earned, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(earned)/float64(total)*100*100) / 100
}
