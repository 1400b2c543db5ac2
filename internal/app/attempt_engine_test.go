package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"assessment-service/internal/app"
	"assessment-service/internal/domain"
	"assessment-service/internal/infra/memory"
)

type engineFixture struct {
	engine *app.AttemptEngine
	clock  *tickingClock
	q1, q2 string
}

// newEngineFixture builds an engine over one active exam with two
// questions worth 5 and 3 points and a 60% passing threshold.
func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	ctx := context.Background()
	clock := &tickingClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}

	exams := memory.NewExamRepository(
		domain.Exam{ID: "exam-1", Title: "Basics", DurationMinutes: 45, PassingScorePercentage: 60, IsActive: true},
		domain.Exam{ID: "exam-closed", Title: "Closed", PassingScorePercentage: 60, IsActive: false},
		domain.Exam{ID: "exam-empty", Title: "Empty", PassingScorePercentage: 60, IsActive: true},
	)

	bank := app.NewQuestionBankWithClock(memory.NewQuestionRepository(), clock.Now)
	q1 := domain.Question{ExamID: "exam-1", Text: "five pointer", Type: domain.QuestionSingleChoice, Options: []string{"a", "b"}, CorrectOption: 0, Points: 5, Active: true}
	if err := bank.Save(ctx, &q1); err != nil {
		t.Fatalf("save q1: %v", err)
	}
	clock.Advance(time.Second)
	q2 := domain.Question{ExamID: "exam-1", Text: "three pointer", Type: domain.QuestionTrueFalse, Options: []string{"True", "False"}, CorrectOption: 1, Points: 3, Active: true}
	if err := bank.Save(ctx, &q2); err != nil {
		t.Fatalf("save q2: %v", err)
	}

	return &engineFixture{
		engine: app.NewAttemptEngineWithClock(memory.NewAttemptRepository(), exams, bank, clock.Now),
		clock:  clock,
		q1:     q1.ID,
		q2:     q2.ID,
	}
}

func TestStartReturnsSanitizedQuestionsAndDuration(t *testing.T) {
	f := newEngineFixture(t)

	result, err := f.engine.Start(context.Background(), "user-1", "exam-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if result.AttemptID == "" {
		t.Fatalf("expected attempt id")
	}
	if result.DurationSeconds != 45*60 {
		t.Fatalf("expected 2700 seconds, got %d", result.DurationSeconds)
	}
	if len(result.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(result.Questions))
	}
	if result.Questions[0].ID != f.q1 || result.Questions[1].ID != f.q2 {
		t.Fatalf("expected stable creation order, got %+v", result.Questions)
	}
	for _, q := range result.Questions {
		if len(q.Options) == 0 || q.Points == 0 {
			t.Fatalf("sanitized question lost render data: %+v", q)
		}
	}
}

func TestStartRejectsUnknownAndInactiveExams(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, "user-1", "exam-missing"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.engine.Start(ctx, "user-1", "exam-closed"); !domain.IsConflict(err) {
		t.Fatalf("expected conflict for inactive exam, got %v", err)
	}
}

func TestSecondStartConflictsWhileInProgress(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, "user-1", "exam-1"); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := f.engine.Start(ctx, "user-1", "exam-1"); !errors.Is(err, domain.ErrActiveAttempt) {
		t.Fatalf("expected active-attempt conflict, got %v", err)
	}

	// A different user, and the same user on another exam, are unaffected.
	if _, err := f.engine.Start(ctx, "user-2", "exam-1"); err != nil {
		t.Fatalf("other user start: %v", err)
	}
	if _, err := f.engine.Start(ctx, "user-1", "exam-empty"); err != nil {
		t.Fatalf("other exam start: %v", err)
	}
}

func TestSubmitScoresPartialAnswers(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.Start(ctx, "user-1", "exam-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Q1 answered correctly, Q2 left unanswered: 5 of 8 points = 62.5%.
	result, err := f.engine.Submit(ctx, started.AttemptID, map[string]int{f.q1: 0})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.EarnedPoints != 5 || result.TotalPoints != 8 {
		t.Fatalf("expected 5/8 points, got %d/%d", result.EarnedPoints, result.TotalPoints)
	}
	if result.Percentage != 62.5 {
		t.Fatalf("expected 62.5%%, got %v", result.Percentage)
	}
	if !result.Passed {
		t.Fatalf("62.5 >= 60 must pass")
	}

	if len(result.Breakdown) != 2 {
		t.Fatalf("expected full breakdown, got %+v", result.Breakdown)
	}
	unanswered := result.Breakdown[1]
	if unanswered.QuestionID != f.q2 || unanswered.Selected != nil || unanswered.Correct || unanswered.PointsEarned != 0 {
		t.Fatalf("unanswered question must score zero: %+v", unanswered)
	}
}

func TestSubmitOutOfRangeAnswerScoresZero(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.Start(ctx, "user-1", "exam-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	result, err := f.engine.Submit(ctx, started.AttemptID, map[string]int{f.q1: 7, f.q2: -2})
	if err != nil {
		t.Fatalf("bad indexes must not fail the submission: %v", err)
	}
	if result.EarnedPoints != 0 || result.Passed {
		t.Fatalf("expected zero score and fail, got %+v", result)
	}
}

func TestSubmitTwiceLeavesFirstResultIntact(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.Start(ctx, "user-1", "exam-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	first, err := f.engine.Submit(ctx, started.AttemptID, map[string]int{f.q1: 0, f.q2: 1})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	f.clock.Advance(time.Hour)
	if _, err := f.engine.Submit(ctx, started.AttemptID, map[string]int{}); !errors.Is(err, domain.ErrAttemptCompleted) {
		t.Fatalf("expected completed conflict, got %v", err)
	}

	stored, err := f.engine.Get(ctx, started.AttemptID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Score == nil || *stored.Score != first.EarnedPoints {
		t.Fatalf("stored score changed: %+v", stored)
	}
	if stored.Passed == nil || !*stored.Passed {
		t.Fatalf("stored passed flag changed: %+v", stored)
	}
	if !stored.CompletedAt.Equal(f.clock.Now().Add(-time.Hour)) {
		t.Fatalf("completedAt moved to %v", stored.CompletedAt)
	}
}

func TestSubmitUnknownAttempt(t *testing.T) {
	f := newEngineFixture(t)
	if _, err := f.engine.Submit(context.Background(), "missing", nil); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmitEmptyExamScoresZeroPercent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.Start(ctx, "user-1", "exam-empty")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	result, err := f.engine.Submit(ctx, started.AttemptID, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Percentage != 0 || result.Passed {
		t.Fatalf("zero total points must score 0%% and fail, got %+v", result)
	}
}

func TestStartAgainAfterCompletion(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.Start(ctx, "user-1", "exam-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.engine.Submit(ctx, started.AttemptID, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// The conceptual slot is free again once the attempt completes.
	again, err := f.engine.Start(ctx, "user-1", "exam-1")
	if err != nil {
		t.Fatalf("restart after completion: %v", err)
	}
	if again.AttemptID == started.AttemptID {
		t.Fatalf("expected a fresh attempt id")
	}
}

func TestActiveReturnsResumableAttempt(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Active(ctx, "user-1", "exam-1"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found before start, got %v", err)
	}

	started, err := f.engine.Start(ctx, "user-1", "exam-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	active, err := f.engine.Active(ctx, "user-1", "exam-1")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active.ID != started.AttemptID || active.IsCompleted() {
		t.Fatalf("expected the in-progress attempt, got %+v", active)
	}
}
