package app_test

import (
	"context"
	"testing"
	"time"

	"assessment-service/internal/app"
	"assessment-service/internal/domain"
	"assessment-service/internal/infra/memory"
)

func newStatsFixture(clock *tickingClock) (*app.StatsAggregator, *memory.AttemptRepository, *app.AssignmentService) {
	attempts := memory.NewAttemptRepository()
	assignments := memory.NewAssignmentRepository()
	exams := memory.NewExamRepository(
		domain.Exam{ID: "exam-1", Title: "Basics", PassingScorePercentage: 60, IsActive: true},
		domain.Exam{ID: "exam-archived", Title: "Archived", PassingScorePercentage: 60, IsActive: false},
	)
	aggregator := app.NewStatsAggregatorWithClock(
		attempts, assignments, memory.NewQuestionRepository(), exams, memory.NewTopicRepository(), clock.Now,
	)
	return aggregator, attempts, app.NewAssignmentServiceWithClock(assignments, clock.Now)
}

func completeAttempt(t *testing.T, attempts *memory.AttemptRepository, clock *tickingClock, userID string, score int, passed bool) {
	t.Helper()
	ctx := context.Background()
	attempt := &domain.ExamAttempt{ID: "attempt-" + userID, UserID: userID, ExamID: "exam-1", StartedAt: clock.Now()}
	if err := attempts.Create(ctx, attempt); err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	done, err := attempts.Complete(ctx, attempt.ID, score, passed, clock.Now())
	if err != nil || !done {
		t.Fatalf("complete attempt: done=%v err=%v", done, err)
	}
}

func TestExamStatsAveragesStoredScores(t *testing.T) {
	clock := &tickingClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	aggregator, attempts, _ := newStatsFixture(clock)
	ctx := context.Background()

	completeAttempt(t, attempts, clock, "user-1", 5, false)
	completeAttempt(t, attempts, clock, "user-2", 8, true)
	// In-progress attempts stay out of the aggregates.
	if err := attempts.Create(ctx, &domain.ExamAttempt{ID: "attempt-open", UserID: "user-3", ExamID: "exam-1", StartedAt: clock.Now()}); err != nil {
		t.Fatalf("create: %v", err)
	}

	stats, err := aggregator.ExamStats(ctx, "exam-1")
	if err != nil {
		t.Fatalf("examStats: %v", err)
	}
	if stats.CompletedCount != 2 || stats.PassedCount != 1 {
		t.Fatalf("expected 2 completed / 1 passed, got %+v", stats)
	}
	if stats.AverageScore != 6.5 {
		t.Fatalf("expected average 6.5, got %v", stats.AverageScore)
	}
	if stats.PassRate != 50 {
		t.Fatalf("expected pass rate 50, got %v", stats.PassRate)
	}
}

func TestExamStatsWithNoAttempts(t *testing.T) {
	clock := &tickingClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	aggregator, _, _ := newStatsFixture(clock)

	stats, err := aggregator.ExamStats(context.Background(), "exam-1")
	if err != nil {
		t.Fatalf("examStats: %v", err)
	}
	if stats.CompletedCount != 0 || stats.AverageScore != 0 || stats.PassRate != 0 {
		t.Fatalf("expected zeroed stats, got %+v", stats)
	}
}

func TestUserAssignmentStatsCountsAndRates(t *testing.T) {
	clock := &tickingClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	aggregator, _, assignments := newStatsFixture(clock)
	ctx := context.Background()

	done, err := assignments.Assign(ctx, "user-1", "exam-1", "admin-1", nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	due := clock.Now().Add(time.Hour)
	if _, err := assignments.Assign(ctx, "user-1", "exam-archived", "admin-1", &due); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := assignments.MarkCompleted(ctx, done.ID); err != nil {
		t.Fatalf("markCompleted: %v", err)
	}

	stats, err := aggregator.UserAssignmentStats(ctx, "user-1")
	if err != nil {
		t.Fatalf("userAssignmentStats: %v", err)
	}
	if stats.Total != 2 || stats.Completed != 1 || stats.Pending != 1 || stats.Overdue != 0 {
		t.Fatalf("unexpected counts before deadline: %+v", stats)
	}
	if stats.CompletionRate != 50 {
		t.Fatalf("expected completion rate 50, got %v", stats.CompletionRate)
	}

	// Passing the deadline flips the pending assignment to overdue without
	// touching storage.
	clock.Advance(2 * time.Hour)
	stats, err = aggregator.UserAssignmentStats(ctx, "user-1")
	if err != nil {
		t.Fatalf("userAssignmentStats: %v", err)
	}
	if stats.Overdue != 1 {
		t.Fatalf("expected 1 overdue after deadline, got %+v", stats)
	}
}

func TestUserAssignmentStatsForUnknownUser(t *testing.T) {
	clock := &tickingClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	aggregator, _, _ := newStatsFixture(clock)

	stats, err := aggregator.UserAssignmentStats(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("userAssignmentStats: %v", err)
	}
	if stats.Total != 0 || stats.CompletionRate != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
}

func TestTotalsCountActiveSubsets(t *testing.T) {
	clock := &tickingClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}

	questions := memory.NewQuestionRepository()
	topics := memory.NewTopicRepository()
	exams := memory.NewExamRepository(
		domain.Exam{ID: "exam-1", Title: "Basics", PassingScorePercentage: 60, IsActive: true},
		domain.Exam{ID: "exam-archived", Title: "Archived", PassingScorePercentage: 60, IsActive: false},
	)
	aggregator := app.NewStatsAggregatorWithClock(
		memory.NewAttemptRepository(), memory.NewAssignmentRepository(), questions, exams, topics, clock.Now,
	)

	ctx := context.Background()
	bank := app.NewQuestionBank(questions)
	active := domain.Question{ExamID: "exam-1", Text: "a", Type: domain.QuestionTrueFalse, Options: []string{"True", "False"}, Points: 1, Active: true}
	inactive := domain.Question{ExamID: "exam-1", Text: "b", Type: domain.QuestionTrueFalse, Options: []string{"True", "False"}, Points: 1}
	for _, q := range []*domain.Question{&active, &inactive} {
		if err := bank.Save(ctx, q); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	tagger := app.NewTopicTagger(topics)
	if err := tagger.Associate(ctx, active.ID, "algebra"); err != nil {
		t.Fatalf("associate: %v", err)
	}
	if err := tagger.Associate(ctx, inactive.ID, "algebra"); err != nil {
		t.Fatalf("associate: %v", err)
	}
	if err := tagger.Associate(ctx, active.ID, "geometry"); err != nil {
		t.Fatalf("associate: %v", err)
	}

	totals, err := aggregator.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Exams != 2 || totals.ActiveExams != 1 {
		t.Fatalf("unexpected exam totals: %+v", totals)
	}
	if totals.Questions != 2 || totals.ActiveQuestions != 1 {
		t.Fatalf("unexpected question totals: %+v", totals)
	}
	// Distinct topics, not association rows.
	if totals.Topics != 2 {
		t.Fatalf("expected 2 distinct topics, got %d", totals.Topics)
	}
}
