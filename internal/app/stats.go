package app

import (
	"context"
	"time"

	"assessment-service/internal/domain"
)

// StatsAggregator computes read-side aggregates on demand from repository
// state. Nothing is cached; every call reflects the state at query time.
type StatsAggregator struct {
	attempts    AttemptRepository
	assignments AssignmentRepository
	questions   QuestionRepository
	exams       ExamRepository
	topics      TopicRepository
	clock       func() time.Time
}

func NewStatsAggregator(attempts AttemptRepository, assignments AssignmentRepository, questions QuestionRepository, exams ExamRepository, topics TopicRepository) *StatsAggregator {
	return NewStatsAggregatorWithClock(attempts, assignments, questions, exams, topics, time.Now)
}

// NewStatsAggregatorWithClock allows deterministic overdue evaluation in tests.
func NewStatsAggregatorWithClock(attempts AttemptRepository, assignments AssignmentRepository, questions QuestionRepository, exams ExamRepository, topics TopicRepository, now func() time.Time) *StatsAggregator {
	return &StatsAggregator{
		attempts:    attempts,
		assignments: assignments,
		questions:   questions,
		exams:       exams,
		topics:      topics,
		clock:       now,
	}
}

// ExamStats returns completion counts, average score and pass rate for one
// exam. Pass rate is passed/completed*100, 0 with no completed attempts.
func (s *StatsAggregator) ExamStats(ctx context.Context, examID string) (*domain.ExamStats, error) {
	if err := checkIdent("examId", examID); err != nil {
		return nil, err
	}
	attempts, err := s.attempts.CompletedByExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	stats := &domain.ExamStats{ExamID: examID, CompletedCount: len(attempts)}
	if len(attempts) == 0 {
		return stats, nil
	}

	sum := 0
	for _, a := range attempts {
		if a.Score != nil {
			sum += *a.Score
		}
		if a.Passed != nil && *a.Passed {
			stats.PassedCount++
		}
	}
	stats.AverageScore = float64(sum) / float64(len(attempts))
	stats.PassRate = float64(stats.PassedCount) / float64(len(attempts)) * 100
	return stats, nil
}

// UserAssignmentStats returns the user's assignment counts and completion
// rate (completed/total*100, 0 with no assignments). Overdue is evaluated
// against the clock at call time.
func (s *StatsAggregator) UserAssignmentStats(ctx context.Context, userID string) (*domain.UserAssignmentStats, error) {
	if err := checkIdent("userId", userID); err != nil {
		return nil, err
	}
	assignments, err := s.assignments.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	stats := &domain.UserAssignmentStats{UserID: userID, Total: len(assignments)}
	for _, a := range assignments {
		switch {
		case a.Completed:
			stats.Completed++
		default:
			stats.Pending++
		}
		if a.IsOverdue(now) {
			stats.Overdue++
		}
	}
	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total) * 100
	}
	return stats, nil
}

// Totals counts exams, questions and topics across the portal.
func (s *StatsAggregator) Totals(ctx context.Context) (*domain.Totals, error) {
	totals := &domain.Totals{}
	var err error
	if totals.Exams, err = s.exams.Count(ctx); err != nil {
		return nil, err
	}
	if totals.ActiveExams, err = s.exams.CountActive(ctx); err != nil {
		return nil, err
	}
	if totals.Questions, err = s.questions.Count(ctx); err != nil {
		return nil, err
	}
	if totals.ActiveQuestions, err = s.questions.CountActive(ctx); err != nil {
		return nil, err
	}
	if totals.Topics, err = s.topics.CountTopics(ctx); err != nil {
		return nil, err
	}
	return totals, nil
}
