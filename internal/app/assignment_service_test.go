package app_test

import (
	"context"
	"testing"
	"time"

	"assessment-service/internal/app"
	"assessment-service/internal/domain"
	"assessment-service/internal/infra/memory"
)

// tickingClock hands out a controllable time for deterministic tests.
type tickingClock struct {
	now time.Time
}

func (c *tickingClock) Now() time.Time { return c.now }

func (c *tickingClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestAssignValidatesIdentifiers(t *testing.T) {
	ctx := context.Background()
	service := app.NewAssignmentService(memory.NewAssignmentRepository())

	cases := []struct {
		name                       string
		userID, examID, assignedBy string
	}{
		{"empty user", "", "exam-1", "admin-1"},
		{"empty exam", "user-1", "", "admin-1"},
		{"empty actor", "user-1", "exam-1", ""},
		{"spaces", "user 1", "exam-1", "admin-1"},
		{"control chars", "user-1", "exam\n1", "admin-1"},
	}
	for _, tc := range cases {
		if _, err := service.Assign(ctx, tc.userID, tc.examID, tc.assignedBy, nil); !domain.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestMarkCompletedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := &tickingClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	service := app.NewAssignmentServiceWithClock(memory.NewAssignmentRepository(), clock.Now)

	assignment, err := service.Assign(ctx, "user-1", "exam-1", "admin-1", nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	clock.Advance(time.Hour)
	first, err := service.MarkCompleted(ctx, assignment.ID)
	if err != nil {
		t.Fatalf("first markCompleted: %v", err)
	}
	if !first.Completed || first.CompletedAt == nil {
		t.Fatalf("expected completed assignment, got %+v", first)
	}
	firstAt := *first.CompletedAt

	clock.Advance(2 * time.Hour)
	second, err := service.MarkCompleted(ctx, assignment.ID)
	if err != nil {
		t.Fatalf("second markCompleted must be a no-op, got %v", err)
	}
	if !second.CompletedAt.Equal(firstAt) {
		t.Fatalf("completedAt moved from %v to %v", firstAt, *second.CompletedAt)
	}
}

func TestMarkCompletedUnknownAssignment(t *testing.T) {
	service := app.NewAssignmentService(memory.NewAssignmentRepository())
	if _, err := service.MarkCompleted(context.Background(), "missing"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOverdueIsDerivedFromClock(t *testing.T) {
	ctx := context.Background()
	clock := &tickingClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	service := app.NewAssignmentServiceWithClock(memory.NewAssignmentRepository(), clock.Now)

	due := clock.Now().Add(24 * time.Hour)
	assignment, err := service.Assign(ctx, "user-1", "exam-1", "admin-1", &due)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	overdue, err := service.OverdueByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(overdue) != 0 {
		t.Fatalf("not yet due, expected no overdue assignments, got %d", len(overdue))
	}

	// No write happens; the flag flips purely because time passed.
	clock.Advance(48 * time.Hour)
	overdue, err = service.OverdueByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != assignment.ID {
		t.Fatalf("expected 1 overdue assignment, got %+v", overdue)
	}

	if _, err := service.MarkCompleted(ctx, assignment.ID); err != nil {
		t.Fatalf("markCompleted: %v", err)
	}
	overdue, err = service.OverdueByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(overdue) != 0 {
		t.Fatalf("completed assignment must never be overdue, got %+v", overdue)
	}
}

// Assigning the same exam to the same user twice succeeds: duplicates are
// deliberately not rejected, so re-assignment after a reset keeps working.
func TestDuplicateAssignmentsAreAllowed(t *testing.T) {
	ctx := context.Background()
	service := app.NewAssignmentService(memory.NewAssignmentRepository())

	if _, err := service.Assign(ctx, "user-1", "exam-1", "admin-1", nil); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	if _, err := service.Assign(ctx, "user-1", "exam-1", "admin-1", nil); err != nil {
		t.Fatalf("duplicate assign should succeed, got %v", err)
	}

	assignments, err := service.ByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("byUser: %v", err)
	}
	if len(assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(assignments))
	}
}

func TestAssignmentQuerySurface(t *testing.T) {
	ctx := context.Background()
	clock := &tickingClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	service := app.NewAssignmentServiceWithClock(memory.NewAssignmentRepository(), clock.Now)

	a1, _ := service.Assign(ctx, "user-1", "exam-1", "admin-1", nil)
	clock.Advance(time.Minute)
	if _, err := service.Assign(ctx, "user-1", "exam-2", "admin-1", nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	clock.Advance(time.Minute)
	if _, err := service.Assign(ctx, "user-2", "exam-1", "admin-1", nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if _, err := service.MarkCompleted(ctx, a1.ID); err != nil {
		t.Fatalf("markCompleted: %v", err)
	}

	pending, err := service.PendingByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ExamID != "exam-2" {
		t.Fatalf("expected exam-2 pending, got %+v", pending)
	}

	completed, err := service.CompletedByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != a1.ID {
		t.Fatalf("expected a1 completed, got %+v", completed)
	}

	byExam, err := service.ByExam(ctx, "exam-1")
	if err != nil {
		t.Fatalf("byExam: %v", err)
	}
	if len(byExam) != 2 {
		t.Fatalf("expected 2 assignments for exam-1, got %d", len(byExam))
	}
}
