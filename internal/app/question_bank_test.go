package app_test

import (
	"context"
	"testing"

	"assessment-service/internal/app"
	"assessment-service/internal/domain"
	"assessment-service/internal/infra/memory"
)

func TestSaveRejectsInvalidQuestions(t *testing.T) {
	ctx := context.Background()
	bank := app.NewQuestionBank(memory.NewQuestionRepository())

	cases := []struct {
		name string
		q    domain.Question
	}{
		{"missing exam", domain.Question{Text: "x", Type: domain.QuestionSingleChoice, Options: []string{"a"}, Points: 1}},
		{"blank text", domain.Question{ExamID: "exam-1", Text: "  ", Type: domain.QuestionSingleChoice, Options: []string{"a"}, Points: 1}},
		{"bad type", domain.Question{ExamID: "exam-1", Text: "x", Type: "essay", Options: []string{"a"}, Points: 1}},
		{"no options", domain.Question{ExamID: "exam-1", Text: "x", Type: domain.QuestionSingleChoice, Points: 1}},
		{"correct out of range", domain.Question{ExamID: "exam-1", Text: "x", Type: domain.QuestionSingleChoice, Options: []string{"a", "b"}, CorrectOption: 2, Points: 1}},
		{"zero points", domain.Question{ExamID: "exam-1", Text: "x", Type: domain.QuestionSingleChoice, Options: []string{"a"}, Points: 0}},
	}
	for _, tc := range cases {
		q := tc.q
		if err := bank.Save(ctx, &q); !domain.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestSaveAssignsIDAndPersists(t *testing.T) {
	ctx := context.Background()
	bank := app.NewQuestionBank(memory.NewQuestionRepository())

	q := domain.Question{
		ExamID:        "exam-1",
		Text:          "Pick one",
		Type:          domain.QuestionMultipleChoice,
		Options:       []string{"a", "b", "c"},
		CorrectOption: 2,
		Points:        4,
		Active:        true,
	}
	if err := bank.Save(ctx, &q); err != nil {
		t.Fatalf("save: %v", err)
	}
	if q.ID == "" {
		t.Fatalf("expected generated id")
	}

	stored, err := bank.FindByID(ctx, q.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.CorrectOption != 2 || stored.Points != 4 {
		t.Fatalf("unexpected stored question: %+v", stored)
	}
}

func TestScoreForEveryKindOfSelection(t *testing.T) {
	bank := app.NewQuestionBank(memory.NewQuestionRepository())
	q := domain.Question{
		ID:            "q1",
		ExamID:        "exam-1",
		Options:       []string{"a", "b", "c"},
		CorrectOption: 1,
		Points:        5,
	}

	if got := bank.ScoreFor(q, 1); got != 5 {
		t.Fatalf("correct selection: expected 5 points, got %d", got)
	}
	for _, selected := range []int{0, 2, 3, 99, -1} {
		if got := bank.ScoreFor(q, selected); got != 0 {
			t.Fatalf("selection %d: expected 0 points, got %d", selected, got)
		}
	}
	if bank.IsCorrect(q, 3) || bank.IsCorrect(q, -1) {
		t.Fatalf("out-of-range selections must be incorrect, not an error")
	}
}

func TestDeletedQuestionsLeaveExamSet(t *testing.T) {
	ctx := context.Background()
	bank := app.NewQuestionBank(memory.NewQuestionRepository())

	first := domain.Question{ExamID: "exam-1", Text: "one", Type: domain.QuestionTrueFalse, Options: []string{"True", "False"}, Points: 1, Active: true}
	second := domain.Question{ExamID: "exam-1", Text: "two", Type: domain.QuestionTrueFalse, Options: []string{"True", "False"}, Points: 1, Active: true}
	for _, q := range []*domain.Question{&first, &second} {
		if err := bank.Save(ctx, q); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	if err := bank.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := bank.FindByID(ctx, first.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	remaining, err := bank.FindByExam(ctx, "exam-1")
	if err != nil {
		t.Fatalf("find by exam: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != second.ID {
		t.Fatalf("expected only second question, got %+v", remaining)
	}
}
