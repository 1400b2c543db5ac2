package domain

import (
	"time"

	"github.com/uptrace/bun"
)

// QuestionType enumerates the supported question formats. All of them are
// answered by selecting a single option index; true/false questions simply
// carry two options.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionTrueFalse      QuestionType = "true_false"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionSingleChoice, QuestionTrueFalse:
		return true
	}
	return false
}

// Exam is the read-only metadata the engine needs about an exam. Exams are
// owned by the portal's catalogue; the engine never writes them.
type Exam struct {
	bun.BaseModel `bun:"table:exams,alias:e"`

	ID                     string  `bun:"id,pk" json:"id"`
	Title                  string  `bun:"title" json:"title"`
	Description            string  `bun:"description" json:"description"`
	DurationMinutes        int     `bun:"duration_minutes" json:"durationMinutes"`
	PassingScorePercentage float64 `bun:"passing_score_percentage" json:"passingScorePercentage"`
	IsActive               bool    `bun:"is_active" json:"isActive"`
}

// Question belongs to exactly one exam. CorrectOption must index into
// Options; it is never serialized to attempt takers.
type Question struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID            string       `bun:"id,pk" json:"id"`
	ExamID        string       `bun:"exam_id" json:"examId"`
	Text          string       `bun:"text" json:"text"`
	Type          QuestionType `bun:"type" json:"type"`
	Options       []string     `bun:"options,array" json:"options"`
	CorrectOption int          `bun:"correct_option" json:"correctOption"`
	Points        int          `bun:"points" json:"points"`
	Active        bool         `bun:"active" json:"active"`
	CreatedAt     time.Time    `bun:"created_at,nullzero" json:"createdAt"`
	DeletedAt     time.Time    `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// QuestionTopic associates a question with a topic. The pair is unique;
// the association lives and dies independently of both sides.
type QuestionTopic struct {
	bun.BaseModel `bun:"table:question_topics,alias:qt"`

	QuestionID string    `bun:"question_id,pk" json:"questionId"`
	TopicID    string    `bun:"topic_id,pk" json:"topicId"`
	CreatedAt  time.Time `bun:"created_at,nullzero" json:"createdAt"`
}

// ExamAssignment binds a user to an exam they must take. Completion is a
// one-way transition; CompletedAt is set exactly when Completed flips.
type ExamAssignment struct {
	bun.BaseModel `bun:"table:exam_assignments,alias:ea"`

	ID          string     `bun:"id,pk" json:"id"`
	UserID      string     `bun:"user_id" json:"userId"`
	ExamID      string     `bun:"exam_id" json:"examId"`
	AssignedBy  string     `bun:"assigned_by" json:"assignedBy"`
	AssignedAt  time.Time  `bun:"assigned_at" json:"assignedAt"`
	DueDate     *time.Time `bun:"due_date" json:"dueDate,omitempty"`
	Completed   bool       `bun:"completed" json:"completed"`
	CompletedAt *time.Time `bun:"completed_at" json:"completedAt,omitempty"`
	DeletedAt   time.Time  `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// IsOverdue is derived from the clock at read time and is never persisted,
// so it can flip without a write. A completed assignment is never overdue.
func (a *ExamAssignment) IsOverdue(now time.Time) bool {
	return !a.Completed && a.DueDate != nil && a.DueDate.Before(now)
}

// ExamAttempt is one timed run of a user through an exam. Score and Passed
// are set together with CompletedAt at submission, after which the attempt
// is immutable.
type ExamAttempt struct {
	bun.BaseModel `bun:"table:exam_attempts,alias:at"`

	ID          string     `bun:"id,pk" json:"id"`
	UserID      string     `bun:"user_id" json:"userId"`
	ExamID      string     `bun:"exam_id" json:"examId"`
	StartedAt   time.Time  `bun:"started_at" json:"startedAt"`
	CompletedAt *time.Time `bun:"completed_at" json:"completedAt,omitempty"`
	Score       *int       `bun:"score" json:"score,omitempty"`
	Passed      *bool      `bun:"passed" json:"passed,omitempty"`
	DeletedAt   time.Time  `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// IsCompleted reports whether the attempt has been submitted and scored.
func (a *ExamAttempt) IsCompleted() bool {
	return a.CompletedAt != nil
}

// SanitizedQuestion is the attempt-taker view of a question: everything the
// client needs to render it and nothing that gives the answer away.
type SanitizedQuestion struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Options []string     `json:"options"`
	Points  int          `json:"points"`
}

// StartResult is the stable contract returned when an attempt starts.
// DurationSeconds is advisory; the engine enforces no deadline itself.
type StartResult struct {
	AttemptID       string              `json:"attemptId"`
	ExamID          string              `json:"examId"`
	Questions       []SanitizedQuestion `json:"questions"`
	DurationSeconds int                 `json:"durationSeconds"`
}

// QuestionResult is the per-question feedback line in a submit result.
// Selected is nil when the question was left unanswered.
type QuestionResult struct {
	QuestionID    string `json:"questionId"`
	Selected      *int   `json:"selected,omitempty"`
	CorrectOption int    `json:"correctOption"`
	Correct       bool   `json:"correct"`
	Points        int    `json:"points"`
	PointsEarned  int    `json:"pointsEarned"`
}

// SubmitResult is the stable contract returned when an attempt is scored.
type SubmitResult struct {
	AttemptID    string           `json:"attemptId"`
	UserID       string           `json:"userId"`
	ExamID       string           `json:"examId"`
	EarnedPoints int              `json:"earnedPoints"`
	TotalPoints  int              `json:"totalPoints"`
	Percentage   float64          `json:"percentage"`
	Passed       bool             `json:"passed"`
	Breakdown    []QuestionResult `json:"breakdown"`
}

// ExamStats aggregates completed attempts for one exam.
type ExamStats struct {
	ExamID         string  `json:"examId"`
	CompletedCount int     `json:"completedCount"`
	PassedCount    int     `json:"passedCount"`
	AverageScore   float64 `json:"averageScore"`
	PassRate       float64 `json:"passRate"`
}

// UserAssignmentStats summarizes one user's assignment workload.
type UserAssignmentStats struct {
	UserID         string  `json:"userId"`
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Pending        int     `json:"pending"`
	Overdue        int     `json:"overdue"`
	CompletionRate float64 `json:"completionRate"`
}

// Totals is the portal-wide inventory snapshot.
type Totals struct {
	Exams           int `json:"exams"`
	ActiveExams     int `json:"activeExams"`
	Questions       int `json:"questions"`
	ActiveQuestions int `json:"activeQuestions"`
	Topics          int `json:"topics"`
}

// AttemptCompleted is published on the event feed after a submission.
// Delivery is best-effort; slow or absent listeners miss events.
type AttemptCompleted struct {
	AttemptID  string    `json:"attemptId"`
	UserID     string    `json:"userId"`
	ExamID     string    `json:"examId"`
	Score      int       `json:"score"`
	Percentage float64   `json:"percentage"`
	Passed     bool      `json:"passed"`
	OccurredAt time.Time `json:"occurredAt"`
}
