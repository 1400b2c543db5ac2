package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers and transports can react without
// matching on message strings.
type Kind string

const (
	// KindValidation marks caller-fixable input problems. Never retried.
	KindValidation Kind = "validation"
	// KindNotFound marks references to absent or soft-deleted entities.
	KindNotFound Kind = "not_found"
	// KindConflict marks state-machine violations; the call is terminal
	// but the caller may retry a different operation.
	KindConflict Kind = "conflict"
)

// Error is the structured failure every public operation surfaces: a kind
// plus a presentable message, never a raw internal error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Validation builds a caller-fixable input error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a missing-entity error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a state-machine violation error.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, or "" for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }

var (
	// ErrExamNotFound is returned when the referenced exam does not exist.
	ErrExamNotFound = NotFound("exam not found")
	// ErrExamNotActive is returned when starting an attempt on a closed exam.
	ErrExamNotActive = Conflict("exam is not active")
	// ErrQuestionNotFound is returned when a question id resolves to nothing.
	ErrQuestionNotFound = NotFound("question not found")
	// ErrAssignmentNotFound is returned when an assignment id resolves to nothing.
	ErrAssignmentNotFound = NotFound("assignment not found")
	// ErrAttemptNotFound is returned when an attempt id resolves to nothing.
	ErrAttemptNotFound = NotFound("attempt not found")
	// ErrActiveAttempt is returned when the user already has a non-completed
	// attempt for the exam. The caller may resume that attempt instead.
	ErrActiveAttempt = Conflict("user already has an active attempt for this exam")
	// ErrAttemptCompleted is returned when submitting an attempt twice.
	ErrAttemptCompleted = Conflict("attempt is already completed")
)
