// ============================================================================
// internal/validate/validate.go
// Grade candidate validation
// ============================================================================

// Package validate normalizes and checks candidate grade edits before they
// reach the store. Checks are pure; the only lookup is the injected
// enrollment check.
package validate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"acadgrade/internal/shared"
)

// Code identifies a validation failure condition.
type Code string

const (
	CodeOutOfRange       Code = "out_of_range"
	CodeAssessmentLocked Code = "assessment_locked"
	CodeNotEnrolled      Code = "not_enrolled"
	CodeMalformedScore   Code = "malformed_score"
)

// Error is a structured validation failure. It is always recoverable and is
// surfaced per record, never aborting a batch.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsValidation unwraps err into a validation Error when possible.
func AsValidation(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// EnrollmentChecker is the injected lookup confirming a student belongs to
// an assessment's course.
type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
}

// Validator checks candidate grade edits against an assessment definition.
type Validator struct {
	enrollments EnrollmentChecker
}

// New creates a Validator with the given enrollment lookup.
func New(enrollments EnrollmentChecker) *Validator {
	return &Validator{enrollments: enrollments}
}

// ParseScore normalizes a raw textual score. Empty text means "no score"
// (nil); anything else must parse as a finite number.
func ParseScore(raw string) (*float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil, &Error{Code: CodeMalformedScore, Message: fmt.Sprintf("score %q is not numeric", raw)}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, &Error{Code: CodeMalformedScore, Message: fmt.Sprintf("score %q is not finite", raw)}
	}
	return &value, nil
}

// Check validates a candidate (student, assessment, score) tuple. A nil
// score (clearing a grade) is always in range. Store failures from the
// enrollment lookup propagate as plain errors, not validation errors.
func (v *Validator) Check(ctx context.Context, studentID string, assessment *shared.AssessmentDefinition, score *float64) error {
	if assessment.IsLocked {
		return &Error{
			Code:    CodeAssessmentLocked,
			Message: fmt.Sprintf("assessment %s is locked for grading", assessment.Name),
		}
	}

	if score != nil {
		if math.IsNaN(*score) || math.IsInf(*score, 0) {
			return &Error{Code: CodeMalformedScore, Message: "score is not a finite number"}
		}
		if *score < 0 || *score > assessment.MaxScore {
			return &Error{
				Code:    CodeOutOfRange,
				Message: fmt.Sprintf("score %g outside range 0-%g", *score, assessment.MaxScore),
			}
		}
	}

	enrolled, err := v.enrollments.IsEnrolled(ctx, studentID, assessment.CourseID)
	if err != nil {
		return fmt.Errorf("enrollment lookup: %w", err)
	}
	if !enrolled {
		return &Error{
			Code:    CodeNotEnrolled,
			Message: fmt.Sprintf("student %s is not enrolled in course %s", studentID, assessment.CourseID),
		}
	}

	return nil
}
