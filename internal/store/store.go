// ============================================================================
// internal/store/store.go
// Grade record store interface and shared store errors
// ============================================================================

// Package store defines read/write access to the grading collections:
// assessment definitions, student grade records, course results and
// transcript records, plus the read-only reference data (students, courses,
// terms, enrollments) the engines join against.
package store

import (
	"context"
	"errors"

	"acadgrade/internal/shared"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("store: not found")

// Filter scopes analytics queries. Zero-value fields are ignored.
type Filter struct {
	TermID       string
	DepartmentID string
	CourseID     string
}

// Store is the single persistence boundary of the grading engine. The engine
// holds no state of its own; every derived value is recomputable from the
// records behind this interface.
type Store interface {
	// Assessment definitions (read-only to the engine except the lock flag).
	Assessment(ctx context.Context, id string) (*shared.AssessmentDefinition, error)
	AssessmentsForCourseTerm(ctx context.Context, courseID, termID string) ([]shared.AssessmentDefinition, error)
	AssessmentsInScope(ctx context.Context, f Filter) ([]shared.AssessmentDefinition, error)
	PutAssessment(ctx context.Context, a *shared.AssessmentDefinition) error
	SetAssessmentLock(ctx context.Context, id string, locked bool) error

	// Student grade records.
	Grade(ctx context.Context, id string) (*shared.StudentGradeRecord, error)
	GradeForStudentAssessment(ctx context.Context, studentID, assessmentID string) (*shared.StudentGradeRecord, error)
	GradesForAssessment(ctx context.Context, assessmentID string) ([]shared.StudentGradeRecord, error)
	GradesForStudent(ctx context.Context, studentID string) ([]shared.StudentGradeRecord, error)
	// UpsertGrade inserts or updates the record keyed by
	// (student, assessment) and returns the stored state.
	UpsertGrade(ctx context.Context, rec *shared.StudentGradeRecord) (*shared.StudentGradeRecord, error)

	// Course results, overwritten wholesale by the aggregation engine.
	CourseResultsForStudent(ctx context.Context, studentID string) ([]shared.CourseResult, error)
	PutCourseResult(ctx context.Context, res *shared.CourseResult) error

	// Transcript records, one per (student, term).
	TranscriptsForStudent(ctx context.Context, studentID string) ([]shared.TranscriptRecord, error)
	PutTranscript(ctx context.Context, rec *shared.TranscriptRecord) error

	// Reference data.
	StudentByID(ctx context.Context, id string) (*shared.Student, error)
	StudentByNumber(ctx context.Context, number string) (*shared.Student, error)
	PutStudent(ctx context.Context, s *shared.Student) error
	CourseByID(ctx context.Context, id string) (*shared.Course, error)
	PutCourse(ctx context.Context, c *shared.Course) error
	TermByID(ctx context.Context, id string) (*shared.Term, error)
	PutTerm(ctx context.Context, t *shared.Term) error
	IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
	EnrolledStudents(ctx context.Context, courseID string) ([]shared.Student, error)
	PutEnrollment(ctx context.Context, e *shared.Enrollment) error
}
