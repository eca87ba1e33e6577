// ============================================================================
// internal/ingest/service.go
// Grade ingestion: single writes, bulk batches, CSV imports
// ============================================================================

// Package ingest is the write path for student grade records. Every write
// runs the same pipeline: validate the candidate edit, upsert the record
// keyed by (student, assessment), then trigger aggregation for the affected
// student. Aggregation failures after a successful write never roll the
// write back; they surface as warnings.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"acadgrade/internal/aggregate"
	"acadgrade/internal/shared"
	"acadgrade/internal/store"
	"acadgrade/internal/validate"
)

// ErrUnauthenticated rejects a batch submitted without a grader identity.
var ErrUnauthenticated = errors.New("ingest: grader identity required")

// defaultRecomputeParallelism bounds concurrent per-student recomputation
// after a batch write. Students are independent, so their recomputes can
// overlap safely.
const defaultRecomputeParallelism = 4

// Service is the grade ingestion engine.
type Service struct {
	store       store.Store
	validator   *validate.Validator
	agg         *aggregate.Service
	now         func() time.Time
	parallelism int
}

// New creates an ingestion Service.
func New(st store.Store, v *validate.Validator, agg *aggregate.Service) *Service {
	return &Service{
		store:       st,
		validator:   v,
		agg:         agg,
		now:         time.Now,
		parallelism: defaultRecomputeParallelism,
	}
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ============================================================================
// Single Grade Writes
// ============================================================================

// ApplyGrade validates and upserts one grade record, then recomputes the
// student's course result and GPA. A nil score clears the grade (the record
// stays but is no longer counted as graded). The returned warning is
// non-empty when the write succeeded but recomputation failed.
func (s *Service) ApplyGrade(ctx context.Context, studentID, assessmentID string, score *float64, comments, gradedBy string) (*shared.StudentGradeRecord, string, error) {
	assessment, err := s.store.Assessment(ctx, assessmentID)
	if err != nil {
		return nil, "", fmt.Errorf("load assessment %s: %w", assessmentID, err)
	}

	stored, _, err := s.applyOne(ctx, studentID, assessment, score, comments, gradedBy)
	if err != nil {
		return nil, "", err
	}

	warning := ""
	if err := s.agg.RecomputeForStudent(ctx, studentID, assessment.CourseID, assessment.TermID); err != nil {
		warning = fmt.Sprintf("grade saved but aggregation failed for student %s: %v", studentID, err)
		log.Printf("Warning: %s", warning)
	}
	return stored, warning, nil
}

// applyOne runs validation and the upsert without triggering aggregation.
// The second return reports whether an already-graded record was
// overwritten, which the CSV import surfaces as a warning.
func (s *Service) applyOne(ctx context.Context, studentID string, assessment *shared.AssessmentDefinition, score *float64, comments, gradedBy string) (*shared.StudentGradeRecord, bool, error) {
	if err := s.validator.Check(ctx, studentID, assessment, score); err != nil {
		return nil, false, err
	}

	now := s.now()
	rec := &shared.StudentGradeRecord{
		StudentID:    studentID,
		AssessmentID: assessment.ID,
		Score:        score,
		Comments:     comments,
		GradedBy:     gradedBy,
		UpdatedAt:    now,
	}
	if score != nil {
		rec.GradedDate = &now
	}

	// Carry forward fields a grade edit must not erase.
	overwroteGraded := false
	if existing, err := s.store.GradeForStudentAssessment(ctx, studentID, assessment.ID); err == nil {
		overwroteGraded = existing.Graded()
		rec.SubmittedDate = existing.SubmittedDate
		rec.IsModerated = existing.IsModerated
		rec.ModeratedBy = existing.ModeratedBy
		rec.ModeratedDate = existing.ModeratedDate
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("load existing grade: %w", err)
	}

	stored, err := s.store.UpsertGrade(ctx, rec)
	if err != nil {
		return nil, false, fmt.Errorf("persist grade: %w", err)
	}
	return stored, overwroteGraded, nil
}

// ============================================================================
// Bulk Grade Writes
// ============================================================================

// GradeUpdate is one row of a bulk submission. A row addresses its record
// either by GradeID or by the (StudentID, AssessmentID) pair. GradedBy
// overrides the batch grader for that row when set, for registrars
// submitting corrections on behalf of individual markers.
type GradeUpdate struct {
	GradeID      string   `json:"grade_id,omitempty"`
	StudentID    string   `json:"student_id,omitempty"`
	AssessmentID string   `json:"assessment_id,omitempty"`
	Score        *float64 `json:"score"`
	Comments     string   `json:"comments,omitempty"`
	GradedBy     string   `json:"graded_by,omitempty"`
}

// BulkOutcome is the per-row result of a bulk submission.
type BulkOutcome struct {
	StudentID    string                     `json:"student_id"`
	AssessmentID string                     `json:"assessment_id"`
	Record       *shared.StudentGradeRecord `json:"record,omitempty"`
	Error        string                     `json:"error,omitempty"`
}

type recomputeTarget struct {
	courseID string
	termID   string
}

// ApplyGradesBulk processes every row of a batch independently: one bad row
// fails alone, the rest still apply. Recomputation runs once per affected
// student after all writes, bounded by the service parallelism, and its
// failures come back as warnings. A batch without a grader identity is
// rejected outright.
func (s *Service) ApplyGradesBulk(ctx context.Context, updates []GradeUpdate, gradedBy string) ([]BulkOutcome, []string, error) {
	if gradedBy == "" {
		return nil, nil, ErrUnauthenticated
	}

	outcomes := make([]BulkOutcome, 0, len(updates))
	perStudent := make(map[string]map[recomputeTarget]struct{})

	for i, u := range updates {
		studentID, assessmentID := u.StudentID, u.AssessmentID
		if u.GradeID != "" {
			rec, err := s.store.Grade(ctx, u.GradeID)
			if err != nil {
				outcomes = append(outcomes, BulkOutcome{
					StudentID:    studentID,
					AssessmentID: assessmentID,
					Error:        fmt.Sprintf("row %d: grade %s: %v", i+1, u.GradeID, err),
				})
				continue
			}
			studentID, assessmentID = rec.StudentID, rec.AssessmentID
		}
		if studentID == "" || assessmentID == "" {
			outcomes = append(outcomes, BulkOutcome{
				StudentID:    studentID,
				AssessmentID: assessmentID,
				Error:        fmt.Sprintf("row %d: needs grade_id or student_id and assessment_id", i+1),
			})
			continue
		}

		assessment, err := s.store.Assessment(ctx, assessmentID)
		if err != nil {
			outcomes = append(outcomes, BulkOutcome{
				StudentID:    studentID,
				AssessmentID: assessmentID,
				Error:        fmt.Sprintf("row %d: assessment %s: %v", i+1, assessmentID, err),
			})
			continue
		}

		grader := u.GradedBy
		if grader == "" {
			grader = gradedBy
		}
		stored, _, err := s.applyOne(ctx, studentID, assessment, u.Score, u.Comments, grader)
		if err != nil {
			outcomes = append(outcomes, BulkOutcome{
				StudentID:    studentID,
				AssessmentID: assessmentID,
				Error:        fmt.Sprintf("row %d: %v", i+1, err),
			})
			continue
		}
		outcomes = append(outcomes, BulkOutcome{
			StudentID:    studentID,
			AssessmentID: assessmentID,
			Record:       stored,
		})

		targets, ok := perStudent[studentID]
		if !ok {
			targets = make(map[recomputeTarget]struct{})
			perStudent[studentID] = targets
		}
		targets[recomputeTarget{courseID: assessment.CourseID, termID: assessment.TermID}] = struct{}{}
	}

	warnings := s.recomputeStudents(ctx, perStudent)
	return outcomes, warnings, nil
}

// recomputeStudents refreshes course results and GPA for each affected
// student. Failures never abort the batch; each becomes a warning.
func (s *Service) recomputeStudents(ctx context.Context, perStudent map[string]map[recomputeTarget]struct{}) []string {
	var (
		mu       sync.Mutex
		warnings []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for studentID, targets := range perStudent {
		studentID, targets := studentID, targets
		g.Go(func() error {
			for t := range targets {
				if err := s.agg.RecomputeCourseResult(gctx, studentID, t.courseID, t.termID); err != nil {
					mu.Lock()
					warnings = append(warnings, fmt.Sprintf("aggregation failed for student %s course %s: %v", studentID, t.courseID, err))
					mu.Unlock()
				}
			}
			if err := s.agg.RecomputeGPA(gctx, studentID); err != nil {
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("GPA recomputation failed for student %s: %v", studentID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		warnings = append(warnings, fmt.Sprintf("recomputation aborted: %v", err))
	}

	for _, w := range warnings {
		log.Printf("Warning: %s", w)
	}
	return warnings
}

// ============================================================================
// CSV Import
// ============================================================================

// ImportResult summarizes a CSV import. Success means every data row
// applied; any row-level failure flips it to false while the good rows
// stay committed.
type ImportResult struct {
	Success       bool     `json:"success"`
	ImportedCount int      `json:"imported_count"`
	FailedCount   int      `json:"failed_count"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
}

// ImportGradesFromCSV applies a CSV payload of scores against one
// assessment. Rows identify students by student number; each row succeeds
// or fails on its own, with failures collected as messages naming the row
// and student. Overwriting an already-graded record adds a warning, as
// does any post-write aggregation failure.
func (s *Service) ImportGradesFromCSV(ctx context.Context, assessmentID string, r io.Reader, importedBy string) (*ImportResult, error) {
	assessment, err := s.store.Assessment(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("load assessment %s: %w", assessmentID, err)
	}

	rows, err := ParseGradeCSV(r)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}
	perStudent := make(map[string]map[recomputeTarget]struct{})
	target := recomputeTarget{courseID: assessment.CourseID, termID: assessment.TermID}

	for _, row := range rows {
		if row.Err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", row.Line, row.Err))
			continue
		}
		if row.StudentNumber == "" {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: missing student number", row.Line))
			continue
		}

		student, err := s.store.StudentByNumber(ctx, row.StudentNumber)
		if err != nil {
			result.FailedCount++
			if errors.Is(err, store.ErrNotFound) {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: student not found: %s", row.Line, row.StudentNumber))
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d (%s): student lookup: %v", row.Line, row.StudentNumber, err))
			}
			continue
		}

		score, err := validate.ParseScore(row.RawScore)
		if err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d (%s): %v", row.Line, row.StudentNumber, err))
			continue
		}

		_, overwroteGraded, err := s.applyOne(ctx, student.ID, assessment, score, row.Comments, importedBy)
		if err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d (%s): %v", row.Line, row.StudentNumber, err))
			continue
		}

		result.ImportedCount++
		if overwroteGraded {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Updated existing grade for %s", row.StudentNumber))
		}

		targets, ok := perStudent[student.ID]
		if !ok {
			targets = make(map[recomputeTarget]struct{})
			perStudent[student.ID] = targets
		}
		targets[target] = struct{}{}
	}

	result.Warnings = append(result.Warnings, s.recomputeStudents(ctx, perStudent)...)
	result.Success = result.FailedCount == 0
	return result, nil
}

// ============================================================================
// Assessment Statistics
// ============================================================================

// AssessmentStats is the grading-progress snapshot for one assessment.
type AssessmentStats struct {
	AssessmentID   string `json:"assessment_id"`
	TotalStudents  int    `json:"total_students"`
	SubmittedCount int    `json:"submitted_count"`
	GradedCount    int    `json:"graded_count"`
	PendingCount   int    `json:"pending_count"`
}

// Stats reports how far grading has progressed for an assessment, measured
// against the course's enrolled roster.
func (s *Service) Stats(ctx context.Context, assessmentID string) (*AssessmentStats, error) {
	assessment, err := s.store.Assessment(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("load assessment %s: %w", assessmentID, err)
	}

	enrolled, err := s.store.EnrolledStudents(ctx, assessment.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	grades, err := s.store.GradesForAssessment(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("load grades: %w", err)
	}

	stats := &AssessmentStats{
		AssessmentID:  assessmentID,
		TotalStudents: len(enrolled),
	}
	for _, g := range grades {
		if g.SubmittedDate != nil {
			stats.SubmittedCount++
		}
		if g.Graded() {
			stats.GradedCount++
		}
	}
	stats.PendingCount = stats.TotalStudents - stats.GradedCount
	if stats.PendingCount < 0 {
		stats.PendingCount = 0
	}
	return stats, nil
}
