// ============================================================================
// internal/aggregate/service.go
// Derived-state recomputation: course results, GPA, academic standing
// ============================================================================

// Package aggregate recomputes a student's derived academic state from the
// ground-truth grade records. It holds no state of its own: every operation
// is a pure function of the store's current contents, re-run on demand, and
// calling it twice with unchanged inputs yields identical output.
package aggregate

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"acadgrade/internal/shared"
	"acadgrade/internal/store"
)

// Service is the aggregation engine. The grade and standing scales are
// injected policy, never hard-coded at the computation sites.
type Service struct {
	store         store.Store
	gradeScale    shared.GradeScale
	standingScale shared.StandingScale
	now           func() time.Time
}

// New creates an aggregation Service.
func New(st store.Store, gradeScale shared.GradeScale, standingScale shared.StandingScale) *Service {
	return &Service{
		store:         st,
		gradeScale:    gradeScale,
		standingScale: standingScale,
		now:           time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// RecomputeForStudent refreshes the course result for one course/term and
// then the student's full GPA snapshot. This is the trigger point invoked
// after every successful grade write.
func (s *Service) RecomputeForStudent(ctx context.Context, studentID, courseID, termID string) error {
	if err := s.RecomputeCourseResult(ctx, studentID, courseID, termID); err != nil {
		return err
	}
	return s.RecomputeGPA(ctx, studentID)
}

// ============================================================================
// Course Result Recomputation
// ============================================================================

// RecomputeCourseResult rebuilds the (student, course, term) result row from
// the graded assessment records:
//
//	total = Σ(score/max × weight) / Σ(weight) × 100
//
// with both sums running over the same set of graded assessments. When
// nothing is graded yet the row is written as TBD rather than computed. The
// row is always a full overwrite, never a partial update.
func (s *Service) RecomputeCourseResult(ctx context.Context, studentID, courseID, termID string) error {
	assessments, err := s.store.AssessmentsForCourseTerm(ctx, courseID, termID)
	if err != nil {
		return fmt.Errorf("load assessments: %w", err)
	}

	grades, err := s.store.GradesForStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("load grades: %w", err)
	}
	byAssessment := make(map[string]shared.StudentGradeRecord, len(grades))
	for _, g := range grades {
		byAssessment[g.AssessmentID] = g
	}

	// The weight-sum invariant is not enforced at definition time, so flag
	// violations here where they distort totals.
	requiredWeight := 0.0
	for _, a := range assessments {
		if a.IsRequired {
			requiredWeight += a.Weight
		}
	}
	if len(assessments) > 0 && math.Abs(requiredWeight-100) > 1e-9 {
		log.Printf("Warning: required assessment weights for course %s term %s sum to %g, expected 100",
			courseID, termID, requiredWeight)
	}

	var weighted, totalWeight float64
	for _, a := range assessments {
		g, ok := byAssessment[a.ID]
		if !ok || !g.Graded() || a.MaxScore <= 0 {
			continue
		}
		weighted += (*g.Score / a.MaxScore) * a.Weight
		totalWeight += a.Weight
	}

	result := &shared.CourseResult{
		StudentID: studentID,
		CourseID:  courseID,
		TermID:    termID,
		UpdatedAt: s.now(),
	}

	if totalWeight == 0 {
		result.FinalGrade = shared.GradeTBD
	} else {
		percent := weighted / totalWeight * 100
		letter, points := s.gradeScale.Grade(percent)
		result.TotalScore = round2(percent)
		result.FinalGrade = letter
		result.GradePoints = points
		result.IsPassed = s.gradeScale.Passed(percent)
	}

	if err := s.store.PutCourseResult(ctx, result); err != nil {
		return fmt.Errorf("persist course result: %w", err)
	}
	return nil
}

// ============================================================================
// GPA Recomputation
// ============================================================================

type termAccumulator struct {
	term    shared.Term
	points  float64
	credits float64
	earned  float64
}

// RecomputeGPA rebuilds every transcript row for the student. For each term,
// semester GPA is the credit-weighted mean of grade points within the term
// and cumulative GPA is the same mean over all terms up to and including it,
// ordered by term start date. Withdrawn, incomplete and TBD results carry no
// grade points and are skipped entirely.
func (s *Service) RecomputeGPA(ctx context.Context, studentID string) error {
	results, err := s.store.CourseResultsForStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("load course results: %w", err)
	}

	accumulators := make(map[string]*termAccumulator)
	for _, res := range results {
		if !res.CountsTowardGPA() {
			continue
		}

		course, err := s.store.CourseByID(ctx, res.CourseID)
		if err != nil {
			return fmt.Errorf("load course %s: %w", res.CourseID, err)
		}
		if course.CreditHours <= 0 {
			continue
		}

		acc, ok := accumulators[res.TermID]
		if !ok {
			term, err := s.store.TermByID(ctx, res.TermID)
			if err != nil {
				return fmt.Errorf("load term %s: %w", res.TermID, err)
			}
			acc = &termAccumulator{term: *term}
			accumulators[res.TermID] = acc
		}

		acc.points += res.GradePoints * course.CreditHours
		acc.credits += course.CreditHours
		if res.IsPassed {
			acc.earned += course.CreditHours
		}
	}

	if len(accumulators) == 0 {
		return nil
	}

	ordered := make([]*termAccumulator, 0, len(accumulators))
	for _, acc := range accumulators {
		ordered = append(ordered, acc)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].term.StartDate.Equal(ordered[j].term.StartDate) {
			return ordered[i].term.StartDate.Before(ordered[j].term.StartDate)
		}
		return ordered[i].term.ID < ordered[j].term.ID
	})

	var cumulativePoints, cumulativeCredits float64
	generatedAt := s.now()

	for _, acc := range ordered {
		cumulativePoints += acc.points
		cumulativeCredits += acc.credits

		semesterGPA := 0.0
		if acc.credits > 0 {
			semesterGPA = acc.points / acc.credits
		}
		cumulativeGPA := 0.0
		if cumulativeCredits > 0 {
			cumulativeGPA = cumulativePoints / cumulativeCredits
		}

		rec := &shared.TranscriptRecord{
			StudentID:            studentID,
			TermID:               acc.term.ID,
			SemesterGPA:          round2(semesterGPA),
			CumulativeGPA:        round2(cumulativeGPA),
			CreditHoursAttempted: cumulativeCredits,
			CreditHoursEarned:    acc.earned,
			AcademicStanding:     s.standingScale.Standing(cumulativeGPA),
			GeneratedAt:          generatedAt,
		}
		if err := s.store.PutTranscript(ctx, rec); err != nil {
			return fmt.Errorf("persist transcript for term %s: %w", acc.term.ID, err)
		}
	}

	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
