package aggregate

import (
	"context"
	"testing"
	"time"

	"acadgrade/internal/shared"
	"acadgrade/internal/store"
)

const (
	testStudent = "student-agg-001"
	testCourse  = "course-agg-001"
	testCourse2 = "course-agg-002"
	testTerm    = "term-agg-001"
	testTerm2   = "term-agg-002"
)

func setupService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := context.Background()

	fixtures := []error{
		st.PutStudent(ctx, &shared.Student{ID: testStudent, StudentNumber: "S100", FullName: "Agg Student", IsActive: true}),
		st.PutCourse(ctx, &shared.Course{ID: testCourse, Code: "CS-201", Name: "Data Structures", CreditHours: 3}),
		st.PutCourse(ctx, &shared.Course{ID: testCourse2, Code: "MATH-101", Name: "Calculus I", CreditHours: 4}),
		st.PutTerm(ctx, &shared.Term{ID: testTerm, Name: "Semester 1", StartDate: time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)}),
		st.PutTerm(ctx, &shared.Term{ID: testTerm2, Name: "Semester 2", StartDate: time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)}),
		st.PutEnrollment(ctx, &shared.Enrollment{StudentID: testStudent, CourseID: testCourse, TermID: testTerm, Status: shared.StatusEnrolled}),
		st.PutEnrollment(ctx, &shared.Enrollment{StudentID: testStudent, CourseID: testCourse2, TermID: testTerm, Status: shared.StatusEnrolled}),
	}
	for _, err := range fixtures {
		if err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}

	return New(st, shared.DefaultGradeScale(), shared.DefaultStandingScale()), st
}

func putAssessment(t *testing.T, st *store.MemoryStore, id, courseID string, weight, maxScore float64) {
	t.Helper()
	err := st.PutAssessment(context.Background(), &shared.AssessmentDefinition{
		ID:         id,
		CourseID:   courseID,
		TermID:     testTerm,
		Name:       id,
		Category:   shared.CategoryAssignment,
		Weight:     weight,
		MaxScore:   maxScore,
		IsRequired: true,
	})
	if err != nil {
		t.Fatalf("Setup failed (assessment %s): %v", id, err)
	}
}

func putGrade(t *testing.T, st *store.MemoryStore, studentID, assessmentID string, score float64) {
	t.Helper()
	now := time.Now()
	_, err := st.UpsertGrade(context.Background(), &shared.StudentGradeRecord{
		StudentID:    studentID,
		AssessmentID: assessmentID,
		Score:        &score,
		GradedDate:   &now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("Setup failed (grade %s): %v", assessmentID, err)
	}
}

func resultFor(t *testing.T, st *store.MemoryStore, courseID string) *shared.CourseResult {
	t.Helper()
	results, err := st.CourseResultsForStudent(context.Background(), testStudent)
	if err != nil {
		t.Fatalf("Failed to load results: %v", err)
	}
	for i := range results {
		if results[i].CourseID == courseID {
			return &results[i]
		}
	}
	return nil
}

func TestRecomputeCourseResult(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()

	putAssessment(t, st, "asmt-mid", testCourse, 40, 50)
	putAssessment(t, st, "asmt-fin", testCourse, 60, 100)

	// ========================================================================
	// Test 1: Weighted total over both graded assessments
	// ========================================================================
	t.Run("Weighted Total", func(t *testing.T) {
		putGrade(t, st, testStudent, "asmt-mid", 40) // 80% of max
		putGrade(t, st, testStudent, "asmt-fin", 90) // 90% of max

		if err := svc.RecomputeCourseResult(ctx, testStudent, testCourse, testTerm); err != nil {
			t.Fatalf("Recompute failed: %v", err)
		}

		res := resultFor(t, st, testCourse)
		if res == nil {
			t.Fatal("No course result written")
		}
		// (0.8*40 + 0.9*60) / 100 * 100 = 86
		if res.TotalScore != 86 {
			t.Errorf("Expected total 86, got %g", res.TotalScore)
		}
		if res.FinalGrade != shared.GradeHD {
			t.Errorf("Expected HD, got %s", res.FinalGrade)
		}
		if res.GradePoints != 4.0 {
			t.Errorf("Expected 4.0 grade points, got %g", res.GradePoints)
		}
		if !res.IsPassed {
			t.Error("Expected passing result")
		}
	})

	// ========================================================================
	// Test 2: Idempotence — same inputs, same output
	// ========================================================================
	t.Run("Idempotent", func(t *testing.T) {
		before := resultFor(t, st, testCourse)
		if err := svc.RecomputeCourseResult(ctx, testStudent, testCourse, testTerm); err != nil {
			t.Fatalf("Recompute failed: %v", err)
		}
		after := resultFor(t, st, testCourse)
		if before.TotalScore != after.TotalScore || before.FinalGrade != after.FinalGrade || before.ID != after.ID {
			t.Errorf("Recompute not idempotent: %+v vs %+v", before, after)
		}
	})

	// ========================================================================
	// Test 3: Partial grading normalizes over graded weight only
	// ========================================================================
	t.Run("Partial Grading", func(t *testing.T) {
		putAssessment(t, st, "asmt2-mid", testCourse2, 40, 100)
		putAssessment(t, st, "asmt2-fin", testCourse2, 60, 100)
		putGrade(t, st, testStudent, "asmt2-mid", 75)

		if err := svc.RecomputeCourseResult(ctx, testStudent, testCourse2, testTerm); err != nil {
			t.Fatalf("Recompute failed: %v", err)
		}

		res := resultFor(t, st, testCourse2)
		// Only the 40-weight assessment graded: 0.75*40/40*100 = 75
		if res.TotalScore != 75 {
			t.Errorf("Expected total 75, got %g", res.TotalScore)
		}
		if res.FinalGrade != shared.GradeD {
			t.Errorf("Expected D, got %s", res.FinalGrade)
		}
	})
}

func TestRecomputeCourseResult_NoGrades(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()

	putAssessment(t, st, "asmt-mid", testCourse, 40, 50)

	if err := svc.RecomputeCourseResult(ctx, testStudent, testCourse, testTerm); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	res := resultFor(t, st, testCourse)
	if res == nil {
		t.Fatal("Expected a TBD result row to be written")
	}
	if res.FinalGrade != shared.GradeTBD {
		t.Errorf("Expected TBD, got %s", res.FinalGrade)
	}
	if res.CountsTowardGPA() {
		t.Error("TBD result must not count toward GPA")
	}

	// A TBD-only student gets no transcript rows.
	if err := svc.RecomputeGPA(ctx, testStudent); err != nil {
		t.Fatalf("RecomputeGPA failed: %v", err)
	}
	transcripts, err := st.TranscriptsForStudent(ctx, testStudent)
	if err != nil {
		t.Fatalf("Failed to load transcripts: %v", err)
	}
	if len(transcripts) != 0 {
		t.Errorf("Expected no transcripts, got %d", len(transcripts))
	}
}

func TestRecomputeGPA(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()

	// Course 1 (3 credit hours): 86% -> HD -> 4.0
	putAssessment(t, st, "asmt-mid", testCourse, 40, 50)
	putAssessment(t, st, "asmt-fin", testCourse, 60, 100)
	putGrade(t, st, testStudent, "asmt-mid", 40)
	putGrade(t, st, testStudent, "asmt-fin", 90)
	if err := svc.RecomputeForStudent(ctx, testStudent, testCourse, testTerm); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	t.Run("Single Course GPA", func(t *testing.T) {
		transcripts, _ := st.TranscriptsForStudent(ctx, testStudent)
		if len(transcripts) != 1 {
			t.Fatalf("Expected 1 transcript, got %d", len(transcripts))
		}
		rec := transcripts[0]
		if rec.SemesterGPA != 4.0 || rec.CumulativeGPA != 4.0 {
			t.Errorf("Expected 4.0/4.0, got %g/%g", rec.SemesterGPA, rec.CumulativeGPA)
		}
		if rec.CreditHoursAttempted != 3 || rec.CreditHoursEarned != 3 {
			t.Errorf("Expected 3/3 credit hours, got %g/%g", rec.CreditHoursAttempted, rec.CreditHoursEarned)
		}
		if rec.AcademicStanding != "Dean's List" {
			t.Errorf("Expected Dean's List, got %s", rec.AcademicStanding)
		}
	})

	// Course 2 (4 credit hours): 45% -> F -> 0.0. Adding a failing course
	// must lower the GPA.
	t.Run("Failing Course Lowers GPA", func(t *testing.T) {
		putAssessment(t, st, "asmt2-fin", testCourse2, 100, 100)
		putGrade(t, st, testStudent, "asmt2-fin", 45)
		if err := svc.RecomputeForStudent(ctx, testStudent, testCourse2, testTerm); err != nil {
			t.Fatalf("Recompute failed: %v", err)
		}

		transcripts, _ := st.TranscriptsForStudent(ctx, testStudent)
		if len(transcripts) != 1 {
			t.Fatalf("Expected 1 transcript, got %d", len(transcripts))
		}
		rec := transcripts[0]
		// (4.0*3 + 0.0*4) / 7 = 1.714... -> 1.71
		if rec.SemesterGPA != 1.71 {
			t.Errorf("Expected semester GPA 1.71, got %g", rec.SemesterGPA)
		}
		if rec.CreditHoursAttempted != 7 || rec.CreditHoursEarned != 3 {
			t.Errorf("Expected 7 attempted / 3 earned, got %g/%g", rec.CreditHoursAttempted, rec.CreditHoursEarned)
		}
		if rec.AcademicStanding != "Probation" {
			t.Errorf("Expected Probation, got %s", rec.AcademicStanding)
		}
	})
}

func TestRecomputeGPA_CumulativeAcrossTerms(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()

	// Term 1: course 1 at 86% (HD, 4.0, 3ch).
	putAssessment(t, st, "asmt-mid", testCourse, 40, 50)
	putAssessment(t, st, "asmt-fin", testCourse, 60, 100)
	putGrade(t, st, testStudent, "asmt-mid", 40)
	putGrade(t, st, testStudent, "asmt-fin", 90)
	if err := svc.RecomputeForStudent(ctx, testStudent, testCourse, testTerm); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	// Term 2: course 2 at 65% (C, 2.0, 4ch).
	if err := st.PutAssessment(ctx, &shared.AssessmentDefinition{
		ID: "asmt-t2", CourseID: testCourse2, TermID: testTerm2,
		Name: "Final", Category: shared.CategoryFinal, Weight: 100, MaxScore: 100, IsRequired: true,
	}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	putGrade(t, st, testStudent, "asmt-t2", 65)
	if err := svc.RecomputeForStudent(ctx, testStudent, testCourse2, testTerm2); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	transcripts, _ := st.TranscriptsForStudent(ctx, testStudent)
	if len(transcripts) != 2 {
		t.Fatalf("Expected 2 transcripts, got %d", len(transcripts))
	}

	byTerm := make(map[string]shared.TranscriptRecord)
	for _, rec := range transcripts {
		byTerm[rec.TermID] = rec
	}

	first := byTerm[testTerm]
	if first.SemesterGPA != 4.0 || first.CumulativeGPA != 4.0 {
		t.Errorf("Term 1: expected 4.0/4.0, got %g/%g", first.SemesterGPA, first.CumulativeGPA)
	}

	second := byTerm[testTerm2]
	if second.SemesterGPA != 2.0 {
		t.Errorf("Term 2: expected semester GPA 2.0, got %g", second.SemesterGPA)
	}
	// Cumulative: (4.0*3 + 2.0*4) / 7 = 2.857... -> 2.86
	if second.CumulativeGPA != 2.86 {
		t.Errorf("Term 2: expected cumulative GPA 2.86, got %g", second.CumulativeGPA)
	}
	if second.AcademicStanding != "Satisfactory" {
		t.Errorf("Term 2: expected Satisfactory, got %s", second.AcademicStanding)
	}
}

func TestStandingThresholds(t *testing.T) {
	scale := shared.DefaultStandingScale()
	cases := []struct {
		gpa  float64
		want string
	}{
		{4.0, "Dean's List"},
		{3.5, "Dean's List"},
		{3.49, "Good Standing"},
		{3.0, "Good Standing"},
		{2.0, "Satisfactory"},
		{1.0, "Probation"},
		{0.99, "Academic Suspension"},
	}
	for _, c := range cases {
		if got := scale.Standing(c.gpa); got != c.want {
			t.Errorf("Standing(%g) = %s, expected %s", c.gpa, got, c.want)
		}
	}
}
