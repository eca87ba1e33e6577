package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"acadgrade/internal/aggregate"
	"acadgrade/internal/ingest"
	"acadgrade/internal/shared"
	"acadgrade/internal/store"
	"acadgrade/internal/validate"
)

const (
	testCourse     = "course-exp-001"
	testTerm       = "term-exp-001"
	testAssessment = "asmt-exp-001"
	testFaculty    = "faculty-exp-001"
)

func setupService(t *testing.T) (*Service, *ingest.Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := context.Background()

	fixtures := []error{
		st.PutCourse(ctx, &shared.Course{ID: testCourse, Code: "CS-201", Name: "Data Structures", DepartmentID: "dept-cs", CreditHours: 3}),
		st.PutTerm(ctx, &shared.Term{ID: testTerm, Name: "Semester 1", StartDate: time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)}),
		st.PutStudent(ctx, &shared.Student{ID: "student-exp-001", StudentNumber: "S001", FullName: "Student One", IsActive: true}),
		st.PutStudent(ctx, &shared.Student{ID: "student-exp-002", StudentNumber: "S002", FullName: "Student Two", IsActive: true}),
		st.PutStudent(ctx, &shared.Student{ID: "student-exp-003", StudentNumber: "S003", FullName: "Student Three", IsActive: true}),
		st.PutEnrollment(ctx, &shared.Enrollment{StudentID: "student-exp-001", CourseID: testCourse, TermID: testTerm, Status: shared.StatusEnrolled}),
		st.PutEnrollment(ctx, &shared.Enrollment{StudentID: "student-exp-002", CourseID: testCourse, TermID: testTerm, Status: shared.StatusEnrolled}),
		st.PutEnrollment(ctx, &shared.Enrollment{StudentID: "student-exp-003", CourseID: testCourse, TermID: testTerm, Status: shared.StatusEnrolled}),
		st.PutAssessment(ctx, &shared.AssessmentDefinition{
			ID: testAssessment, CourseID: testCourse, TermID: testTerm,
			Name: "Assignment 1", Category: shared.CategoryAssignment,
			Weight: 100, MaxScore: 50, IsRequired: true,
			DueDate: time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC),
		}),
	}
	for _, err := range fixtures {
		if err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}

	agg := aggregate.New(st, shared.DefaultGradeScale(), shared.DefaultStandingScale())
	ing := ingest.New(st, validate.New(st), agg)
	return New(st, shared.DefaultGradeScale()), ing, st
}

func applyScore(t *testing.T, ing *ingest.Service, studentID string, score float64) {
	t.Helper()
	if _, _, err := ing.ApplyGrade(context.Background(), studentID, testAssessment, &score, "", testFaculty); err != nil {
		t.Fatalf("Setup failed (grade for %s): %v", studentID, err)
	}
}

func TestWriteCSV(t *testing.T) {
	svc, ing, _ := setupService(t)
	ctx := context.Background()

	applyScore(t, ing, "student-exp-001", 45) // 90%
	applyScore(t, ing, "student-exp-002", 20) // 40%
	// student-exp-003 stays ungraded.

	var buf bytes.Buffer
	if err := svc.WriteCSV(ctx, testAssessment, &buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Export is not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("Expected header + 3 rows, got %d records", len(records))
	}
	if records[0][0] != "student_number" || records[0][2] != "score" {
		t.Errorf("Unexpected header: %v", records[0])
	}

	// Rows are ordered by student number; ungraded students keep a row with
	// an empty score.
	if records[1][0] != "S001" || records[1][2] != "45" || records[1][3] != "90.0" {
		t.Errorf("Unexpected row for S001: %v", records[1])
	}
	if records[3][0] != "S003" || records[3][2] != "" {
		t.Errorf("Expected empty score row for S003: %v", records[3])
	}
}

func TestCSVRoundTrip(t *testing.T) {
	svc, ing, _ := setupService(t)
	ctx := context.Background()

	applyScore(t, ing, "student-exp-001", 45)
	applyScore(t, ing, "student-exp-002", 20)

	var buf bytes.Buffer
	if err := svc.WriteCSV(ctx, testAssessment, &buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	// Feeding the export straight back must apply cleanly: zero errors,
	// overwrite warnings only for the rows that already carried scores.
	result, err := ing.ImportGradesFromCSV(ctx, testAssessment, &buf, testFaculty)
	if err != nil {
		t.Fatalf("Re-import failed: %v", err)
	}
	if !result.Success || result.FailedCount != 0 {
		t.Errorf("Expected clean round trip, got %+v", result)
	}
	if result.ImportedCount != 3 {
		t.Errorf("Expected 3 rows imported, got %d", result.ImportedCount)
	}
	if len(result.Warnings) != 2 {
		t.Errorf("Expected 2 overwrite warnings, got %v", result.Warnings)
	}
}

func TestWriteCSV_NoRoster(t *testing.T) {
	svc, _, st := setupService(t)
	ctx := context.Background()

	if err := st.PutAssessment(ctx, &shared.AssessmentDefinition{
		ID: "asmt-empty", CourseID: "course-empty", TermID: testTerm,
		Name: "Orphan", Category: shared.CategoryQuiz, Weight: 100, MaxScore: 10,
	}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	var buf bytes.Buffer
	if err := svc.WriteCSV(ctx, "asmt-empty", &buf); err != ErrNoData {
		t.Errorf("Expected ErrNoData, got %v", err)
	}
}

func TestWriteXLSX(t *testing.T) {
	svc, ing, _ := setupService(t)
	ctx := context.Background()

	applyScore(t, ing, "student-exp-001", 45)

	var buf bytes.Buffer
	if err := svc.WriteXLSX(ctx, testAssessment, &buf); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}
	// XLSX files are zip archives; check the signature rather than parsing.
	if buf.Len() == 0 || !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Error("Expected a non-empty zip-formatted workbook")
	}
}

func TestAnalyze(t *testing.T) {
	svc, ing, _ := setupService(t)
	ctx := context.Background()

	applyScore(t, ing, "student-exp-001", 45) // 90% -> HD
	applyScore(t, ing, "student-exp-002", 20) // 40% -> F

	analytics, err := svc.Analyze(ctx, testAssessment)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if analytics.TotalStudents != 3 || analytics.GradedCount != 2 || analytics.PendingCount != 1 {
		t.Errorf("Unexpected counts: %+v", analytics)
	}
	if analytics.CompletionRate != 66.67 {
		t.Errorf("Expected completion 66.67, got %g", analytics.CompletionRate)
	}
	if analytics.Mean != 65 {
		t.Errorf("Expected mean 65, got %g", analytics.Mean)
	}
	if analytics.Min != 40 || analytics.Max != 90 {
		t.Errorf("Expected min 40 / max 90, got %g/%g", analytics.Min, analytics.Max)
	}
	if analytics.Distribution[shared.GradeHD] != 1 || analytics.Distribution[shared.GradeF] != 1 {
		t.Errorf("Unexpected distribution: %v", analytics.Distribution)
	}
	if analytics.Distribution[shared.GradeC] != 0 {
		t.Errorf("Empty buckets must still be present: %v", analytics.Distribution)
	}
}

func TestAnalyzeScope(t *testing.T) {
	svc, ing, st := setupService(t)
	ctx := context.Background()

	applyScore(t, ing, "student-exp-001", 45)
	applyScore(t, ing, "student-exp-002", 20)

	// A second assessment in the same course doubles the grading slots.
	if err := st.PutAssessment(ctx, &shared.AssessmentDefinition{
		ID: "asmt-exp-002", CourseID: testCourse, TermID: testTerm,
		Name: "Quiz 1", Category: shared.CategoryQuiz, Weight: 10, MaxScore: 20, IsRequired: true,
	}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	t.Run("Term Scope", func(t *testing.T) {
		analytics, err := svc.AnalyzeScope(ctx, store.Filter{TermID: testTerm})
		if err != nil {
			t.Fatalf("AnalyzeScope failed: %v", err)
		}
		if analytics.TotalAssessments != 2 {
			t.Errorf("Expected 2 assessments, got %d", analytics.TotalAssessments)
		}
		if analytics.TotalStudents != 3 || analytics.CoursesWithAssessments != 1 {
			t.Errorf("Unexpected scope counts: %+v", analytics)
		}
		// 2 graded of 6 slots.
		if analytics.GradedCount != 2 || analytics.PendingGrades != 4 {
			t.Errorf("Expected 2 graded / 4 pending, got %d/%d", analytics.GradedCount, analytics.PendingGrades)
		}
		if analytics.CompletionRate != 33.33 {
			t.Errorf("Expected completion 33.33, got %g", analytics.CompletionRate)
		}
	})

	t.Run("Department Filter", func(t *testing.T) {
		analytics, err := svc.AnalyzeScope(ctx, store.Filter{DepartmentID: "dept-none"})
		if err != nil {
			t.Fatalf("AnalyzeScope failed: %v", err)
		}
		if analytics.TotalAssessments != 0 || analytics.GradedCount != 0 {
			t.Errorf("Expected empty scope, got %+v", analytics)
		}
	})
}

func TestRows_LateFlag(t *testing.T) {
	svc, _, st := setupService(t)
	ctx := context.Background()

	score := 30.0
	submitted := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC) // after due date
	now := time.Now()
	if _, err := st.UpsertGrade(ctx, &shared.StudentGradeRecord{
		StudentID:     "student-exp-001",
		AssessmentID:  testAssessment,
		Score:         &score,
		SubmittedDate: &submitted,
		GradedDate:    &now,
		UpdatedAt:     now,
	}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	_, rows, err := svc.Rows(ctx, testAssessment)
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	var late bool
	for _, row := range rows {
		if row.StudentNumber == "S001" {
			late = row.IsLate
		}
	}
	if !late {
		t.Error("Expected S001 to be flagged late")
	}

	var buf bytes.Buffer
	if err := svc.WriteCSV(ctx, testAssessment, &buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Yes") {
		t.Error("Expected is_late Yes in export")
	}
}
