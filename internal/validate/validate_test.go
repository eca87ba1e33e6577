package validate

import (
	"context"
	"testing"
	"time"

	"acadgrade/internal/shared"
	"acadgrade/internal/store"
)

func testAssessment() *shared.AssessmentDefinition {
	return &shared.AssessmentDefinition{
		ID:       "asmt-test-001",
		CourseID: "course-test-001",
		TermID:   "term-test-001",
		Name:     "Midterm Exam",
		Category: shared.CategoryMidterm,
		Weight:   30,
		MaxScore: 100,
		DueDate:  time.Now().AddDate(0, 1, 0),
	}
}

func setupValidator(t *testing.T) (*Validator, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := context.Background()

	if err := st.PutStudent(ctx, &shared.Student{ID: "student-test-001", StudentNumber: "S001", FullName: "Student One", IsActive: true}); err != nil {
		t.Fatalf("Setup failed (student): %v", err)
	}
	if err := st.PutEnrollment(ctx, &shared.Enrollment{
		StudentID: "student-test-001",
		CourseID:  "course-test-001",
		TermID:    "term-test-001",
		Status:    shared.StatusEnrolled,
	}); err != nil {
		t.Fatalf("Setup failed (enrollment): %v", err)
	}
	return New(st), st
}

func TestParseScore(t *testing.T) {
	t.Run("Empty Means No Score", func(t *testing.T) {
		for _, raw := range []string{"", "   ", "\t"} {
			score, err := ParseScore(raw)
			if err != nil {
				t.Fatalf("ParseScore(%q) failed: %v", raw, err)
			}
			if score != nil {
				t.Errorf("ParseScore(%q) = %v, expected nil", raw, *score)
			}
		}
	})

	t.Run("Numeric Values", func(t *testing.T) {
		score, err := ParseScore(" 87.5 ")
		if err != nil {
			t.Fatalf("ParseScore failed: %v", err)
		}
		if score == nil || *score != 87.5 {
			t.Errorf("Expected 87.5, got %v", score)
		}
	})

	t.Run("Malformed Values", func(t *testing.T) {
		for _, raw := range []string{"abc", "12abc", "NaN", "Inf", "-Inf"} {
			_, err := ParseScore(raw)
			verr, ok := AsValidation(err)
			if !ok {
				t.Fatalf("ParseScore(%q): expected validation error, got %v", raw, err)
			}
			if verr.Code != CodeMalformedScore {
				t.Errorf("ParseScore(%q): expected %s, got %s", raw, CodeMalformedScore, verr.Code)
			}
		}
	})
}

func TestCheck_ScoreRange(t *testing.T) {
	v, _ := setupValidator(t)
	ctx := context.Background()
	assessment := testAssessment()

	check := func(score float64) error {
		return v.Check(ctx, "student-test-001", assessment, &score)
	}

	// ========================================================================
	// Boundary values: 0 and max are valid, just past max is not
	// ========================================================================
	t.Run("Zero Is Valid", func(t *testing.T) {
		if err := check(0); err != nil {
			t.Errorf("Score 0 rejected: %v", err)
		}
	})

	t.Run("Max Is Valid", func(t *testing.T) {
		if err := check(100); err != nil {
			t.Errorf("Score at max rejected: %v", err)
		}
	})

	t.Run("Just Over Max Is Rejected", func(t *testing.T) {
		err := check(100.01)
		verr, ok := AsValidation(err)
		if !ok || verr.Code != CodeOutOfRange {
			t.Errorf("Expected %s, got %v", CodeOutOfRange, err)
		}
	})

	t.Run("Negative Is Rejected", func(t *testing.T) {
		err := check(-0.5)
		verr, ok := AsValidation(err)
		if !ok || verr.Code != CodeOutOfRange {
			t.Errorf("Expected %s, got %v", CodeOutOfRange, err)
		}
	})

	t.Run("Nil Score Is Always In Range", func(t *testing.T) {
		if err := v.Check(ctx, "student-test-001", assessment, nil); err != nil {
			t.Errorf("Nil score rejected: %v", err)
		}
	})
}

func TestCheck_LockedAssessment(t *testing.T) {
	v, _ := setupValidator(t)
	ctx := context.Background()

	assessment := testAssessment()
	assessment.IsLocked = true

	score := 50.0
	err := v.Check(ctx, "student-test-001", assessment, &score)
	verr, ok := AsValidation(err)
	if !ok || verr.Code != CodeAssessmentLocked {
		t.Errorf("Expected %s, got %v", CodeAssessmentLocked, err)
	}

	// Clearing a score on a locked assessment is still rejected.
	err = v.Check(ctx, "student-test-001", assessment, nil)
	verr, ok = AsValidation(err)
	if !ok || verr.Code != CodeAssessmentLocked {
		t.Errorf("Expected %s for nil score, got %v", CodeAssessmentLocked, err)
	}
}

func TestCheck_Enrollment(t *testing.T) {
	v, st := setupValidator(t)
	ctx := context.Background()
	assessment := testAssessment()
	score := 50.0

	t.Run("Unknown Student Is Rejected", func(t *testing.T) {
		err := v.Check(ctx, "student-unknown", assessment, &score)
		verr, ok := AsValidation(err)
		if !ok || verr.Code != CodeNotEnrolled {
			t.Errorf("Expected %s, got %v", CodeNotEnrolled, err)
		}
	})

	t.Run("Dropped Student Is Rejected", func(t *testing.T) {
		if err := st.PutEnrollment(ctx, &shared.Enrollment{
			ID:        "enr-dropped",
			StudentID: "student-test-002",
			CourseID:  "course-test-001",
			Status:    shared.StatusDropped,
		}); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}

		err := v.Check(ctx, "student-test-002", assessment, &score)
		verr, ok := AsValidation(err)
		if !ok || verr.Code != CodeNotEnrolled {
			t.Errorf("Expected %s, got %v", CodeNotEnrolled, err)
		}
	})
}
