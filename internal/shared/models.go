// ============================================================================
// internal/shared/models.go
// Shared data models and structs for MongoDB documents
// ============================================================================

package shared

import (
	"fmt"
	"time"
)

// ============================================================================
// Assessment Models
// ============================================================================

// AssessmentCategory classifies a gradable unit of coursework.
type AssessmentCategory string

const (
	CategoryAssignment AssessmentCategory = "assignment"
	CategoryMidterm    AssessmentCategory = "midterm"
	CategoryPractical  AssessmentCategory = "practical"
	CategoryFinal      AssessmentCategory = "final"
	CategoryProject    AssessmentCategory = "project"
	CategoryQuiz       AssessmentCategory = "quiz"
)

// IsValid reports whether the category is one of the known values.
func (c AssessmentCategory) IsValid() bool {
	switch c {
	case CategoryAssignment, CategoryMidterm, CategoryPractical,
		CategoryFinal, CategoryProject, CategoryQuiz:
		return true
	}
	return false
}

// AssessmentDefinition describes one gradable unit of coursework within a
// course and term. Definitions are created by course setup and are read-only
// to the grading engine except for the lock flag.
type AssessmentDefinition struct {
	ID         string             `bson:"_id" json:"id"`
	CourseID   string             `bson:"course_id" json:"course_id"`
	TermID     string             `bson:"term_id" json:"term_id"`
	Name       string             `bson:"name" json:"name"`
	Category   AssessmentCategory `bson:"category" json:"category"`
	Weight     float64            `bson:"weight_percentage" json:"weight_percentage"` // 0-100
	MaxScore   float64            `bson:"max_score" json:"max_score"`
	DueDate    time.Time          `bson:"due_date" json:"due_date"`
	IsRequired bool               `bson:"is_required" json:"is_required"`
	IsLocked   bool               `bson:"is_locked" json:"is_locked"`
	CreatedBy  string             `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// ============================================================================
// Grade Models
// ============================================================================

// StudentGradeRecord is one student's grade for one assessment. Records are
// created implicitly on first grade entry (upsert by student+assessment) and
// never hard-deleted; moderation fields carry the review trail.
type StudentGradeRecord struct {
	ID            string     `bson:"_id" json:"id"`
	StudentID     string     `bson:"student_id" json:"student_id"`
	AssessmentID  string     `bson:"assessment_definition_id" json:"assessment_definition_id"`
	Score         *float64   `bson:"score" json:"score"`
	SubmittedDate *time.Time `bson:"submitted_date,omitempty" json:"submitted_date,omitempty"`
	GradedDate    *time.Time `bson:"graded_date,omitempty" json:"graded_date,omitempty"`
	GradedBy      string     `bson:"graded_by,omitempty" json:"graded_by,omitempty"`
	Comments      string     `bson:"comments" json:"comments"`
	IsModerated   bool       `bson:"is_moderated" json:"is_moderated"`
	ModeratedBy   string     `bson:"moderated_by,omitempty" json:"moderated_by,omitempty"`
	ModeratedDate *time.Time `bson:"moderated_date,omitempty" json:"moderated_date,omitempty"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Graded reports whether a score has been recorded.
func (r *StudentGradeRecord) Graded() bool {
	return r.Score != nil
}

// IsLate reports whether the submission arrived after the given due date.
// A record with no submission timestamp is never late.
func (r *StudentGradeRecord) IsLate(due time.Time) bool {
	return r.SubmittedDate != nil && r.SubmittedDate.After(due)
}

// ============================================================================
// Course Result Models
// ============================================================================

// Final grade letters. GradeTBD marks a result whose course has no graded
// assessments yet; it is excluded from GPA along with W and I.
const (
	GradeHD  = "HD"
	GradeD   = "D"
	GradeC   = "C"
	GradeP   = "P"
	GradeF   = "F"
	GradeW   = "W"
	GradeI   = "I"
	GradeTBD = "TBD"
)

// CourseResult is a student's aggregate outcome for one course in one term.
// It is produced and overwritten entirely by the aggregation engine and is
// never hand-edited while unlocked.
type CourseResult struct {
	ID            string     `bson:"_id" json:"id"`
	StudentID     string     `bson:"student_id" json:"student_id"`
	CourseID      string     `bson:"course_id" json:"course_id"`
	TermID        string     `bson:"term_id" json:"term_id"`
	TotalScore    float64    `bson:"total_score" json:"total_score"` // 0-100 normalized
	FinalGrade    string     `bson:"final_grade" json:"final_grade"`
	GradePoints   float64    `bson:"grade_points" json:"grade_points"`
	IsPassed      bool       `bson:"is_passed" json:"is_passed"`
	Remarks       string     `bson:"remarks,omitempty" json:"remarks,omitempty"`
	FinalizedDate *time.Time `bson:"finalized_date,omitempty" json:"finalized_date,omitempty"`
	FinalizedBy   string     `bson:"finalized_by,omitempty" json:"finalized_by,omitempty"`
	UpdatedAt     time.Time  `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// CountsTowardGPA reports whether this result contributes grade points.
// Withdrawn, incomplete and not-yet-determined results are excluded.
func (r *CourseResult) CountsTowardGPA() bool {
	return r.FinalGrade != GradeW && r.FinalGrade != GradeI && r.FinalGrade != GradeTBD
}

// ============================================================================
// Transcript Models
// ============================================================================

// TranscriptRecord is the GPA snapshot for one student and term: semester GPA
// for that term and cumulative GPA over all terms up to and including it.
// Recomputed wholesale on every qualifying grade change; a cache, never a
// source of truth.
type TranscriptRecord struct {
	ID                   string    `bson:"_id" json:"id"`
	StudentID            string    `bson:"student_id" json:"student_id"`
	TermID               string    `bson:"term_id" json:"term_id"`
	SemesterGPA          float64   `bson:"semester_gpa" json:"semester_gpa"`
	CumulativeGPA        float64   `bson:"cumulative_gpa" json:"cumulative_gpa"`
	CreditHoursAttempted float64   `bson:"credit_hours_attempted" json:"credit_hours_attempted"`
	CreditHoursEarned    float64   `bson:"credit_hours_earned" json:"credit_hours_earned"`
	AcademicStanding     string    `bson:"academic_standing" json:"academic_standing"`
	GeneratedAt          time.Time `bson:"generated_at" json:"generated_at"`
}

// ============================================================================
// Reference Models (read-only to the grading engine)
// ============================================================================

// Student is the reference record grade rows point at. StudentNumber is the
// human-readable identifier used in CSV imports.
type Student struct {
	ID            string    `bson:"_id" json:"id"`
	StudentNumber string    `bson:"student_number" json:"student_number"`
	FullName      string    `bson:"full_name" json:"full_name"`
	ProgramID     string    `bson:"program_id,omitempty" json:"program_id,omitempty"`
	YearLevel     int32     `bson:"year_level,omitempty" json:"year_level,omitempty"`
	IsActive      bool      `bson:"is_active" json:"is_active"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}

// Course carries the credit hours GPA aggregation weights by.
type Course struct {
	ID           string    `bson:"_id" json:"id"`
	Code         string    `bson:"code" json:"code"`
	Name         string    `bson:"name" json:"name"`
	DepartmentID string    `bson:"department_id,omitempty" json:"department_id,omitempty"`
	CreditHours  float64   `bson:"credit_hours" json:"credit_hours"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// Term is one academic semester. StartDate orders terms for the cumulative
// GPA horizon.
type Term struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"` // e.g. "Semester 1 2025"
	AcademicYear string    `bson:"academic_year" json:"academic_year"`
	StartDate    time.Time `bson:"start_date" json:"start_date"`
	IsCurrent    bool      `bson:"is_current" json:"is_current"`
}

// Enrollment statuses.
const (
	StatusEnrolled  = "enrolled"
	StatusDropped   = "dropped"
	StatusCompleted = "completed"
)

// Enrollment links a student to a course for a term.
type Enrollment struct {
	ID         string    `bson:"_id" json:"id"`
	StudentID  string    `bson:"student_id" json:"student_id"`
	CourseID   string    `bson:"course_id" json:"course_id"`
	TermID     string    `bson:"term_id,omitempty" json:"term_id,omitempty"`
	Status     string    `bson:"status" json:"status"`
	EnrolledAt time.Time `bson:"enrolled_at" json:"enrolled_at"`
}

// ============================================================================
// ID Generation Helpers
// ============================================================================

// GenerateID generates a unique ID with prefix and timestamp.
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

// GenerateGradeRecordID generates a student grade record ID.
func GenerateGradeRecordID() string {
	return GenerateID("SGR")
}

// GenerateCourseResultID generates a course result ID.
func GenerateCourseResultID() string {
	return GenerateID("CRS")
}

// GenerateTranscriptID generates a transcript record ID.
func GenerateTranscriptID() string {
	return GenerateID("TRN")
}
