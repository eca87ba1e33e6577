// ============================================================================
// internal/store/memory.go
// In-memory implementation of the grade record store (tests, local runs)
// ============================================================================

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"acadgrade/internal/shared"
)

// MemoryStore is a map-backed Store. It mirrors the single-document upsert
// semantics of the Mongo store and is safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments map[string]shared.AssessmentDefinition
	grades      map[string]shared.StudentGradeRecord
	results     map[string]shared.CourseResult     // keyed student|course|term
	transcripts map[string]shared.TranscriptRecord // keyed student|term
	students    map[string]shared.Student
	courses     map[string]shared.Course
	terms       map[string]shared.Term
	enrollments map[string]shared.Enrollment
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assessments: make(map[string]shared.AssessmentDefinition),
		grades:      make(map[string]shared.StudentGradeRecord),
		results:     make(map[string]shared.CourseResult),
		transcripts: make(map[string]shared.TranscriptRecord),
		students:    make(map[string]shared.Student),
		courses:     make(map[string]shared.Course),
		terms:       make(map[string]shared.Term),
		enrollments: make(map[string]shared.Enrollment),
	}
}

// ============================================================================
// Assessment Definitions
// ============================================================================

func (s *MemoryStore) Assessment(ctx context.Context, id string) (*shared.AssessmentDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assessments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) AssessmentsForCourseTerm(ctx context.Context, courseID, termID string) ([]shared.AssessmentDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []shared.AssessmentDefinition
	for _, a := range s.assessments {
		if a.CourseID == courseID && a.TermID == termID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *MemoryStore) AssessmentsInScope(ctx context.Context, f Filter) ([]shared.AssessmentDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []shared.AssessmentDefinition
	for _, a := range s.assessments {
		if f.TermID != "" && a.TermID != f.TermID {
			continue
		}
		if f.CourseID != "" && a.CourseID != f.CourseID {
			continue
		}
		if f.DepartmentID != "" {
			course, ok := s.courses[a.CourseID]
			if !ok || course.DepartmentID != f.DepartmentID {
				continue
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) PutAssessment(ctx context.Context, a *shared.AssessmentDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assessments[a.ID] = *a
	return nil
}

func (s *MemoryStore) SetAssessmentLock(ctx context.Context, id string, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assessments[id]
	if !ok {
		return ErrNotFound
	}
	a.IsLocked = locked
	a.UpdatedAt = time.Now()
	s.assessments[id] = a
	return nil
}

// ============================================================================
// Student Grade Records
// ============================================================================

func (s *MemoryStore) Grade(ctx context.Context, id string) (*shared.StudentGradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.grades[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneGrade(rec)
	return &out, nil
}

func (s *MemoryStore) GradeForStudentAssessment(ctx context.Context, studentID, assessmentID string) (*shared.StudentGradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.grades {
		if rec.StudentID == studentID && rec.AssessmentID == assessmentID {
			out := cloneGrade(rec)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GradesForAssessment(ctx context.Context, assessmentID string) ([]shared.StudentGradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []shared.StudentGradeRecord
	for _, rec := range s.grades {
		if rec.AssessmentID == assessmentID {
			out = append(out, cloneGrade(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (s *MemoryStore) GradesForStudent(ctx context.Context, studentID string) ([]shared.StudentGradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []shared.StudentGradeRecord
	for _, rec := range s.grades {
		if rec.StudentID == studentID {
			out = append(out, cloneGrade(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssessmentID < out[j].AssessmentID })
	return out, nil
}

func (s *MemoryStore) UpsertGrade(ctx context.Context, rec *shared.StudentGradeRecord) (*shared.StudentGradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.grades {
		if existing.StudentID == rec.StudentID && existing.AssessmentID == rec.AssessmentID {
			updated := cloneGrade(*rec)
			updated.ID = id
			updated.CreatedAt = existing.CreatedAt
			s.grades[id] = updated
			out := cloneGrade(updated)
			return &out, nil
		}
	}

	created := cloneGrade(*rec)
	if created.ID == "" {
		created.ID = shared.GenerateGradeRecordID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = created.UpdatedAt
	}
	s.grades[created.ID] = created
	out := cloneGrade(created)
	return &out, nil
}

// ============================================================================
// Course Results
// ============================================================================

func (s *MemoryStore) CourseResultsForStudent(ctx context.Context, studentID string) ([]shared.CourseResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []shared.CourseResult
	for _, res := range s.results {
		if res.StudentID == studentID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TermID != out[j].TermID {
			return out[i].TermID < out[j].TermID
		}
		return out[i].CourseID < out[j].CourseID
	})
	return out, nil
}

func (s *MemoryStore) PutCourseResult(ctx context.Context, res *shared.CourseResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := res.StudentID + "|" + res.CourseID + "|" + res.TermID
	stored := *res
	if existing, ok := s.results[key]; ok {
		stored.ID = existing.ID
	} else if stored.ID == "" {
		stored.ID = shared.GenerateCourseResultID()
	}
	s.results[key] = stored
	return nil
}

// ============================================================================
// Transcript Records
// ============================================================================

func (s *MemoryStore) TranscriptsForStudent(ctx context.Context, studentID string) ([]shared.TranscriptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []shared.TranscriptRecord
	for _, rec := range s.transcripts {
		if rec.StudentID == studentID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TermID < out[j].TermID })
	return out, nil
}

func (s *MemoryStore) PutTranscript(ctx context.Context, rec *shared.TranscriptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rec.StudentID + "|" + rec.TermID
	stored := *rec
	if existing, ok := s.transcripts[key]; ok {
		stored.ID = existing.ID
	} else if stored.ID == "" {
		stored.ID = shared.GenerateTranscriptID()
	}
	s.transcripts[key] = stored
	return nil
}

// ============================================================================
// Reference Data
// ============================================================================

func (s *MemoryStore) StudentByID(ctx context.Context, id string) (*shared.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &st, nil
}

func (s *MemoryStore) StudentByNumber(ctx context.Context, number string) (*shared.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.students {
		if st.StudentNumber == number {
			out := st
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) PutStudent(ctx context.Context, st *shared.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.students[st.ID] = *st
	return nil
}

func (s *MemoryStore) CourseByID(ctx context.Context, id string) (*shared.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.courses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) PutCourse(ctx context.Context, c *shared.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.courses[c.ID] = *c
	return nil
}

func (s *MemoryStore) TermByID(ctx context.Context, id string) (*shared.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.terms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) PutTerm(ctx context.Context, t *shared.Term) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.terms[t.ID] = *t
	return nil
}

func (s *MemoryStore) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID && e.Status == shared.StatusEnrolled {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) EnrolledStudents(ctx context.Context, courseID string) ([]shared.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []shared.Student
	for _, e := range s.enrollments {
		if e.CourseID != courseID || e.Status != shared.StatusEnrolled {
			continue
		}
		if st, ok := s.students[e.StudentID]; ok {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentNumber < out[j].StudentNumber })
	return out, nil
}

func (s *MemoryStore) PutEnrollment(ctx context.Context, e *shared.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *e
	if stored.ID == "" {
		stored.ID = shared.GenerateID("ENR")
	}
	s.enrollments[stored.ID] = stored
	return nil
}

// cloneGrade deep-copies the pointer fields so callers cannot alias stored
// state.
func cloneGrade(rec shared.StudentGradeRecord) shared.StudentGradeRecord {
	out := rec
	if rec.Score != nil {
		v := *rec.Score
		out.Score = &v
	}
	if rec.SubmittedDate != nil {
		v := *rec.SubmittedDate
		out.SubmittedDate = &v
	}
	if rec.GradedDate != nil {
		v := *rec.GradedDate
		out.GradedDate = &v
	}
	if rec.ModeratedDate != nil {
		v := *rec.ModeratedDate
		out.ModeratedDate = &v
	}
	return out
}
