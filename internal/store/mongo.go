// ============================================================================
// internal/store/mongo.go
// MongoDB implementation of the grade record store
// ============================================================================

package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"acadgrade/internal/shared"
)

// MongoStore implements Store on top of MongoDB collections.
type MongoStore struct {
	db             *mongo.Database
	assessmentsCol *mongo.Collection
	gradesCol      *mongo.Collection
	resultsCol     *mongo.Collection
	transcriptsCol *mongo.Collection
	studentsCol    *mongo.Collection
	coursesCol     *mongo.Collection
	termsCol       *mongo.Collection
	enrollmentsCol *mongo.Collection
}

// NewMongoStore creates a MongoStore bound to the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:             db,
		assessmentsCol: db.Collection("assessment_definitions"),
		gradesCol:      db.Collection("student_grades"),
		resultsCol:     db.Collection("course_results"),
		transcriptsCol: db.Collection("transcripts"),
		studentsCol:    db.Collection("students"),
		coursesCol:     db.Collection("courses"),
		termsCol:       db.Collection("terms"),
		enrollmentsCol: db.Collection("enrollments"),
	}
}

// ============================================================================
// Assessment Definitions
// ============================================================================

func (s *MongoStore) Assessment(ctx context.Context, id string) (*shared.AssessmentDefinition, error) {
	var a shared.AssessmentDefinition
	if err := s.assessmentsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, wrapMongoErr(err, "assessment %s", id)
	}
	return &a, nil
}

func (s *MongoStore) AssessmentsForCourseTerm(ctx context.Context, courseID, termID string) ([]shared.AssessmentDefinition, error) {
	filter := bson.M{"course_id": courseID, "term_id": termID}
	cursor, err := s.assessmentsCol.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer cursor.Close(ctx)

	var out []shared.AssessmentDefinition
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode assessments: %w", err)
	}
	return out, nil
}

func (s *MongoStore) AssessmentsInScope(ctx context.Context, f Filter) ([]shared.AssessmentDefinition, error) {
	filter := bson.M{}
	if f.TermID != "" {
		filter["term_id"] = f.TermID
	}
	if f.CourseID != "" {
		filter["course_id"] = f.CourseID
	}

	// Department scoping goes through the courses collection.
	if f.DepartmentID != "" && f.CourseID == "" {
		cursor, err := s.coursesCol.Find(ctx, bson.M{"department_id": f.DepartmentID})
		if err != nil {
			return nil, fmt.Errorf("query department courses: %w", err)
		}
		var courses []shared.Course
		if err := cursor.All(ctx, &courses); err != nil {
			return nil, fmt.Errorf("decode department courses: %w", err)
		}
		ids := make([]string, 0, len(courses))
		for _, c := range courses {
			ids = append(ids, c.ID)
		}
		filter["course_id"] = bson.M{"$in": ids}
	}

	cursor, err := s.assessmentsCol.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query assessments in scope: %w", err)
	}
	defer cursor.Close(ctx)

	var out []shared.AssessmentDefinition
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode assessments in scope: %w", err)
	}
	return out, nil
}

func (s *MongoStore) PutAssessment(ctx context.Context, a *shared.AssessmentDefinition) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.assessmentsCol.ReplaceOne(ctx, bson.M{"_id": a.ID}, a, opts); err != nil {
		return fmt.Errorf("put assessment %s: %w", a.ID, err)
	}
	return nil
}

func (s *MongoStore) SetAssessmentLock(ctx context.Context, id string, locked bool) error {
	update := bson.M{"$set": bson.M{"is_locked": locked, "updated_at": time.Now()}}
	res, err := s.assessmentsCol.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("lock assessment %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================================
// Student Grade Records
// ============================================================================

func (s *MongoStore) Grade(ctx context.Context, id string) (*shared.StudentGradeRecord, error) {
	var rec shared.StudentGradeRecord
	if err := s.gradesCol.FindOne(ctx, bson.M{"_id": id}).Decode(&rec); err != nil {
		return nil, wrapMongoErr(err, "grade %s", id)
	}
	return &rec, nil
}

func (s *MongoStore) GradeForStudentAssessment(ctx context.Context, studentID, assessmentID string) (*shared.StudentGradeRecord, error) {
	filter := bson.M{"student_id": studentID, "assessment_definition_id": assessmentID}
	var rec shared.StudentGradeRecord
	if err := s.gradesCol.FindOne(ctx, filter).Decode(&rec); err != nil {
		return nil, wrapMongoErr(err, "grade for student %s assessment %s", studentID, assessmentID)
	}
	return &rec, nil
}

func (s *MongoStore) GradesForAssessment(ctx context.Context, assessmentID string) ([]shared.StudentGradeRecord, error) {
	cursor, err := s.gradesCol.Find(ctx, bson.M{"assessment_definition_id": assessmentID})
	if err != nil {
		return nil, fmt.Errorf("query assessment grades: %w", err)
	}
	defer cursor.Close(ctx)

	var out []shared.StudentGradeRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode assessment grades: %w", err)
	}
	return out, nil
}

func (s *MongoStore) GradesForStudent(ctx context.Context, studentID string) ([]shared.StudentGradeRecord, error) {
	cursor, err := s.gradesCol.Find(ctx, bson.M{"student_id": studentID})
	if err != nil {
		return nil, fmt.Errorf("query student grades: %w", err)
	}
	defer cursor.Close(ctx)

	var out []shared.StudentGradeRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode student grades: %w", err)
	}
	return out, nil
}

// UpsertGrade writes the mutable fields keyed by (student, assessment). The
// record ID and creation timestamp survive updates; the single-document
// upsert is the atomicity unit the engine relies on.
func (s *MongoStore) UpsertGrade(ctx context.Context, rec *shared.StudentGradeRecord) (*shared.StudentGradeRecord, error) {
	filter := bson.M{
		"student_id":               rec.StudentID,
		"assessment_definition_id": rec.AssessmentID,
	}
	update := bson.M{
		"$set": bson.M{
			"score":          rec.Score,
			"comments":       rec.Comments,
			"graded_by":      rec.GradedBy,
			"graded_date":    rec.GradedDate,
			"submitted_date": rec.SubmittedDate,
			"is_moderated":   rec.IsModerated,
			"moderated_by":   rec.ModeratedBy,
			"moderated_date": rec.ModeratedDate,
			"updated_at":     rec.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":        shared.GenerateGradeRecordID(),
			"created_at": rec.UpdatedAt,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var stored shared.StudentGradeRecord
	if err := s.gradesCol.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return nil, fmt.Errorf("upsert grade for student %s: %w", rec.StudentID, err)
	}
	return &stored, nil
}

// ============================================================================
// Course Results
// ============================================================================

func (s *MongoStore) CourseResultsForStudent(ctx context.Context, studentID string) ([]shared.CourseResult, error) {
	cursor, err := s.resultsCol.Find(ctx, bson.M{"student_id": studentID})
	if err != nil {
		return nil, fmt.Errorf("query course results: %w", err)
	}
	defer cursor.Close(ctx)

	var out []shared.CourseResult
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode course results: %w", err)
	}
	return out, nil
}

// PutCourseResult overwrites the full result row for (student, course, term).
func (s *MongoStore) PutCourseResult(ctx context.Context, res *shared.CourseResult) error {
	filter := bson.M{
		"student_id": res.StudentID,
		"course_id":  res.CourseID,
		"term_id":    res.TermID,
	}
	update := bson.M{
		"$set": bson.M{
			"total_score":    res.TotalScore,
			"final_grade":    res.FinalGrade,
			"grade_points":   res.GradePoints,
			"is_passed":      res.IsPassed,
			"remarks":        res.Remarks,
			"finalized_date": res.FinalizedDate,
			"finalized_by":   res.FinalizedBy,
			"updated_at":     res.UpdatedAt,
		},
		"$setOnInsert": bson.M{"_id": shared.GenerateCourseResultID()},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := s.resultsCol.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("put course result for student %s: %w", res.StudentID, err)
	}
	return nil
}

// ============================================================================
// Transcript Records
// ============================================================================

func (s *MongoStore) TranscriptsForStudent(ctx context.Context, studentID string) ([]shared.TranscriptRecord, error) {
	cursor, err := s.transcriptsCol.Find(ctx, bson.M{"student_id": studentID})
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer cursor.Close(ctx)

	var out []shared.TranscriptRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode transcripts: %w", err)
	}
	return out, nil
}

// PutTranscript overwrites the snapshot row for (student, term).
func (s *MongoStore) PutTranscript(ctx context.Context, rec *shared.TranscriptRecord) error {
	filter := bson.M{"student_id": rec.StudentID, "term_id": rec.TermID}
	update := bson.M{
		"$set": bson.M{
			"semester_gpa":           rec.SemesterGPA,
			"cumulative_gpa":         rec.CumulativeGPA,
			"credit_hours_attempted": rec.CreditHoursAttempted,
			"credit_hours_earned":    rec.CreditHoursEarned,
			"academic_standing":      rec.AcademicStanding,
			"generated_at":           rec.GeneratedAt,
		},
		"$setOnInsert": bson.M{"_id": shared.GenerateTranscriptID()},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := s.transcriptsCol.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("put transcript for student %s: %w", rec.StudentID, err)
	}
	return nil
}

// ============================================================================
// Reference Data
// ============================================================================

func (s *MongoStore) StudentByID(ctx context.Context, id string) (*shared.Student, error) {
	var st shared.Student
	if err := s.studentsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&st); err != nil {
		return nil, wrapMongoErr(err, "student %s", id)
	}
	return &st, nil
}

func (s *MongoStore) StudentByNumber(ctx context.Context, number string) (*shared.Student, error) {
	var st shared.Student
	if err := s.studentsCol.FindOne(ctx, bson.M{"student_number": number}).Decode(&st); err != nil {
		return nil, wrapMongoErr(err, "student number %s", number)
	}
	return &st, nil
}

func (s *MongoStore) PutStudent(ctx context.Context, st *shared.Student) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.studentsCol.ReplaceOne(ctx, bson.M{"_id": st.ID}, st, opts); err != nil {
		return fmt.Errorf("put student %s: %w", st.ID, err)
	}
	return nil
}

func (s *MongoStore) CourseByID(ctx context.Context, id string) (*shared.Course, error) {
	var c shared.Course
	if err := s.coursesCol.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, wrapMongoErr(err, "course %s", id)
	}
	return &c, nil
}

func (s *MongoStore) PutCourse(ctx context.Context, c *shared.Course) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coursesCol.ReplaceOne(ctx, bson.M{"_id": c.ID}, c, opts); err != nil {
		return fmt.Errorf("put course %s: %w", c.ID, err)
	}
	return nil
}

func (s *MongoStore) TermByID(ctx context.Context, id string) (*shared.Term, error) {
	var t shared.Term
	if err := s.termsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, wrapMongoErr(err, "term %s", id)
	}
	return &t, nil
}

func (s *MongoStore) PutTerm(ctx context.Context, t *shared.Term) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.termsCol.ReplaceOne(ctx, bson.M{"_id": t.ID}, t, opts); err != nil {
		return fmt.Errorf("put term %s: %w", t.ID, err)
	}
	return nil
}

func (s *MongoStore) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	filter := bson.M{
		"student_id": studentID,
		"course_id":  courseID,
		"status":     shared.StatusEnrolled,
	}
	count, err := s.enrollmentsCol.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return count > 0, nil
}

func (s *MongoStore) EnrolledStudents(ctx context.Context, courseID string) ([]shared.Student, error) {
	filter := bson.M{"course_id": courseID, "status": shared.StatusEnrolled}
	cursor, err := s.enrollmentsCol.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "student_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer cursor.Close(ctx)

	var enrollments []shared.Enrollment
	if err := cursor.All(ctx, &enrollments); err != nil {
		return nil, fmt.Errorf("decode enrollments: %w", err)
	}

	students := make([]shared.Student, 0, len(enrollments))
	for _, e := range enrollments {
		st, err := s.StudentByID(ctx, e.StudentID)
		if err != nil {
			// Orphaned enrollment rows are skipped rather than failing the
			// whole roster.
			continue
		}
		students = append(students, *st)
	}
	return students, nil
}

func (s *MongoStore) PutEnrollment(ctx context.Context, e *shared.Enrollment) error {
	stored := *e
	if stored.ID == "" {
		stored.ID = shared.GenerateID("ENR")
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.enrollmentsCol.ReplaceOne(ctx, bson.M{"_id": stored.ID}, &stored, opts); err != nil {
		return fmt.Errorf("put enrollment %s: %w", stored.ID, err)
	}
	return nil
}

// wrapMongoErr maps mongo.ErrNoDocuments to ErrNotFound and wraps everything
// else with context.
func wrapMongoErr(err error, format string, args ...interface{}) error {
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
