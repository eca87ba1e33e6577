package main

import (
	"context"
	"log"
	"time"

	"acadgrade/internal/shared"
	"acadgrade/internal/store"
)

// Demo reference data used by local runs and manual testing.
const (
	FacultyID1 = "faculty-001"
	FacultyID2 = "faculty-002"

	StudentID1 = "student-001" // Jordan Rivera
	StudentID2 = "student-002" // Alice Wong
	StudentID3 = "student-003" // Ben Okafor

	TermSpring = "term-2026-1"
	TermFall   = "term-2025-2"

	CourseCS101   = "course-cs101"
	CourseCS201   = "course-cs201"
	CourseMATH101 = "course-math101"
)

func main() {
	log.Println("Starting Grade Engine Seeder...")

	if err := shared.LoadEnv(".env"); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := shared.LoadServiceConfig("seeder")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	client, db, err := shared.ConnectMongoDB(&cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer shared.DisconnectMongoDB(client)

	// Clean start so reseeding is deterministic.
	if err := db.Drop(context.Background()); err != nil {
		log.Fatalf("Failed to drop database: %v", err)
	}
	log.Println("Database cleared successfully.")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st := store.NewMongoStore(db)

	seedTerms(ctx, st)
	seedCourses(ctx, st)
	seedStudents(ctx, st)
	seedEnrollments(ctx, st)
	seedAssessments(ctx, st)

	log.Println("Seeding complete.")
}

func seedTerms(ctx context.Context, st store.Store) {
	terms := []shared.Term{
		{ID: TermFall, Name: "Semester 2 2025", AcademicYear: "2025", StartDate: time.Date(2025, 7, 21, 0, 0, 0, 0, time.UTC)},
		{ID: TermSpring, Name: "Semester 1 2026", AcademicYear: "2026", StartDate: time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC), IsCurrent: true},
	}
	for i := range terms {
		if err := st.PutTerm(ctx, &terms[i]); err != nil {
			log.Fatalf("Failed to seed term %s: %v", terms[i].ID, err)
		}
	}
	log.Printf("Seeded %d terms.", len(terms))
}

func seedCourses(ctx context.Context, st store.Store) {
	now := time.Now()
	courses := []shared.Course{
		{ID: CourseCS101, Code: "CS-101", Name: "Introduction to Programming", DepartmentID: "dept-cs", CreditHours: 3, CreatedAt: now},
		{ID: CourseCS201, Code: "CS-201", Name: "Data Structures & Algorithms", DepartmentID: "dept-cs", CreditHours: 3, CreatedAt: now},
		{ID: CourseMATH101, Code: "MATH-101", Name: "Calculus I", DepartmentID: "dept-math", CreditHours: 4, CreatedAt: now},
	}
	for i := range courses {
		if err := st.PutCourse(ctx, &courses[i]); err != nil {
			log.Fatalf("Failed to seed course %s: %v", courses[i].ID, err)
		}
	}
	log.Printf("Seeded %d courses.", len(courses))
}

func seedStudents(ctx context.Context, st store.Store) {
	now := time.Now()
	students := []shared.Student{
		{ID: StudentID1, StudentNumber: "S2026001", FullName: "Jordan Rivera", ProgramID: "prog-bcs", YearLevel: 2, IsActive: true, CreatedAt: now},
		{ID: StudentID2, StudentNumber: "S2026002", FullName: "Alice Wong", ProgramID: "prog-bcs", YearLevel: 1, IsActive: true, CreatedAt: now},
		{ID: StudentID3, StudentNumber: "S2026003", FullName: "Ben Okafor", ProgramID: "prog-bsc", YearLevel: 3, IsActive: true, CreatedAt: now},
	}
	for i := range students {
		if err := st.PutStudent(ctx, &students[i]); err != nil {
			log.Fatalf("Failed to seed student %s: %v", students[i].ID, err)
		}
	}
	log.Printf("Seeded %d students.", len(students))
}

func seedEnrollments(ctx context.Context, st store.Store) {
	now := time.Now()
	enrollments := []shared.Enrollment{
		// Completed history in the fall term.
		{StudentID: StudentID1, CourseID: CourseCS101, TermID: TermFall, Status: shared.StatusEnrolled, EnrolledAt: now.AddDate(0, -8, 0)},
		{StudentID: StudentID2, CourseID: CourseCS101, TermID: TermFall, Status: shared.StatusEnrolled, EnrolledAt: now.AddDate(0, -8, 0)},

		// Current term.
		{StudentID: StudentID1, CourseID: CourseCS201, TermID: TermSpring, Status: shared.StatusEnrolled, EnrolledAt: now.AddDate(0, -1, 0)},
		{StudentID: StudentID2, CourseID: CourseMATH101, TermID: TermSpring, Status: shared.StatusEnrolled, EnrolledAt: now.AddDate(0, -1, 0)},
		{StudentID: StudentID3, CourseID: CourseMATH101, TermID: TermSpring, Status: shared.StatusEnrolled, EnrolledAt: now.AddDate(0, -1, 0)},

		// Dropped: should never receive grades.
		{StudentID: StudentID3, CourseID: CourseCS201, TermID: TermSpring, Status: shared.StatusDropped, EnrolledAt: now.AddDate(0, -1, 0)},
	}
	for i := range enrollments {
		if err := st.PutEnrollment(ctx, &enrollments[i]); err != nil {
			log.Fatalf("Failed to seed enrollment for %s: %v", enrollments[i].StudentID, err)
		}
	}
	log.Printf("Seeded %d enrollments.", len(enrollments))
}

func seedAssessments(ctx context.Context, st store.Store) {
	now := time.Now()
	assessments := []shared.AssessmentDefinition{
		{ID: "asmt-cs201-a1", CourseID: CourseCS201, TermID: TermSpring, Name: "Assignment 1", Category: shared.CategoryAssignment, Weight: 20, MaxScore: 50, DueDate: now.AddDate(0, 0, 14), IsRequired: true, CreatedBy: FacultyID1, CreatedAt: now},
		{ID: "asmt-cs201-mid", CourseID: CourseCS201, TermID: TermSpring, Name: "Midterm Exam", Category: shared.CategoryMidterm, Weight: 30, MaxScore: 100, DueDate: now.AddDate(0, 2, 0), IsRequired: true, CreatedBy: FacultyID1, CreatedAt: now},
		{ID: "asmt-cs201-fin", CourseID: CourseCS201, TermID: TermSpring, Name: "Final Exam", Category: shared.CategoryFinal, Weight: 50, MaxScore: 100, DueDate: now.AddDate(0, 4, 0), IsRequired: true, CreatedBy: FacultyID1, CreatedAt: now},

		{ID: "asmt-math101-q1", CourseID: CourseMATH101, TermID: TermSpring, Name: "Quiz 1", Category: shared.CategoryQuiz, Weight: 10, MaxScore: 20, DueDate: now.AddDate(0, 0, 7), IsRequired: true, CreatedBy: FacultyID2, CreatedAt: now},
		{ID: "asmt-math101-mid", CourseID: CourseMATH101, TermID: TermSpring, Name: "Midterm Exam", Category: shared.CategoryMidterm, Weight: 40, MaxScore: 100, DueDate: now.AddDate(0, 2, 0), IsRequired: true, CreatedBy: FacultyID2, CreatedAt: now},
		{ID: "asmt-math101-fin", CourseID: CourseMATH101, TermID: TermSpring, Name: "Final Exam", Category: shared.CategoryFinal, Weight: 50, MaxScore: 100, DueDate: now.AddDate(0, 4, 0), IsRequired: true, CreatedBy: FacultyID2, CreatedAt: now},

		// Locked: completed fall offering.
		{ID: "asmt-cs101-fin", CourseID: CourseCS101, TermID: TermFall, Name: "Final Exam", Category: shared.CategoryFinal, Weight: 100, MaxScore: 100, DueDate: now.AddDate(0, -5, 0), IsRequired: true, IsLocked: true, CreatedBy: FacultyID1, CreatedAt: now.AddDate(0, -8, 0)},
	}
	for i := range assessments {
		if err := st.PutAssessment(ctx, &assessments[i]); err != nil {
			log.Fatalf("Failed to seed assessment %s: %v", assessments[i].ID, err)
		}
	}
	log.Printf("Seeded %d assessments.", len(assessments))
}
