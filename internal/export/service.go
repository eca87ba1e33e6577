// ============================================================================
// internal/export/service.go
// Grade exports (CSV, XLSX) and assessment analytics
// ============================================================================

// Package export produces roster-shaped grade exports and score analytics
// for single assessments. Exports cover the full enrolled roster: a student
// without a grade record still gets a row, with an empty score, so a filled
// export round-trips through the CSV importer.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/xuri/excelize/v2"

	"acadgrade/internal/shared"
	"acadgrade/internal/store"
)

// ErrNoData signals an export or analytics request against an assessment
// whose course has no enrolled students.
var ErrNoData = errors.New("export: no students enrolled")

// Service is the export and analytics engine.
type Service struct {
	store      store.Store
	gradeScale shared.GradeScale
}

// New creates an export Service.
func New(st store.Store, gradeScale shared.GradeScale) *Service {
	return &Service{store: st, gradeScale: gradeScale}
}

// GradeRow is one export line: a roster entry joined with its grade record,
// if any.
type GradeRow struct {
	StudentNumber string     `json:"student_number"`
	StudentName   string     `json:"student_name"`
	Score         *float64   `json:"score"`
	Percentage    *float64   `json:"percentage"`
	Comments      string     `json:"comments"`
	SubmittedDate *time.Time `json:"submitted_date,omitempty"`
	GradedDate    *time.Time `json:"graded_date,omitempty"`
	IsLate        bool       `json:"is_late"`
}

// Rows builds the export rows for one assessment, ordered by student number.
func (s *Service) Rows(ctx context.Context, assessmentID string) (*shared.AssessmentDefinition, []GradeRow, error) {
	assessment, err := s.store.Assessment(ctx, assessmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load assessment %s: %w", assessmentID, err)
	}

	students, err := s.store.EnrolledStudents(ctx, assessment.CourseID)
	if err != nil {
		return nil, nil, fmt.Errorf("load roster: %w", err)
	}
	if len(students) == 0 {
		return nil, nil, ErrNoData
	}

	grades, err := s.store.GradesForAssessment(ctx, assessmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load grades: %w", err)
	}
	byStudent := make(map[string]shared.StudentGradeRecord, len(grades))
	for _, g := range grades {
		byStudent[g.StudentID] = g
	}

	rows := make([]GradeRow, 0, len(students))
	for _, st := range students {
		row := GradeRow{
			StudentNumber: st.StudentNumber,
			StudentName:   st.FullName,
		}
		if g, ok := byStudent[st.ID]; ok {
			row.Score = g.Score
			row.Comments = g.Comments
			row.SubmittedDate = g.SubmittedDate
			row.GradedDate = g.GradedDate
			row.IsLate = g.IsLate(assessment.DueDate)
			if g.Score != nil && assessment.MaxScore > 0 {
				pct := *g.Score / assessment.MaxScore * 100
				row.Percentage = &pct
			}
		}
		rows = append(rows, row)
	}
	return assessment, rows, nil
}

// ============================================================================
// CSV Export
// ============================================================================

// csvHeader leads with the columns the importer accepts, so a filled-in
// export can be posted straight back; the trailing columns are ignored on
// import.
var csvHeader = []string{
	"student_number", "student_name", "score", "percentage",
	"comments", "submitted_date", "graded_date", "is_late",
}

// WriteCSV streams the assessment's grade sheet as CSV.
func (s *Service) WriteCSV(ctx context.Context, assessmentID string, w io.Writer) error {
	_, rows, err := s.Rows(ctx, assessmentID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.StudentNumber,
			row.StudentName,
			formatScore(row.Score),
			formatPercent(row.Percentage),
			row.Comments,
			formatDate(row.SubmittedDate),
			formatDate(row.GradedDate),
			yesNo(row.IsLate),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write CSV row for %s: %w", row.StudentNumber, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ============================================================================
// XLSX Export
// ============================================================================

// WriteXLSX streams the assessment's grade sheet as a styled spreadsheet:
// bold header row, one data row per enrolled student, late submissions
// flagged in their own column.
func (s *Service) WriteXLSX(ctx context.Context, assessmentID string, w io.Writer) error {
	assessment, rows, err := s.Rows(ctx, assessmentID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Grades"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	headers := []string{"Student Number", "Student Name", "Score", "Max Score", "Percentage", "Late", "Comments"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	endHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(sheet, "A1", endHeader, headerStyle)

	for i, row := range rows {
		r := i + 2
		f.SetCellValue(sheet, cellAt(1, r), row.StudentNumber)
		f.SetCellValue(sheet, cellAt(2, r), row.StudentName)
		if row.Score != nil {
			f.SetCellValue(sheet, cellAt(3, r), *row.Score)
		}
		f.SetCellValue(sheet, cellAt(4, r), assessment.MaxScore)
		if row.Percentage != nil {
			f.SetCellValue(sheet, cellAt(5, r), *row.Percentage)
		}
		if row.IsLate {
			f.SetCellValue(sheet, cellAt(6, r), "LATE")
		}
		f.SetCellValue(sheet, cellAt(7, r), row.Comments)
	}

	f.SetColWidth(sheet, "A", "B", 24)
	f.SetColWidth(sheet, "G", "G", 40)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cellAt(col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return cell
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatPercent(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// ============================================================================
// Assessment Analytics
// ============================================================================

// Analytics summarizes score distribution for one assessment. Statistics
// run over percentage scores of graded records only; the histogram buckets
// follow the configured grade scale letters.
type Analytics struct {
	AssessmentID   string         `json:"assessment_id"`
	TotalStudents  int            `json:"total_students"`
	GradedCount    int            `json:"graded_count"`
	PendingCount   int            `json:"pending_count"`
	CompletionRate float64        `json:"completion_rate"` // percent of roster graded
	Mean           float64        `json:"mean"`
	Median         float64        `json:"median"`
	StdDev         float64        `json:"std_dev"`
	Min            float64        `json:"min"`
	Max            float64        `json:"max"`
	Distribution   map[string]int `json:"distribution"` // letter -> count
}

// Analyze computes the score analytics for one assessment.
func (s *Service) Analyze(ctx context.Context, assessmentID string) (*Analytics, error) {
	assessment, rows, err := s.Rows(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	out := &Analytics{
		AssessmentID:  assessmentID,
		TotalStudents: len(rows),
		Distribution:  make(map[string]int, len(s.gradeScale.Bands)),
	}
	for _, letter := range s.gradeScale.Letters() {
		out.Distribution[letter] = 0
	}

	var percentages []float64
	for _, row := range rows {
		if row.Score == nil || assessment.MaxScore <= 0 {
			continue
		}
		pct := *row.Score / assessment.MaxScore * 100
		percentages = append(percentages, pct)
		letter, _ := s.gradeScale.Grade(pct)
		out.Distribution[letter]++
	}

	out.GradedCount = len(percentages)
	out.PendingCount = out.TotalStudents - out.GradedCount
	if out.TotalStudents > 0 {
		out.CompletionRate = round2(float64(out.GradedCount) / float64(out.TotalStudents) * 100)
	}
	if len(percentages) == 0 {
		return out, nil
	}

	mean, err := stats.Mean(percentages)
	if err != nil {
		return nil, fmt.Errorf("compute mean: %w", err)
	}
	median, err := stats.Median(percentages)
	if err != nil {
		return nil, fmt.Errorf("compute median: %w", err)
	}
	stdDev, err := stats.StandardDeviation(percentages)
	if err != nil {
		return nil, fmt.Errorf("compute standard deviation: %w", err)
	}
	min, err := stats.Min(percentages)
	if err != nil {
		return nil, fmt.Errorf("compute min: %w", err)
	}
	max, err := stats.Max(percentages)
	if err != nil {
		return nil, fmt.Errorf("compute max: %w", err)
	}

	out.Mean = round2(mean)
	out.Median = round2(median)
	out.StdDev = round2(stdDev)
	out.Min = round2(min)
	out.Max = round2(max)
	return out, nil
}

// ============================================================================
// Scope Analytics
// ============================================================================

// Bucket is one histogram cell of a score distribution.
type Bucket struct {
	Letter     string  `json:"letter"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ScopeAnalytics summarizes grading across every assessment in a filter
// scope (term, department and/or course).
type ScopeAnalytics struct {
	TotalAssessments       int      `json:"total_assessments"`
	TotalStudents          int      `json:"total_students"`
	CoursesWithAssessments int      `json:"courses_with_assessments"`
	GradedCount            int      `json:"graded_count"`
	PendingGrades          int      `json:"pending_grades"`
	CompletionRate         float64  `json:"completion_rate"`
	MeanScore              float64  `json:"mean_score"`
	MedianScore            float64  `json:"median_score"`
	StdDev                 float64  `json:"std_dev"`
	Distribution           []Bucket `json:"distribution"`
}

// AnalyzeScope computes the dashboard analytics over all assessments
// matching the filter. The denominator for completion is one grading slot
// per (assessment, enrolled student); statistics run over the percentage
// scores of graded slots.
func (s *Service) AnalyzeScope(ctx context.Context, f store.Filter) (*ScopeAnalytics, error) {
	assessments, err := s.store.AssessmentsInScope(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load assessments: %w", err)
	}

	out := &ScopeAnalytics{TotalAssessments: len(assessments)}
	counts := make(map[string]int, len(s.gradeScale.Bands))

	rosters := make(map[string][]shared.Student)
	students := make(map[string]struct{})
	courses := make(map[string]struct{})
	totalSlots := 0
	var percentages []float64

	for _, a := range assessments {
		courses[a.CourseID] = struct{}{}

		roster, ok := rosters[a.CourseID]
		if !ok {
			roster, err = s.store.EnrolledStudents(ctx, a.CourseID)
			if err != nil {
				return nil, fmt.Errorf("load roster for course %s: %w", a.CourseID, err)
			}
			rosters[a.CourseID] = roster
		}
		totalSlots += len(roster)
		for _, st := range roster {
			students[st.ID] = struct{}{}
		}

		grades, err := s.store.GradesForAssessment(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("load grades for assessment %s: %w", a.ID, err)
		}
		for _, g := range grades {
			if g.Score == nil || a.MaxScore <= 0 {
				continue
			}
			pct := *g.Score / a.MaxScore * 100
			percentages = append(percentages, pct)
			letter, _ := s.gradeScale.Grade(pct)
			counts[letter]++
		}
	}

	out.TotalStudents = len(students)
	out.CoursesWithAssessments = len(courses)
	out.GradedCount = len(percentages)
	out.PendingGrades = totalSlots - out.GradedCount
	if out.PendingGrades < 0 {
		out.PendingGrades = 0
	}
	if totalSlots > 0 {
		out.CompletionRate = round2(float64(out.GradedCount) / float64(totalSlots) * 100)
	}

	for _, letter := range s.gradeScale.Letters() {
		b := Bucket{Letter: letter, Count: counts[letter]}
		if len(percentages) > 0 {
			b.Percentage = round2(float64(b.Count) / float64(len(percentages)) * 100)
		}
		out.Distribution = append(out.Distribution, b)
	}

	if len(percentages) == 0 {
		return out, nil
	}
	mean, err := stats.Mean(percentages)
	if err != nil {
		return nil, fmt.Errorf("compute mean: %w", err)
	}
	median, err := stats.Median(percentages)
	if err != nil {
		return nil, fmt.Errorf("compute median: %w", err)
	}
	stdDev, err := stats.StandardDeviation(percentages)
	if err != nil {
		return nil, fmt.Errorf("compute standard deviation: %w", err)
	}
	out.MeanScore = round2(mean)
	out.MedianScore = round2(median)
	out.StdDev = round2(stdDev)
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
