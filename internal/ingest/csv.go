// ============================================================================
// internal/ingest/csv.go
// CSV grade payload parsing
// ============================================================================

package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVRow is one parsed line of a grade import payload. Err carries a
// row-local parse failure; such rows are reported and skipped, never fatal.
type CSVRow struct {
	Line          int
	StudentNumber string
	RawScore      string
	Comments      string
	Err           error
}

// ParseGradeCSV reads a comma-delimited payload with a required header row.
// Header matching is case-insensitive with whitespace/underscore
// normalization: "Student Number", "student_number" and "STUDENT-NUMBER"
// all match. Required columns are student_number and score; comments is
// optional. Only an unreadable payload or a missing required column is an
// error; bad data rows surface per row.
func ParseGradeCSV(r io.Reader) ([]CSVRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV payload")
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	numberIdx, scoreIdx, commentsIdx := -1, -1, -1
	for i, h := range header {
		switch canonicalHeader(h) {
		case "studentnumber", "studentid":
			if numberIdx < 0 {
				numberIdx = i
			}
		case "score":
			if scoreIdx < 0 {
				scoreIdx = i
			}
		case "comments", "comment":
			if commentsIdx < 0 {
				commentsIdx = i
			}
		}
	}
	if numberIdx < 0 || scoreIdx < 0 {
		return nil, fmt.Errorf("CSV header must include student_number and score columns")
	}

	var rows []CSVRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rows = append(rows, CSVRow{Line: line, Err: err})
			continue
		}

		// Blank lines are skipped silently.
		if isBlankRecord(record) {
			continue
		}

		rows = append(rows, CSVRow{
			Line:          line,
			StudentNumber: field(record, numberIdx),
			RawScore:      field(record, scoreIdx),
			Comments:      field(record, commentsIdx),
		})
	}

	return rows, nil
}

// canonicalHeader lowercases a header cell and strips whitespace,
// underscores, dashes and a possible UTF-8 BOM.
func canonicalHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF")
	h = strings.ToLower(h)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '_', '-':
			return -1
		}
		return r
	}, h)
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
