// ============================================================================
// internal/shared/policy.go
// Letter-grade and academic-standing threshold tables
// ============================================================================

package shared

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// GradeBand maps a minimum total-score percentage to a letter grade and its
// grade-point value.
type GradeBand struct {
	MinPercent float64
	Letter     string
	Points     float64
}

// GradeScale is an ordered letter-grade threshold table. Institutions vary,
// so the scale is injected into the aggregation engine rather than
// hard-coded; cut points can be overridden through configuration.
type GradeScale struct {
	Bands    []GradeBand // descending by MinPercent
	PassMark float64     // total score percentage required to pass
}

// DefaultGradeScale returns the default HD/D/C/P/F scale on a 4.0 system.
func DefaultGradeScale() GradeScale {
	return GradeScale{
		Bands: []GradeBand{
			{MinPercent: 80, Letter: GradeHD, Points: 4.0},
			{MinPercent: 70, Letter: GradeD, Points: 3.0},
			{MinPercent: 60, Letter: GradeC, Points: 2.0},
			{MinPercent: 50, Letter: GradeP, Points: 1.0},
			{MinPercent: 0, Letter: GradeF, Points: 0.0},
		},
		PassMark: 50,
	}
}

// Grade maps a total score percentage to its letter grade and grade points.
func (s GradeScale) Grade(percent float64) (string, float64) {
	for _, b := range s.Bands {
		if percent >= b.MinPercent {
			return b.Letter, b.Points
		}
	}
	// Below every band, including negative input. The lowest band normally
	// starts at 0 so this is only reachable with a misconfigured scale.
	last := s.Bands[len(s.Bands)-1]
	return last.Letter, last.Points
}

// Passed reports whether the total score percentage meets the pass mark.
func (s GradeScale) Passed(percent float64) bool {
	return percent >= s.PassMark
}

// Letters returns the band letters in scale order, for histogram buckets.
func (s GradeScale) Letters() []string {
	letters := make([]string, 0, len(s.Bands))
	for _, b := range s.Bands {
		letters = append(letters, b.Letter)
	}
	return letters
}

// ParseGradeScale parses a scale spec of the form
// "80:HD:4.0,70:D:3.0,60:C:2.0,50:P:1.0,0:F:0.0". Bands may be given in any
// order; they are sorted descending by cut point.
func ParseGradeScale(spec string, passMark float64) (GradeScale, error) {
	if strings.TrimSpace(spec) == "" {
		return GradeScale{}, fmt.Errorf("empty grade scale spec")
	}

	var bands []GradeBand
	for _, part := range strings.Split(spec, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 3 {
			return GradeScale{}, fmt.Errorf("invalid grade band %q", part)
		}
		min, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return GradeScale{}, fmt.Errorf("invalid cut point in band %q", part)
		}
		points, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return GradeScale{}, fmt.Errorf("invalid grade points in band %q", part)
		}
		letter := strings.TrimSpace(fields[1])
		if letter == "" {
			return GradeScale{}, fmt.Errorf("missing letter in band %q", part)
		}
		bands = append(bands, GradeBand{MinPercent: min, Letter: letter, Points: points})
	}

	sort.Slice(bands, func(i, j int) bool { return bands[i].MinPercent > bands[j].MinPercent })
	return GradeScale{Bands: bands, PassMark: passMark}, nil
}

// ============================================================================
// Academic Standing
// ============================================================================

// StandingBand maps a minimum cumulative GPA to a standing label.
type StandingBand struct {
	MinGPA float64
	Label  string
}

// StandingScale is an ordered academic-standing threshold table keyed on
// cumulative GPA. Like GradeScale it is injected configuration.
type StandingScale struct {
	Bands    []StandingBand // descending by MinGPA
	Fallback string         // label when below every band
}

// DefaultStandingScale returns the default standing classification.
func DefaultStandingScale() StandingScale {
	return StandingScale{
		Bands: []StandingBand{
			{MinGPA: 3.5, Label: "Dean's List"},
			{MinGPA: 3.0, Label: "Good Standing"},
			{MinGPA: 2.0, Label: "Satisfactory"},
			{MinGPA: 1.0, Label: "Probation"},
		},
		Fallback: "Academic Suspension",
	}
}

// Standing maps a cumulative GPA to its standing label.
func (s StandingScale) Standing(gpa float64) string {
	for _, b := range s.Bands {
		if gpa >= b.MinGPA {
			return b.Label
		}
	}
	return s.Fallback
}

// ParseStandingScale parses a spec of the form
// "3.5:Dean's List,3.0:Good Standing,2.0:Satisfactory,1.0:Probation". The
// fallback label applies below the lowest band.
func ParseStandingScale(spec, fallback string) (StandingScale, error) {
	if strings.TrimSpace(spec) == "" {
		return StandingScale{}, fmt.Errorf("empty standing scale spec")
	}

	var bands []StandingBand
	for _, part := range strings.Split(spec, ",") {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(fields) != 2 {
			return StandingScale{}, fmt.Errorf("invalid standing band %q", part)
		}
		min, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return StandingScale{}, fmt.Errorf("invalid GPA cut point in band %q", part)
		}
		label := strings.TrimSpace(fields[1])
		if label == "" {
			return StandingScale{}, fmt.Errorf("missing label in band %q", part)
		}
		bands = append(bands, StandingBand{MinGPA: min, Label: label})
	}

	sort.Slice(bands, func(i, j int) bool { return bands[i].MinGPA > bands[j].MinGPA })
	return StandingScale{Bands: bands, Fallback: fallback}, nil
}
