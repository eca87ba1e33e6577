package shared

import "testing"

func TestGradeScale_Boundaries(t *testing.T) {
	scale := DefaultGradeScale()

	cases := []struct {
		percent float64
		letter  string
		points  float64
	}{
		{100, GradeHD, 4.0},
		{80, GradeHD, 4.0},
		{79.99, GradeD, 3.0},
		{70, GradeD, 3.0},
		{60, GradeC, 2.0},
		{50, GradeP, 1.0},
		{49.99, GradeF, 0.0},
		{0, GradeF, 0.0},
	}
	for _, c := range cases {
		letter, points := scale.Grade(c.percent)
		if letter != c.letter || points != c.points {
			t.Errorf("Grade(%g) = %s/%g, expected %s/%g", c.percent, letter, points, c.letter, c.points)
		}
	}

	if scale.Passed(49.99) {
		t.Error("49.99 must not pass")
	}
	if !scale.Passed(50) {
		t.Error("50 must pass")
	}
}

func TestParseGradeScale(t *testing.T) {
	t.Run("Valid Spec", func(t *testing.T) {
		scale, err := ParseGradeScale("0:F:0.0,50:P:1.0,80:HD:4.0,70:D:3.0,60:C:2.0", 50)
		if err != nil {
			t.Fatalf("ParseGradeScale failed: %v", err)
		}
		// Bands must come out sorted descending regardless of input order.
		if scale.Bands[0].Letter != GradeHD || scale.Bands[4].Letter != GradeF {
			t.Errorf("Bands not sorted: %+v", scale.Bands)
		}
		letter, _ := scale.Grade(75)
		if letter != GradeD {
			t.Errorf("Expected D at 75, got %s", letter)
		}
	})

	t.Run("Invalid Specs", func(t *testing.T) {
		for _, spec := range []string{"", "80:HD", "abc:HD:4.0", "80::4.0", "80:HD:xyz"} {
			if _, err := ParseGradeScale(spec, 50); err == nil {
				t.Errorf("ParseGradeScale(%q) should fail", spec)
			}
		}
	})
}

func TestParseStandingScale(t *testing.T) {
	scale, err := ParseStandingScale("3.5:Dean's List,2.0:Satisfactory,3.0:Good Standing,1.0:Probation", "Academic Suspension")
	if err != nil {
		t.Fatalf("ParseStandingScale failed: %v", err)
	}
	if got := scale.Standing(3.2); got != "Good Standing" {
		t.Errorf("Standing(3.2) = %s", got)
	}
	if got := scale.Standing(0.4); got != "Academic Suspension" {
		t.Errorf("Standing(0.4) = %s", got)
	}

	if _, err := ParseStandingScale("bad-spec", "x"); err == nil {
		t.Error("Expected error for malformed spec")
	}
}
