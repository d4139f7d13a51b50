package grades

import "strings"

// GradePoints maps a letter grade to its point value on the five-point scale.
var GradePoints = map[string]float64{
	"A": 5.0, "B": 4.0, "C": 3.0, "D": 2.0, "E": 1.0, "F": 0.0,
}

type Course struct {
	Code  string `json:"code"`
	Grade string `json:"grade"`
	Units int    `json:"units"`
}

// Semester is a saved semester result.
type Semester struct {
	Name        string   `json:"name"`
	GPA         float64  `json:"gpa"`
	TotalPoints float64  `json:"totalPoints"`
	TotalUnits  int      `json:"totalUnits"`
	Courses     []Course `json:"courses"`
}

type Result struct {
	GPA         float64
	TotalPoints float64
	TotalUnits  int
}

// CalculateGPA ignores courses with an unknown grade.
func CalculateGPA(courses []Course) Result {
	var r Result
	for _, c := range courses {
		points, ok := GradePoints[strings.ToUpper(strings.TrimSpace(c.Grade))]
		if !ok {
			continue
		}
		r.TotalPoints += points * float64(c.Units)
		r.TotalUnits += c.Units
	}
	if r.TotalUnits > 0 {
		r.GPA = r.TotalPoints / float64(r.TotalUnits)
	}
	return r
}

// CalculateCGPA aggregates saved semesters.
func CalculateCGPA(semesters []Semester) Result {
	var r Result
	for _, s := range semesters {
		r.TotalPoints += s.TotalPoints
		r.TotalUnits += s.TotalUnits
	}
	if r.TotalUnits > 0 {
		r.GPA = r.TotalPoints / float64(r.TotalUnits)
	}
	return r
}

func Standing(gpa float64) string {
	switch {
	case gpa >= 4.5:
		return "Distinction"
	case gpa >= 3.5:
		return "Great Job"
	case gpa >= 2.0:
		return "Satisfactory"
	default:
		return "Review Required"
	}
}
