// Package grades derives percentage, letter grade and grade point from
// raw scores and aggregates grade points into a GPA.
package grades

import (
	"errors"
	"math"
)

var ErrMaxScoreNotPositive = errors.New("maxScore must be positive")

type Metrics struct {
	Percentage  float64
	LetterGrade string
	GradePoint  float64
}

// ComputeMetrics maps a score/maxScore pair onto the grading ladder.
// Percentage is rounded to two decimals and not capped: a score above
// maxScore yields more than 100% and still maps to an A.
func ComputeMetrics(score, maxScore float64) (Metrics, error) {
	if maxScore <= 0 {
		return Metrics{}, ErrMaxScoreNotPositive
	}
	percentage := Round2(score / maxScore * 100)
	letter, point := letterFor(percentage)
	return Metrics{Percentage: percentage, LetterGrade: letter, GradePoint: point}, nil
}

// letterFor evaluates the threshold ladder top-down; lower bounds are
// inclusive.
func letterFor(percentage float64) (string, float64) {
	switch {
	case percentage >= 90:
		return "A", 4.0
	case percentage >= 80:
		return "B", 3.0
	case percentage >= 70:
		return "C", 2.0
	case percentage >= 60:
		return "D", 1.0
	default:
		return "F", 0.0
	}
}

// ComputeGPA returns the arithmetic mean of the grade points. An empty
// list yields 0, not an error.
func ComputeGPA(points []float64) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, point := range points {
		sum += point
	}
	return sum / float64(len(points))
}

func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}
