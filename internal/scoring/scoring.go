// Package scoring maps raw 0-10 project scores onto a 0-100 scale and
// classifies projects into impact/effort quadrants.
package scoring

import (
	"math"

	"github.com/rpggio/roadmap/internal/domain/project"
)

// Threshold splits high from low on the normalized scale. A value equal
// to the threshold counts as high.
const Threshold = 50

// Normalize clamps v to [0, 10] and rescales it to an integer in [0, 100].
func Normalize(v float64) int {
	clamped := math.Max(0, math.Min(10, v))
	return int(math.Round(clamped / 10 * 100))
}

// Classify places normalized impact and effort into a quadrant.
func Classify(impact, effort int) project.Quadrant {
	highImpact := impact >= Threshold
	highEffort := effort >= Threshold
	switch {
	case highImpact && !highEffort:
		return project.QuadrantQuickWins
	case highImpact && highEffort:
		return project.QuadrantBigBets
	case !highImpact && !highEffort:
		return project.QuadrantFillers
	default:
		return project.QuadrantTimeSinks
	}
}

// Matrix derives the matrix entry from raw scores. Impact is strategic
// value, effort is complexity. Confidence is not used.
func Matrix(s project.Scores) project.Matrix {
	impact := Normalize(s.StrategicValue)
	effort := Normalize(s.Complexity)
	return project.Matrix{
		ImpactNormalized: impact,
		EffortNormalized: effort,
		Quadrant:         Classify(impact, effort),
	}
}

// Apply returns p with its matrix attached.
func Apply(p project.Project) project.Project {
	m := Matrix(p.Scores)
	p.Matrix = &m
	return p
}
