// Package scoring implements the per-runner weighted scoring rubric: going
// assessment, form decomposition and the tiered confidence grade.
package scoring

import (
	"strings"
	"time"
)

// GoingClass is the ground condition on the turf scale
type GoingClass string

const (
	GoingFirm       GoingClass = "firm"
	GoingGood       GoingClass = "good"
	GoingGoodToSoft GoingClass = "good-to-soft"
	GoingSoft       GoingClass = "soft"
	GoingHeavy      GoingClass = "heavy"
)

// orderedGoing lists classes from fastest to slowest ground
var orderedGoing = []GoingClass{GoingFirm, GoingGood, GoingGoodToSoft, GoingSoft, GoingHeavy}

// goingAdjustments maps each class to its integer going adjustment
var goingAdjustments = map[GoingClass]int{
	GoingFirm:       3,
	GoingGood:       2,
	GoingGoodToSoft: 0,
	GoingSoft:       -3,
	GoingHeavy:      -5,
}

// GoingAssessment is the derived per-race ground classification
type GoingAssessment struct {
	Class      GoingClass
	Adjustment int
	Inferred   bool
}

// Rainfall thresholds in mm for inferred going
const (
	rainfallHeavyMM      = 15.0
	rainfallSoftMM       = 8.0
	rainfallGoodToSoftMM = 3.0
)

// AssessGoing classifies the ground for a race. A published going string wins
// over inference; otherwise the class is inferred from recent rainfall with a
// winter bias of one step toward soft. Deterministic on its inputs.
func AssessGoing(published string, rainfallMM *float64, month time.Month) GoingAssessment {
	if class, ok := parseGoing(published); ok {
		return GoingAssessment{Class: class, Adjustment: goingAdjustments[class]}
	}

	class := GoingGood
	if rainfallMM != nil {
		switch mm := *rainfallMM; {
		case mm >= rainfallHeavyMM:
			class = GoingHeavy
		case mm >= rainfallSoftMM:
			class = GoingSoft
		case mm >= rainfallGoodToSoftMM:
			class = GoingGoodToSoft
		default:
			class = GoingGood
		}
	}

	if isWinter(month) {
		class = stepTowardSoft(class)
	}

	return GoingAssessment{Class: class, Adjustment: goingAdjustments[class], Inferred: true}
}

// parseGoing maps a published going string onto the turf scale
func parseGoing(published string) (GoingClass, bool) {
	normalized := strings.ToLower(strings.TrimSpace(published))
	normalized = strings.ReplaceAll(normalized, " to ", "-to-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	switch GoingClass(normalized) {
	case GoingFirm, GoingGood, GoingGoodToSoft, GoingSoft, GoingHeavy:
		return GoingClass(normalized), true
	}
	return "", false
}

func isWinter(month time.Month) bool {
	switch month {
	case time.November, time.December, time.January, time.February:
		return true
	}
	return false
}

func stepTowardSoft(class GoingClass) GoingClass {
	for i, c := range orderedGoing {
		if c == class && i < len(orderedGoing)-1 {
			return orderedGoing[i+1]
		}
	}
	return class
}
