package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMakeBetID(t *testing.T) {
	start := time.Date(2026, time.June, 10, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, "1430-ascot-steady-eddie", MakeBetID(start, "Ascot", "Steady Eddie"))
	// punctuation collapses to single hyphens
	assert.Equal(t, "1430-newton-abbot-d-artagnan-s-luck", MakeBetID(start, "Newton Abbot", "D'Artagnan's Luck"))

	// local times normalize to UTC
	local := time.FixedZone("BST", 3600)
	assert.Equal(t, "1330-ascot-steady-eddie",
		MakeBetID(time.Date(2026, time.June, 10, 14, 30, 0, 0, local), "Ascot", "Steady Eddie"))

	// deterministic
	assert.Equal(t, MakeBetID(start, "Ascot", "Steady Eddie"), MakeBetID(start, "Ascot", "Steady Eddie"))
}

func TestGradeForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  Grade
	}{
		{100, GradeExcellent},
		{75, GradeExcellent},
		{74.9, GradeGood},
		{60, GradeGood},
		{59.9, GradeFair},
		{45, GradeFair},
		{44.9, GradePoor},
		{0, GradePoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeForScore(tt.score), "score %.1f", tt.score)
	}
}

func TestOutcomeFinality(t *testing.T) {
	assert.True(t, OutcomeWon.IsFinal())
	assert.True(t, OutcomePlaced.IsFinal())
	assert.True(t, OutcomeLost.IsFinal())
	assert.True(t, OutcomeVoid.IsFinal())
	assert.False(t, OutcomeError.IsFinal())
}

func TestPickRecordPendingStates(t *testing.T) {
	record := &PickRecord{}
	assert.True(t, record.IsPending())
	assert.False(t, record.IsSettled())

	errOutcome := OutcomeError
	record.Outcome = &errOutcome
	assert.True(t, record.IsPending())
	assert.False(t, record.IsSettled())

	won := OutcomeWon
	record.Outcome = &won
	assert.False(t, record.IsPending())
	assert.True(t, record.IsSettled())
}
