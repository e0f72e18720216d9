// Package logger provides learning-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// LearningLogger provides dedicated logging for weight-learning runs.
type LearningLogger struct {
	*logrus.Entry
}

// NewLearningLogger creates a new learning logger.
func NewLearningLogger(baseLogger *logrus.Logger) *LearningLogger {
	return &LearningLogger{
		Entry: baseLogger.WithField("component", "learning"),
	}
}

// LogLearningRun logs a completed weight-learning run.
func (ll *LearningLogger) LogLearningRun(racesAnalyzed int, patterns map[string]float64, adjustments []string, oldVersion, newVersion string) {
	ll.WithFields(logrus.Fields{
		"races_analyzed": racesAnalyzed,
		"patterns":       patterns,
		"adjustments":    adjustments,
		"old_version":    oldVersion,
		"new_version":    newVersion,
	}).Info("Weight learning run completed")
}

// LogValidation logs a learning run that triggered no rules.
func (ll *LearningLogger) LogValidation(racesAnalyzed int, version string) {
	ll.WithFields(logrus.Fields{
		"races_analyzed": racesAnalyzed,
		"version":        version,
	}).Info("Weights validated, no adjustment")
}

// LogVersionConflict logs a compare-and-set retry.
func (ll *LearningLogger) LogVersionConflict(expectedVersion, actualVersion string, attempt int) {
	ll.WithFields(logrus.Fields{
		"expected_version": expectedVersion,
		"actual_version":   actualVersion,
		"attempt":          attempt,
	}).Warn("Weights version conflict, re-reading")
}

// LogTrainerWindow logs the per-trainer win/loss table for a window.
func (ll *LearningLogger) LogTrainerWindow(trainer string, wins, losses int, lift float64) {
	ll.WithFields(logrus.Fields{
		"trainer": trainer,
		"wins":    wins,
		"losses":  losses,
		"lift":    lift,
	}).Debug("Trainer window computed")
}
