// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogPickStored logs a pick record write.
func (al *AuditLogger) LogPickStored(betDate, betID, marketID, horse string, score float64, grade string, showInUI, isLearningPick bool) {
	al.WithFields(logrus.Fields{
		"bet_date":         betDate,
		"bet_id":           betID,
		"market_id":        marketID,
		"horse":            horse,
		"score":            score,
		"grade":            grade,
		"show_in_ui":       showInUI,
		"is_learning_pick": isLearningPick,
	}).Info("Pick recorded")
}

// LogOutcomeSettled logs an outcome settlement.
func (al *AuditLogger) LogOutcomeSettled(betDate, betID, marketID string, outcome string, position int, profitLoss string) {
	al.WithFields(logrus.Fields{
		"bet_date":        betDate,
		"bet_id":          betID,
		"market_id":       marketID,
		"outcome":         outcome,
		"actual_position": position,
		"profit_loss":     profitLoss,
	}).Info("Outcome settled")
}

// LogWeightChange logs a persisted weight change.
func (al *AuditLogger) LogWeightChange(key string, oldValue, newValue float64, rule, version string) {
	al.WithFields(logrus.Fields{
		"weight_key": key,
		"old_value":  oldValue,
		"new_value":  newValue,
		"rule":       rule,
		"version":    version,
	}).Info("Weight adjusted")
}

// LogCoverageFailure logs a race whose UI pick was suppressed for coverage.
func (al *AuditLogger) LogCoverageFailure(marketID, venue string, analyzed, fieldSize int, required float64) {
	al.WithFields(logrus.Fields{
		"market_id":  marketID,
		"venue":      venue,
		"analyzed":   analyzed,
		"field_size": fieldSize,
		"required":   required,
	}).Warn("Coverage below threshold, UI pick suppressed")
}

// LogInvariantViolation logs a store invariant violation with full context.
func (al *AuditLogger) LogInvariantViolation(invariant string, context map[string]interface{}, timestamp time.Time) {
	al.WithFields(logrus.Fields{
		"invariant": invariant,
		"context":   context,
		"timestamp": timestamp.Unix(),
	}).Error("Invariant violation detected")
}
