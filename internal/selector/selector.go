// Package selector applies the scoring rubric to every runner in a race and
// chooses at most one UI pick per race under the coverage and threshold gates.
package selector

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-picks/internal/config"
	"github.com/yourusername/race-picks/internal/logger"
	"github.com/yourusername/race-picks/internal/metrics"
	"github.com/yourusername/race-picks/internal/models"
	"github.com/yourusername/race-picks/internal/repository"
	"github.com/yourusername/race-picks/internal/scoring"
)

// Summary reports what a selector run wrote
type Summary struct {
	RacesProcessed   int
	RacesSkipped     int
	HorsesStored     int
	UIPicks          int
	CoverageFailures int
	Notes            []string
}

// Selector scores runners and persists picks and learning rows
type Selector struct {
	cfg     config.SelectorConfig
	scorer  *scoring.Scorer
	picks   repository.PicksRepository
	audit   *logger.AuditLogger
	log     *logrus.Logger
	betType models.BetType
}

// NewSelector creates a selector writing win-only picks
func NewSelector(
	cfg config.SelectorConfig,
	scorer *scoring.Scorer,
	picks repository.PicksRepository,
	audit *logger.AuditLogger,
	log *logrus.Logger,
) *Selector {
	return &Selector{cfg: cfg, scorer: scorer, picks: picks, audit: audit, log: log, betType: models.BetTypeWin}
}

// WithEachWay switches new records to each-way terms. Settlement then treats
// PLACED as a part-win instead of a loss.
func (s *Selector) WithEachWay() *Selector {
	s.betType = models.BetTypeEachWay
	return s
}

// scoredRunner pairs a runner with its scoring result
type scoredRunner struct {
	runner *models.Runner
	result scoring.Result
}

// Run processes every race in a snapshot. Malformed races are skipped and
// logged; the run continues. Store errors abort the run.
func (s *Selector) Run(ctx context.Context, races []*models.RaceContext, weights models.Weights, now time.Time) (Summary, error) {
	summary := Summary{}

	for _, race := range races {
		if err := validateRace(race); err != nil {
			s.log.WithError(err).WithField("market_id", raceMarketID(race)).Warn("Skipping malformed race")
			summary.RacesSkipped++
			summary.Notes = append(summary.Notes, fmt.Sprintf("skipped %s: %v", raceMarketID(race), err))
			continue
		}

		stored, uiPick, err := s.processRace(ctx, race, weights, now)
		if err != nil {
			return summary, fmt.Errorf("race %s: %w", race.MarketID, err)
		}

		summary.RacesProcessed++
		summary.HorsesStored += stored
		if uiPick {
			summary.UIPicks++
		} else if stored > 0 && !s.coverageMet(race, len(race.ActiveRunners())) {
			summary.CoverageFailures++
			summary.Notes = append(summary.Notes, fmt.Sprintf("coverage failure %s", race.MarketID))
		}
	}

	return summary, nil
}

// processRace scores all runners of one race and writes their records.
// Records are written learning rows first so the UI flag moves atomically to
// the new holder when a re-run changes the selection.
func (s *Selector) processRace(ctx context.Context, race *models.RaceContext, weights models.Weights, now time.Time) (int, bool, error) {
	going := scoring.AssessGoing(race.GoingPublished, race.RainfallMM, race.StartTime.Month())

	scored := make([]scoredRunner, 0, len(race.Runners))
	for _, runner := range race.ActiveRunners() {
		result := s.scorer.Score(runner, race, going, weights)
		scored = append(scored, scoredRunner{runner: runner, result: result})
	}

	if len(scored) == 0 {
		return 0, false, nil
	}

	var pick *scoredRunner
	if s.coverageMet(race, len(scored)) {
		pick = s.choosePick(scored)
	} else {
		s.audit.LogCoverageFailure(race.MarketID, race.Venue, len(scored),
			race.DeclaredFieldSize(), s.requiredCoverage(race))
	}

	records := make([]*models.PickRecord, 0, len(scored))
	var uiRecord *models.PickRecord
	for i := range scored {
		sr := &scored[i]
		record := buildRecord(race, sr, s.betType, now)
		if pick != nil && sr.runner == pick.runner {
			record.ShowInUI = true
			record.IsLearningPick = false
			uiRecord = record
			continue
		}
		records = append(records, record)
	}
	if uiRecord != nil {
		records = append(records, uiRecord)
	}

	// A refreshed snapshot can drop the previous pick entirely (runner
	// withdrawn), so its stored row will not be in this batch. Demote any
	// holder other than the new pick before writing.
	keepBetID := ""
	if uiRecord != nil {
		keepBetID = uiRecord.BetID
	}
	if err := s.picks.ClearUIPicks(ctx, race.BetDate(), race.MarketID, keepBetID); err != nil {
		return 0, false, fmt.Errorf("failed to clear stale UI picks: %w", err)
	}

	if err := s.picks.PutBatch(ctx, records); err != nil {
		return 0, false, fmt.Errorf("failed to store picks: %w", err)
	}

	for _, record := range records {
		s.audit.LogPickStored(record.BetDate, record.BetID, record.MarketID, record.Horse,
			record.CombinedConfidence, string(record.ConfidenceGrade), record.ShowInUI, record.IsLearningPick)
		metrics.RecordPickStored(record.ShowInUI)
		metrics.PickScore.Observe(record.CombinedConfidence)
	}

	if uiRecord != nil {
		s.log.WithFields(logrus.Fields{
			"market_id":   race.MarketID,
			"horse":       uiRecord.Horse,
			"score":       uiRecord.CombinedConfidence,
			"grade":       uiRecord.ConfidenceGrade,
			"paper_stake": uiRecord.ConfidenceGrade.StakeMultiplier().String(),
		}).Info("UI pick selected")
	}

	count, err := s.picks.CountUIPicks(ctx, race.BetDate(), race.MarketID)
	if err != nil {
		return 0, false, err
	}
	if count > 1 {
		s.audit.LogInvariantViolation("single_ui_pick_per_market", map[string]interface{}{
			"bet_date":  race.BetDate(),
			"market_id": race.MarketID,
			"count":     count,
		}, now)
		return 0, false, models.ErrInvariantViolation
	}

	return len(records), uiRecord != nil, nil
}

// choosePick returns the highest scorer above the UI threshold, or nil.
// Tie-breaks: higher score, then lower odds, then lower selection_id.
func (s *Selector) choosePick(scored []scoredRunner) *scoredRunner {
	var best *scoredRunner
	for i := range scored {
		candidate := &scored[i]
		if candidate.result.Score < s.cfg.UIThreshold || candidate.result.Grade == models.GradePoor {
			continue
		}
		if best == nil || betterPick(candidate, best) {
			best = candidate
		}
	}
	return best
}

func betterPick(a, b *scoredRunner) bool {
	if a.result.Score != b.result.Score {
		return a.result.Score > b.result.Score
	}
	if !a.runner.Odds.Equal(b.runner.Odds) {
		return a.runner.Odds.LessThan(b.runner.Odds)
	}
	return a.runner.SelectionID < b.runner.SelectionID
}

func (s *Selector) requiredCoverage(race *models.RaceContext) float64 {
	if race.DeclaredFieldSize() <= s.cfg.SmallFieldSize {
		return s.cfg.SmallFieldCoverage
	}
	return s.cfg.CoverageRatio
}

func (s *Selector) coverageMet(race *models.RaceContext, analyzed int) bool {
	fieldSize := race.DeclaredFieldSize()
	if fieldSize == 0 {
		return false
	}
	return float64(analyzed)/float64(fieldSize) >= s.requiredCoverage(race)
}

// buildRecord converts a scored runner into its learning-row PickRecord.
// The caller flips the UI flags on the chosen pick.
func buildRecord(race *models.RaceContext, sr *scoredRunner, betType models.BetType, now time.Time) *models.PickRecord {
	return &models.PickRecord{
		BetDate:            race.BetDate(),
		BetID:              models.MakeBetID(race.StartTime, race.Venue, sr.runner.Name),
		Horse:              sr.runner.Name,
		Course:             race.Venue,
		RaceTime:           race.StartTime,
		Odds:               sr.runner.Odds,
		SelectionID:        sr.runner.SelectionID,
		MarketID:           race.MarketID,
		Form:               sr.runner.Form,
		Trainer:            sr.runner.Trainer,
		Jockey:             sr.runner.Jockey,
		CombinedConfidence: sr.result.Score,
		ConfidenceGrade:    sr.result.Grade,
		ShowInUI:           false,
		IsLearningPick:     true,
		Reasons:            sr.result.Reasons,
		BetType:            betType,
		CreatedAt:          now,
	}
}

func validateRace(race *models.RaceContext) error {
	if race == nil {
		return fmt.Errorf("race is nil: %w", models.ErrInvalidSnapshot)
	}
	if race.MarketID == "" || race.Venue == "" {
		return fmt.Errorf("missing market_id or venue: %w", models.ErrInvalidSnapshot)
	}
	if race.StartTime.IsZero() {
		return fmt.Errorf("missing start_time: %w", models.ErrInvalidSnapshot)
	}
	if len(race.Runners) == 0 {
		return fmt.Errorf("no runners: %w", models.ErrInvalidSnapshot)
	}
	return nil
}

func raceMarketID(race *models.RaceContext) string {
	if race == nil {
		return ""
	}
	return race.MarketID
}
