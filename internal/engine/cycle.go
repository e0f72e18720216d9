package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-picks/internal/config"
	"github.com/yourusername/race-picks/internal/exchange"
	"github.com/yourusername/race-picks/internal/ingest"
	"github.com/yourusername/race-picks/internal/learning"
	"github.com/yourusername/race-picks/internal/logger"
	"github.com/yourusername/race-picks/internal/metrics"
	"github.com/yourusername/race-picks/internal/models"
	"github.com/yourusername/race-picks/internal/repository"
	"github.com/yourusername/race-picks/internal/scoring"
	"github.com/yourusername/race-picks/internal/selector"
)

// SnapshotFetcher provides the current race card
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) ([]*models.RaceContext, error)
}

// CycleRunner invokes the pipeline at a fixed cadence inside the trading
// window. Steps fail independently; only store errors abort a cycle.
type CycleRunner struct {
	cfg      *config.Config
	repos    *repository.Repositories
	snapshot SnapshotFetcher
	ingestor *ingest.Ingestor
	learner  *learning.Learner
	history  *HistoryBuilder
	audit    *logger.AuditLogger
	log      *logrus.Logger

	// OnCycle, when set, is called after every completed cycle
	OnCycle func(time.Time)
}

// NewCycleRunner wires the pipeline together
func NewCycleRunner(
	cfg *config.Config,
	repos *repository.Repositories,
	snapshot SnapshotFetcher,
	ingestor *ingest.Ingestor,
	learner *learning.Learner,
	audit *logger.AuditLogger,
	log *logrus.Logger,
) *CycleRunner {
	cadence := time.Duration(cfg.Engine.CadenceMinutes) * time.Minute
	return &CycleRunner{
		cfg:      cfg,
		repos:    repos,
		snapshot: snapshot,
		ingestor: ingestor,
		learner:  learner,
		history:  NewHistoryBuilder(repos.Picks, cadence, log),
		audit:    audit,
		log:      log,
	}
}

// Run loops until the context is cancelled. Outside the trading window it
// sleeps; inside it runs one cycle per cadence interval. Cancellation takes
// effect at the next cycle boundary.
func (r *CycleRunner) Run(ctx context.Context) error {
	cadence := time.Duration(r.cfg.Engine.CadenceMinutes) * time.Minute

	for {
		now := time.Now()
		start, end, err := r.cfg.TradingWindow(now)
		if err != nil {
			return fmt.Errorf("failed to resolve trading window: %w", err)
		}

		switch {
		case now.Before(start):
			r.log.WithField("window_start", start).Info("Before trading window, sleeping")
			if err := sleepUntil(ctx, start); err != nil {
				return nil
			}
		case now.After(end):
			nextStart := start.AddDate(0, 0, 1)
			r.log.WithField("window_start", nextStart).Info("After trading window, sleeping until tomorrow")
			if err := sleepUntil(ctx, nextStart); err != nil {
				return nil
			}
		default:
			if err := r.RunOnce(ctx, now); err != nil {
				return err
			}
			if err := sleepUntil(ctx, now.Add(cadence)); err != nil {
				return nil
			}
		}
	}
}

// RunOnce executes one full pipeline cycle: snapshot, select, ingest, learn,
// journal. Fetch and learning failures are logged and the cycle continues;
// store failures abort.
func (r *CycleRunner) RunOnce(ctx context.Context, now time.Time) error {
	cycleID := uuid.New()
	cycleLog := r.log.WithField("cycle_id", cycleID)
	cycleLog.Info("Starting cycle")
	started := time.Now()

	entry := &models.CycleJournalEntry{CycleID: cycleID, Timestamp: now.UTC()}

	selSummary, err := r.runSelection(ctx, now, cycleLog)
	if err != nil {
		return err
	}
	entry.HorsesStored = selSummary.HorsesStored
	entry.UIPicks = selSummary.UIPicks
	entry.Notes = append(entry.Notes, selSummary.Notes...)

	ingSummary, err := r.ingestor.Run(ctx, now)
	if err != nil {
		return fmt.Errorf("results ingestion failed: %w", err)
	}
	entry.WinnersAnalyzed = ingSummary.Winners

	if r.cfg.Features.LearningEnabled {
		learnResult, err := r.learner.Run(ctx, now)
		if err != nil {
			// weights stay as they were; the next cycle retries
			cycleLog.WithError(err).Error("Learning step failed")
			entry.Notes = append(entry.Notes, "learning failed: "+err.Error())
		}
		entry.LogicAdjusted = learnResult.Adjusted
		if learnResult.Adjusted {
			metrics.WeightAdjustmentsTotal.Inc()
		}
	}

	if err := r.repos.Journal.AppendCycle(ctx, entry); err != nil {
		return fmt.Errorf("failed to append cycle journal: %w", err)
	}

	metrics.RecordCycle(time.Since(started).Seconds())
	if r.OnCycle != nil {
		r.OnCycle(time.Now())
	}
	cycleLog.WithFields(logrus.Fields{
		"horses_stored":    entry.HorsesStored,
		"ui_picks":         entry.UIPicks,
		"winners_analyzed": entry.WinnersAnalyzed,
		"logic_adjusted":   entry.LogicAdjusted,
		"duration":         time.Since(started).String(),
	}).Info("Cycle complete")

	return nil
}

// runSelection fetches the snapshot and runs the selector over it. A fetch
// failure skips selection for this cycle; ingestion still runs so settled
// results are never delayed by exchange outages.
func (r *CycleRunner) runSelection(ctx context.Context, now time.Time, cycleLog *logrus.Entry) (selector.Summary, error) {
	weights, err := r.repos.Weights.Get(ctx)
	if err != nil {
		return selector.Summary{}, fmt.Errorf("failed to read weights: %w", err)
	}
	metrics.UpdateWeights(weights.Values)

	history, err := r.history.Build(ctx, now)
	if err != nil {
		return selector.Summary{}, fmt.Errorf("failed to build history view: %w", err)
	}

	fetchStart := time.Now()
	races, err := r.snapshot.FetchSnapshot(ctx)
	metrics.SnapshotFetchDuration.Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		if exchange.IsTransient(err) {
			cycleLog.WithError(err).Warn("Snapshot fetch failed, skipping selection this cycle")
			metrics.ExchangeErrorsTotal.WithLabelValues("transient").Inc()
			return selector.Summary{Notes: []string{"snapshot fetch failed: " + err.Error()}}, nil
		}
		cycleLog.WithError(err).Error("Snapshot fetch failed permanently, skipping selection this cycle")
		metrics.ExchangeErrorsTotal.WithLabelValues("permanent").Inc()
		return selector.Summary{Notes: []string{"snapshot fetch failed: " + err.Error()}}, nil
	}

	scorer := scoring.NewScorer(r.cfg.Scoring.EliteTrainers, history)
	sel := selector.NewSelector(r.cfg.Selector, scorer, r.repos.Picks, r.audit, r.log)
	if r.cfg.Features.EachWayEnabled {
		sel = sel.WithEachWay()
	}

	summary, err := sel.Run(ctx, races, weights, now)
	if err != nil {
		return summary, fmt.Errorf("selection failed: %w", err)
	}
	metrics.RacesProcessedTotal.Add(float64(summary.RacesProcessed))
	metrics.CoverageFailuresTotal.Add(float64(summary.CoverageFailures))
	return summary, nil
}

// sleepUntil blocks until the deadline or context cancellation
func sleepUntil(ctx context.Context, deadline time.Time) error {
	wait := time.Until(deadline)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
