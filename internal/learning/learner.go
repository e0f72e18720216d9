package learning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-picks/internal/config"
	"github.com/yourusername/race-picks/internal/logger"
	"github.com/yourusername/race-picks/internal/metrics"
	"github.com/yourusername/race-picks/internal/models"
	"github.com/yourusername/race-picks/internal/repository"
)

// eliteLiftThreshold is the minimum pooled elite-trainer win-rate lift over
// the overall rate before the trainer weight moves.
const eliteLiftThreshold = 0.10

// journalScanLimit bounds how far back we look for the last adjustment entry
const journalScanLimit = 50

// rule pairs a trigger condition with the bounded deltas it proposes
type rule struct {
	name      string
	triggered func(stats Stats, elite map[string]bool) bool
	deltas    map[string]float64
}

// adjustmentRules fire in order; every delta is clamped to the configured
// bounds before it is applied.
var adjustmentRules = []rule{
	{
		name: "poor-form winners above 15%: trust recent form less, mid odds more",
		triggered: func(s Stats, _ map[string]bool) bool {
			return s.TotalWins > 0 && s.PoorFormHitRate() > 0.15
		},
		deltas: map[string]float64{
			models.WeightRecentWin:   -2,
			models.WeightOptimalOdds: 2,
		},
	},
	{
		name: "optimal band winning above 50%: lean into the optimal band",
		triggered: func(s Stats, _ map[string]bool) bool {
			return s.OptimalRuns > 0 && s.OptimalHitRate() > 0.50
		},
		deltas: map[string]float64{models.WeightOptimalOdds: 3},
	},
	{
		name: "sweet spot winning below 35%: trust the wide band less",
		triggered: func(s Stats, _ map[string]bool) bool {
			return s.SweetSpotRuns > 0 && s.SweetSpotHitRate() < 0.35
		},
		deltas: map[string]float64{models.WeightSweetSpot: -2},
	},
	{
		name: "favorites winning above 40%: penalize short odds less",
		triggered: func(s Stats, _ map[string]bool) bool {
			return s.FavoriteRuns >= 10 && s.FavoriteWinRate() > 0.40
		},
		deltas: map[string]float64{models.WeightFavoriteCorrection: 2},
	},
	{
		name: "elite trainers outperforming: trust trainer reputation more",
		triggered: func(s Stats, elite map[string]bool) bool {
			return s.EliteTrainerLift(elite) > eliteLiftThreshold
		},
		deltas: map[string]float64{models.WeightTrainerReputation: 1},
	},
}

// Result reports what one learning run did
type Result struct {
	Skipped       bool
	Adjusted      bool
	RacesAnalyzed int
	NewOutcomes   int
	Entry         *models.LearningJournalEntry
}

// Learner reads recent settled picks, computes pattern statistics and
// rewrites the weights through bounded, clamped deltas.
type Learner struct {
	cfg           config.LearningConfig
	bounds        map[string]models.WeightBound
	eliteTrainers map[string]bool
	picks         repository.PicksRepository
	weights       repository.WeightsRepository
	journal       repository.JournalRepository
	audit         *logger.AuditLogger
	learnLog      *logger.LearningLogger
	log           *logrus.Logger
}

// NewLearner creates a weight learner
func NewLearner(
	cfg config.LearningConfig,
	scoringCfg config.ScoringConfig,
	repos *repository.Repositories,
	audit *logger.AuditLogger,
	learnLog *logger.LearningLogger,
	log *logrus.Logger,
) *Learner {
	elite := make(map[string]bool, len(scoringCfg.EliteTrainers))
	for _, trainer := range scoringCfg.EliteTrainers {
		elite[trainer] = true
	}

	bounds := models.DefaultWeightBounds()
	for key, bound := range scoringCfg.WeightBounds {
		bounds[key] = bound
	}

	return &Learner{
		cfg:           cfg,
		bounds:        bounds,
		eliteTrainers: elite,
		picks:         repos.Picks,
		weights:       repos.Weights,
		journal:       repos.Journal,
		audit:         audit,
		learnLog:      learnLog,
		log:           log,
	}
}

// Run executes one learning cycle over the configured window. It is skipped
// when too few outcomes settled since the last adjustment, which also makes
// re-runs over an unchanged window leave the weights untouched.
func (l *Learner) Run(ctx context.Context, now time.Time) (Result, error) {
	records, err := l.windowRecords(ctx, now)
	if err != nil {
		return Result{}, err
	}

	newOutcomes, err := l.countNewOutcomes(ctx, records)
	if err != nil {
		return Result{}, err
	}
	if newOutcomes < l.cfg.MinNewOutcomes {
		l.log.WithFields(logrus.Fields{
			"new_outcomes": newOutcomes,
			"required":     l.cfg.MinNewOutcomes,
		}).Debug("Not enough new outcomes, skipping learning")
		return Result{Skipped: true, RacesAnalyzed: len(records), NewOutcomes: newOutcomes}, nil
	}

	stats := ComputeStats(records)
	deltas, triggered := l.proposeDeltas(stats)
	patterns := stats.ToPatterns(l.eliteTrainers)

	for trainer, window := range stats.Trainers {
		if l.eliteTrainers[trainer] {
			l.learnLog.LogTrainerWindow(trainer, window.Wins, window.Losses, stats.EliteTrainerLift(l.eliteTrainers))
		}
	}

	if len(deltas) == 0 {
		entry, err := l.journalValidation(ctx, now, len(records), patterns)
		if err != nil {
			return Result{}, err
		}
		return Result{RacesAnalyzed: len(records), NewOutcomes: newOutcomes, Entry: entry}, nil
	}

	entry, err := l.applyDeltas(ctx, now, len(records), patterns, deltas, triggered)
	if err != nil {
		return Result{}, err
	}
	return Result{Adjusted: true, RacesAnalyzed: len(records), NewOutcomes: newOutcomes, Entry: entry}, nil
}

// windowRecords loads every settled, non-void pick inside the learning window
func (l *Learner) windowRecords(ctx context.Context, now time.Time) ([]*models.PickRecord, error) {
	toDate := now.UTC().Format("2006-01-02")
	fromDate := now.UTC().AddDate(0, 0, -l.cfg.WindowDays).Format("2006-01-02")

	records, err := l.picks.Scan(ctx, fromDate, toDate, func(p *models.PickRecord) bool {
		switch p.GetOutcome() {
		case models.OutcomeWon, models.OutcomePlaced, models.OutcomeLost:
			return true
		default:
			return false
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan learning window: %w", err)
	}
	return records, nil
}

// countNewOutcomes counts outcomes settled after the last adjustment entry
func (l *Learner) countNewOutcomes(ctx context.Context, records []*models.PickRecord) (int, error) {
	entries, err := l.journal.RecentLearning(ctx, journalScanLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to read learning journal: %w", err)
	}

	var lastAdjustment time.Time
	for _, entry := range entries {
		if entry.LearningType == models.LearningTypeAdjustment {
			lastAdjustment = entry.Timestamp
			break
		}
	}

	count := 0
	for _, record := range records {
		if record.ResultUpdatedAt != nil && record.ResultUpdatedAt.After(lastAdjustment) {
			count++
		}
	}
	return count, nil
}

// proposeDeltas evaluates every rule and merges the deltas of those that fire
func (l *Learner) proposeDeltas(stats Stats) (map[string]float64, []string) {
	deltas := make(map[string]float64)
	var triggered []string

	for _, r := range adjustmentRules {
		if !r.triggered(stats, l.eliteTrainers) {
			continue
		}
		triggered = append(triggered, r.name)
		for key, delta := range r.deltas {
			deltas[key] += delta
		}
	}

	return deltas, triggered
}

// applyDeltas writes the adjusted weights with a compare-and-set retry loop
// and journals the run.
func (l *Learner) applyDeltas(
	ctx context.Context,
	now time.Time,
	racesAnalyzed int,
	patterns map[string]float64,
	deltas map[string]float64,
	triggered []string,
) (*models.LearningJournalEntry, error) {
	var current, next models.Weights

	for attempt := 1; attempt <= l.cfg.MaxCASAttempts; attempt++ {
		var err error
		current, err = l.weights.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read weights: %w", err)
		}

		next = current.Copy().WithVersion(now)
		for key, delta := range deltas {
			bound := l.bounds[key]
			next.Values[key] = bound.Clamp(current.Get(key) + delta)
		}

		err = l.weights.CompareAndSwap(ctx, current.Version, next)
		if err == nil {
			break
		}
		if !errors.Is(err, models.ErrVersionConflict) {
			return nil, fmt.Errorf("failed to persist weights: %w", err)
		}
		metrics.WeightConflictsTotal.Inc()
		l.learnLog.LogVersionConflict(current.Version, "", attempt)
		if attempt == l.cfg.MaxCASAttempts {
			return nil, fmt.Errorf("weights version conflict persisted after %d attempts: %w",
				l.cfg.MaxCASAttempts, err)
		}
	}

	for key := range deltas {
		if current.Get(key) != next.Get(key) {
			l.audit.LogWeightChange(key, current.Get(key), next.Get(key), ruleForKey(key, triggered), next.Version)
		}
	}
	l.learnLog.LogLearningRun(racesAnalyzed, patterns, triggered, current.Version, next.Version)

	entry := models.NewLearningJournalEntry(models.LearningTypeAdjustment, now)
	entry.RacesAnalyzed = racesAnalyzed
	entry.Patterns = patterns
	entry.AdjustmentsApplied = triggered
	entry.OldWeights = current.Values
	entry.NewWeights = next.Values

	if err := l.journal.AppendLearning(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append learning journal: %w", err)
	}
	return entry, nil
}

// journalValidation records a run where every rule stayed quiet
func (l *Learner) journalValidation(ctx context.Context, now time.Time, racesAnalyzed int, patterns map[string]float64) (*models.LearningJournalEntry, error) {
	current, err := l.weights.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights: %w", err)
	}

	l.learnLog.LogValidation(racesAnalyzed, current.Version)

	entry := models.NewLearningJournalEntry(models.LearningTypeValidation, now)
	entry.RacesAnalyzed = racesAnalyzed
	entry.Patterns = patterns
	entry.AdjustmentsApplied = []string{"validated; no adjustment"}
	entry.OldWeights = current.Values
	entry.NewWeights = current.Values

	if err := l.journal.AppendLearning(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append learning journal: %w", err)
	}
	return entry, nil
}

// ruleForKey finds the first triggered rule naming the key, for audit logging
func ruleForKey(key string, triggered []string) string {
	for _, r := range adjustmentRules {
		if _, ok := r.deltas[key]; !ok {
			continue
		}
		for _, name := range triggered {
			if name == r.name {
				return name
			}
		}
	}
	return ""
}
