// Package engine drives the picks pipeline: snapshot, select, ingest, learn,
// journal, on a fixed cadence inside the daily trading window.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-picks/internal/models"
	"github.com/yourusername/race-picks/internal/repository"
)

// historyLookbackDays is how far back the scorer's history view reaches
const historyLookbackDays = 90

// HistorySnapshot is an immutable capture of recorded wins, taken at cycle
// start so scoring never reads the live store.
type HistorySnapshot struct {
	winsAtVenue map[string]int
	winners     map[string]bool
}

// WinsAtVenue returns recorded wins for a horse at a venue
func (h *HistorySnapshot) WinsAtVenue(horse, venue string) int {
	return h.winsAtVenue[historyKey(horse, venue)]
}

// HasRecordedWin reports whether the horse has any recorded win
func (h *HistorySnapshot) HasRecordedWin(horse string) bool {
	return h.winners[strings.ToLower(horse)]
}

// HistoryBuilder scans settled winners into a HistorySnapshot, caching the
// result so repeated cycles within the refresh interval reuse it.
type HistoryBuilder struct {
	picks repository.PicksRepository
	cache *gocache.Cache
	log   *logrus.Logger
}

// NewHistoryBuilder creates a history builder whose snapshots stay cached
// for the given refresh interval.
func NewHistoryBuilder(picks repository.PicksRepository, refresh time.Duration, log *logrus.Logger) *HistoryBuilder {
	return &HistoryBuilder{
		picks: picks,
		cache: gocache.New(refresh, 2*refresh),
		log:   log,
	}
}

// Build returns the cached snapshot or scans a fresh one
func (b *HistoryBuilder) Build(ctx context.Context, now time.Time) (*HistorySnapshot, error) {
	const cacheKey = "history"
	if cached, ok := b.cache.Get(cacheKey); ok {
		return cached.(*HistorySnapshot), nil
	}

	toDate := now.UTC().Format("2006-01-02")
	fromDate := now.UTC().AddDate(0, 0, -historyLookbackDays).Format("2006-01-02")

	winners, err := b.picks.Scan(ctx, fromDate, toDate, func(p *models.PickRecord) bool {
		return p.GetOutcome() == models.OutcomeWon
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan pick history: %w", err)
	}

	snapshot := &HistorySnapshot{
		winsAtVenue: make(map[string]int),
		winners:     make(map[string]bool),
	}
	for _, record := range winners {
		snapshot.winsAtVenue[historyKey(record.Horse, record.Course)]++
		snapshot.winners[strings.ToLower(record.Horse)] = true
	}

	b.log.WithFields(logrus.Fields{
		"winners":   len(winners),
		"from_date": fromDate,
		"to_date":   toDate,
	}).Debug("Built pick history snapshot")

	b.cache.Set(cacheKey, snapshot, gocache.DefaultExpiration)
	return snapshot, nil
}

func historyKey(horse, venue string) string {
	return strings.ToLower(horse) + "|" + strings.ToLower(venue)
}
