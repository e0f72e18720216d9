package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/race-picks/internal/models"
)

// MemoryPicksRepository is an in-memory PicksRepository used in tests and for
// dry runs without a database.
type MemoryPicksRepository struct {
	mu      sync.RWMutex
	records map[string]*models.PickRecord // key: bet_date|bet_id
}

// NewMemoryPicksRepository creates an empty in-memory picks repository
func NewMemoryPicksRepository() *MemoryPicksRepository {
	return &MemoryPicksRepository{records: make(map[string]*models.PickRecord)}
}

func pickKey(betDate, betID string) string {
	return betDate + "|" + betID
}

func clonePick(record *models.PickRecord) *models.PickRecord {
	clone := *record
	clone.Reasons = append([]string(nil), record.Reasons...)
	if record.Outcome != nil {
		o := *record.Outcome
		clone.Outcome = &o
	}
	if record.ActualPosition != nil {
		pos := *record.ActualPosition
		clone.ActualPosition = &pos
	}
	if record.ProfitLoss != nil {
		pl := *record.ProfitLoss
		clone.ProfitLoss = &pl
	}
	if record.ResultUpdatedAt != nil {
		ts := *record.ResultUpdatedAt
		clone.ResultUpdatedAt = &ts
	}
	if record.ResultNote != nil {
		note := *record.ResultNote
		clone.ResultNote = &note
	}
	return &clone
}

// Put upserts a record, preserving any settlement fields already present
func (m *MemoryPicksRepository) Put(_ context.Context, record *models.PickRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := clonePick(record)
	if existing, ok := m.records[pickKey(record.BetDate, record.BetID)]; ok {
		clone.Outcome = existing.Outcome
		clone.ActualPosition = existing.ActualPosition
		clone.ProfitLoss = existing.ProfitLoss
		clone.ResultUpdatedAt = existing.ResultUpdatedAt
		clone.ResultNote = existing.ResultNote
	}
	m.records[pickKey(record.BetDate, record.BetID)] = clone
	return nil
}

// PutBatch upserts multiple records
func (m *MemoryPicksRepository) PutBatch(ctx context.Context, records []*models.PickRecord) error {
	for _, record := range records {
		if err := m.Put(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// GetByKey retrieves one record
func (m *MemoryPicksRepository) GetByKey(_ context.Context, betDate, betID string) (*models.PickRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[pickKey(betDate, betID)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clonePick(record), nil
}

// Query returns all records for a bet_date
func (m *MemoryPicksRepository) Query(_ context.Context, betDate string, filter PickFilter) ([]*models.PickRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []*models.PickRecord
	for _, record := range m.records {
		if record.BetDate != betDate {
			continue
		}
		if filter != nil && !filter(record) {
			continue
		}
		records = append(records, clonePick(record))
	}
	sortPicks(records)
	return records, nil
}

// Scan returns all records within a date range
func (m *MemoryPicksRepository) Scan(_ context.Context, fromDate, toDate string, filter PickFilter) ([]*models.PickRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []*models.PickRecord
	for _, record := range m.records {
		if record.BetDate < fromDate || record.BetDate > toDate {
			continue
		}
		if record.BetDate == models.JournalPartition {
			continue
		}
		if filter != nil && !filter(record) {
			continue
		}
		records = append(records, clonePick(record))
	}
	sortPicks(records)
	return records, nil
}

// GetPending returns unsettled records with race_time before the cutoff
func (m *MemoryPicksRepository) GetPending(_ context.Context, dates []string, raceTimeBefore time.Time) ([]*models.PickRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dateSet := make(map[string]bool, len(dates))
	for _, d := range dates {
		dateSet[d] = true
	}

	var records []*models.PickRecord
	for _, record := range m.records {
		if !dateSet[record.BetDate] || !record.IsPending() {
			continue
		}
		if !record.RaceTime.Before(raceTimeBefore) {
			continue
		}
		records = append(records, clonePick(record))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].RaceTime.Before(records[j].RaceTime) })
	return records, nil
}

// SetOutcome writes settlement fields if no final outcome is present
func (m *MemoryPicksRepository) SetOutcome(_ context.Context, betDate, betID string, update OutcomeUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[pickKey(betDate, betID)]
	if !ok {
		return models.ErrNotFound
	}
	if record.Outcome != nil && record.Outcome.IsFinal() {
		return models.ErrOutcomeAlreadySet
	}

	outcome := update.Outcome
	record.Outcome = &outcome
	record.ActualPosition = update.ActualPosition
	record.ProfitLoss = update.ProfitLoss
	record.ResultNote = update.Note
	ts := update.UpdatedAt
	record.ResultUpdatedAt = &ts
	return nil
}

// ClearUIPicks demotes stale show_in_ui rows for a market to learning rows
func (m *MemoryPicksRepository) ClearUIPicks(_ context.Context, betDate, marketID, keepBetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range m.records {
		if record.BetDate != betDate || record.MarketID != marketID || !record.ShowInUI {
			continue
		}
		if record.BetID == keepBetID {
			continue
		}
		record.ShowInUI = false
		record.IsLearningPick = true
	}
	return nil
}

// CountUIPicks counts show_in_ui rows for a market
func (m *MemoryPicksRepository) CountUIPicks(_ context.Context, betDate, marketID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, record := range m.records {
		if record.BetDate == betDate && record.MarketID == marketID && record.ShowInUI {
			count++
		}
	}
	return count, nil
}

func sortPicks(records []*models.PickRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].BetDate != records[j].BetDate {
			return records[i].BetDate < records[j].BetDate
		}
		return records[i].BetID < records[j].BetID
	})
}

// MemoryWeightsRepository is an in-memory WeightsRepository
type MemoryWeightsRepository struct {
	mu      sync.Mutex
	current models.Weights
	seeded  bool
}

// NewMemoryWeightsRepository creates an in-memory weights repository
func NewMemoryWeightsRepository() *MemoryWeightsRepository {
	return &MemoryWeightsRepository{}
}

// Get returns the current weights, seeding defaults on first read
func (m *MemoryWeightsRepository) Get(_ context.Context) (models.Weights, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.seeded {
		m.current = models.DefaultWeights()
		m.seeded = true
	}
	return m.current.Copy(), nil
}

// CompareAndSwap swaps the weights when the version matches
func (m *MemoryWeightsRepository) CompareAndSwap(_ context.Context, expectedVersion string, next models.Weights) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.seeded {
		m.current = models.DefaultWeights()
		m.seeded = true
	}
	if m.current.Version != expectedVersion {
		return models.ErrVersionConflict
	}
	m.current = next.Copy()
	return nil
}

// MemoryJournalRepository is an in-memory JournalRepository
type MemoryJournalRepository struct {
	mu       sync.Mutex
	Learning []*models.LearningJournalEntry
	Cycles   []*models.CycleJournalEntry
}

// NewMemoryJournalRepository creates an in-memory journal repository
func NewMemoryJournalRepository() *MemoryJournalRepository {
	return &MemoryJournalRepository{}
}

// AppendLearning appends a learning journal entry
func (m *MemoryJournalRepository) AppendLearning(_ context.Context, entry *models.LearningJournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Learning = append(m.Learning, entry)
	return nil
}

// AppendCycle appends a cycle journal entry
func (m *MemoryJournalRepository) AppendCycle(_ context.Context, entry *models.CycleJournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cycles = append(m.Cycles, entry)
	return nil
}

// RecentLearning returns the most recent learning entries
func (m *MemoryJournalRepository) RecentLearning(_ context.Context, limit int) ([]*models.LearningJournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := append([]*models.LearningJournalEntry(nil), m.Learning...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
