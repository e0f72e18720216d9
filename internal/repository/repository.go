package repository

import (
	"fmt"

	"github.com/yourusername/race-picks/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Picks   PicksRepository
	Weights WeightsRepository
	Journal JournalRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Picks:   NewPostgresPicksRepository(db),
		Weights: NewPostgresWeightsRepository(db),
		Journal: NewPostgresJournalRepository(db),
	}, nil
}
