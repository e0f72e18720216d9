package models

import "errors"

// Custom errors
var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateKey       = errors.New("duplicate key violation")
	ErrVersionConflict    = errors.New("weights version conflict")
	ErrOutcomeAlreadySet  = errors.New("outcome already recorded")
	ErrInvalidSnapshot    = errors.New("invalid market snapshot")
	ErrInvalidOdds        = errors.New("invalid odds")
	ErrInvariantViolation = errors.New("store invariant violation")
)
