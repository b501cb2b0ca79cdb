package services

import "errors"

// Shared errors used across services and HTTP mapping.
var (
	// Universal "not found"
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules
	ErrValidationFailed       = errors.New("validation failed")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrOverrideReasonTooShort = errors.New("override reason must be at least 10 characters")
	ErrAmountNotPositive      = errors.New("amount must be positive")
	ErrRegistrationNotOpen    = errors.New("tournament registration is not open")
	ErrTournamentFull         = errors.New("tournament registration is full")

	// State conflicts: the caller is told the current state so the correct
	// retry is obvious.
	ErrInvalidTransition  = errors.New("invalid tournament status transition")
	ErrStartDateExpired   = errors.New("tournament start date is more than one hour in the past; update the schedule first")
	ErrPoolAlreadyLocked  = errors.New("escrow pool is already locked")
	ErrPoolNotLocked      = errors.New("escrow pool is not locked")
	ErrAlreadyDistributed = errors.New("escrow pool has already been settled")
	ErrResultLocked       = errors.New("match result is locked")
	ErrAlreadyLocked      = errors.New("match result is already locked")
	ErrNoLockFound        = errors.New("no result lock found for this match")
	ErrTransactionSettled = errors.New("transaction is not pending")

	// Insufficient resources
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrInsufficientTeams = errors.New("not enough registered teams to start the tournament")

	// Entity-specific not-found (more context than ErrNotFound)
	ErrUserNotFound        = errors.New("user not found")
	ErrTeamNotFound        = errors.New("team not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrPoolNotFound        = errors.New("escrow pool not found")
	ErrParticipantNotFound = errors.New("participant registration not found")
	ErrWalletNotFound      = errors.New("wallet not found")

	// Conflicts
	ErrUserEmailConflict      = errors.New("email address is already in use")
	ErrRegistrationConflict   = errors.New("user is already registered for this tournament")
	ErrTournamentNameConflict = errors.New("the organizer already has a tournament with this name")

	// Authentication / authorization
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
)
