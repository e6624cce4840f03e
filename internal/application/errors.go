package application

import "errors"

// Validation errors.
var (
	ErrInvalidTournament     = errors.New("invalid tournament parameters")
	ErrInvalidParticipant    = errors.New("participant needs a discord user or player id")
	ErrInvalidBankType       = errors.New("invalid bank type")
	ErrManualAmountTooLow    = errors.New("manual bank amount is below the minimum")
	ErrInvalidWinner         = errors.New("winner must be 1 or 2")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrNotEnoughParticipants = errors.New("not enough participants")
	ErrOddParticipantCount   = errors.New("participant count is odd")
	ErrBetBelowMinimum       = errors.New("bet is below the stage minimum")
	ErrInvalidBetTarget      = errors.New("bet target is not part of this pair")
)

// Precondition errors.
var (
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrParticipantNotFound     = errors.New("participant not found")
	ErrMatchNotFound           = errors.New("match not found")
	ErrPairNotFound            = errors.New("pair not found")
	ErrBetNotFound             = errors.New("bet not found")
	ErrActionNotFound          = errors.New("action not found")
	ErrActionNotUndoable       = errors.New("undo entries cannot be undone")
	ErrAlreadyRegistered       = errors.New("already registered")
	ErrTournamentFull          = errors.New("tournament is full")
	ErrRegistrationClosed      = errors.New("registration is closed")
	ErrInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrTournamentFinished      = errors.New("tournament is finished")
	ErrNoActiveRound           = errors.New("no round has been started")
	ErrPreviousRoundIncomplete = errors.New("previous round is not fully decided")
	ErrNoSurvivors             = errors.New("round produced no survivors")
	ErrRoundClosed             = errors.New("match belongs to a completed round")
	ErrPairUndecided           = errors.New("pair has undecided matches")
	ErrWinnerMismatch          = errors.New("winner does not match the reported results")
	ErrAlreadySettled          = errors.New("tournament is already settled")
	ErrBetSettled              = errors.New("bet is already settled")
	ErrBetExists               = errors.New("you already have an open bet on this pair")
	ErrBettingClosed           = errors.New("betting is closed for this pair")
	ErrNotBetOwner             = errors.New("bet belongs to another user")
	ErrSheetsNotConfigured     = errors.New("google sheets service is not configured")
)

// Funding errors.
var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientBankFunds = errors.New("insufficient bank funds")
)
