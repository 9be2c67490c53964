package cup

import "errors"

var (
	ErrNotFound = errors.New("not found")

	ErrInvalidSide      = errors.New("projectSide must be project1 or project2")
	ErrNoIdentity       = errors.New("no voting identity")
	ErrAlreadyVoted     = errors.New("you have already voted on this match")
	ErrSelfVote         = errors.New("you cannot vote for your own project")
	ErrVotingExpired    = errors.New("voting for this match has ended")
	ErrMatchClosed      = errors.New("match is already completed")
	ErrWinnerDetermined = errors.New("winner already determined for this match")

	ErrCupNotActive        = errors.New("cup is not active")
	ErrCupNotDraft         = errors.New("cup has already been started")
	ErrFinalRound          = errors.New("cup is already in the final round")
	ErrNextRoundExists     = errors.New("next round already exists")
	ErrUndecidedMatches    = errors.New("all matches in the current round must have a winner")
	ErrOddWinners          = errors.New("odd number of winners, cannot pair next round")
	ErrNoMatches           = errors.New("current round has no matches")
	ErrInvalidSize         = errors.New("cup size must be one of 4, 8, 16, 32, 64 or 128")
	ErrInvalidProjects     = errors.New("selected projects do not fill the cup")
	ErrDuplicateProject    = errors.New("a project can only be selected once")
	ErrInvalidEndDate      = errors.New("endDate must be in the future")
	ErrInvalidName         = errors.New("name is required")
	ErrInvalidIdentity     = errors.New("identityType must be hominio, founder or angel")
	ErrInvalidSubscription = errors.New("subscription endpoint and keys are required")
)
