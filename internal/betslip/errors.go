package betslip

import (
	"errors"

	"betpro/internal/ledger"
)

var (
	ErrEmpty             = errors.New("empty_slip")
	ErrNotAuthenticated  = errors.New("not_authenticated")
	ErrPlacementFailed   = errors.New("placement_failed")
	ErrSelectionNotFound = errors.New("selection_not_found")
	ErrSubmitInProgress  = errors.New("submit_in_progress")
	ErrUnsupportedSide   = errors.New("unsupported_side")
	ErrInvalidSelection  = errors.New("invalid_selection")
	ErrStakeTooLarge     = errors.New("stake_too_large")

	ErrInsufficientFunds = ledger.ErrInsufficientFunds
	ErrNotFound          = ledger.ErrWagerNotFound
	ErrAlreadySettled    = ledger.ErrAlreadySettled
	ErrInvalidOutcome    = ledger.ErrInvalidOutcome
)

// PlacementError is an infrastructure failure during submit. The whole batch
// was rolled back, so the caller may retry without re-validating.
type PlacementError struct {
	Cause error
}

func (e *PlacementError) Error() string {
	if e.Cause == nil {
		return ErrPlacementFailed.Error()
	}
	return ErrPlacementFailed.Error() + ": " + e.Cause.Error()
}

func (e *PlacementError) Unwrap() []error {
	return []error{ErrPlacementFailed, e.Cause}
}

func Retryable(err error) bool {
	return errors.Is(err, ErrPlacementFailed)
}

// Message maps an error to short text suitable for showing to a user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmpty):
		return "Add at least one selection to your bet slip."
	case errors.Is(err, ErrNotAuthenticated):
		return "Sign in to place bets."
	case errors.Is(err, ErrInsufficientFunds):
		return "Insufficient balance. Reduce your stake."
	case errors.Is(err, ErrPlacementFailed):
		return "Your bets could not be placed. Please try again."
	case errors.Is(err, ErrSubmitInProgress):
		return "Your bets are being placed."
	case errors.Is(err, ErrSelectionNotFound):
		return "That selection is no longer on your slip."
	case errors.Is(err, ErrUnsupportedSide):
		return "Draw bets are not available."
	case errors.Is(err, ErrInvalidSelection):
		return "That selection is not valid."
	case errors.Is(err, ErrStakeTooLarge):
		return "That stake is larger than the maximum allowed."
	case errors.Is(err, ErrNotFound):
		return "Bet not found."
	case errors.Is(err, ErrAlreadySettled):
		return "This bet has already been settled."
	case errors.Is(err, ErrInvalidOutcome):
		return "Outcome must be won or lost."
	default:
		return "Something went wrong."
	}
}
