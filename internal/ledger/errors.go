package ledger

import "errors"

var (
	ErrInvalidName       = errors.New("invalid_name")
	ErrWeakSecret        = errors.New("weak_secret")
	ErrDuplicateName     = errors.New("duplicate_name")
	ErrAccountNotFound   = errors.New("account_not_found")
	ErrBadCredential     = errors.New("bad_credential")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrWagerNotFound     = errors.New("wager_not_found")
	ErrAlreadySettled    = errors.New("already_settled")
	ErrInvalidOutcome    = errors.New("invalid_outcome")
	ErrInvalidWager      = errors.New("invalid_wager")
	ErrConcurrentUpdate  = errors.New("concurrent_update")
	ErrCorruptState      = errors.New("corrupt_state")
)
