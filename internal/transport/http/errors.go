package httptransport

import (
	"errors"
	"net/http"

	appaccount "betpro/internal/app/account"
	apppublic "betpro/internal/app/public"
	appslip "betpro/internal/app/slip"
	"betpro/internal/betslip"
	"betpro/internal/ledger"
	"betpro/internal/session"
	"betpro/internal/stats"

	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

var errorStatus = []struct {
	err    error
	status int
}{
	{appaccount.ErrInvalidRequest, http.StatusBadRequest},
	{appaccount.ErrInvalidStatus, http.StatusBadRequest},
	{appslip.ErrInvalidRequest, http.StatusBadRequest},
	{apppublic.ErrInvalidRequest, http.StatusBadRequest},
	{ledger.ErrInvalidName, http.StatusBadRequest},
	{ledger.ErrWeakSecret, http.StatusBadRequest},
	{ledger.ErrInvalidAmount, http.StatusBadRequest},
	{ledger.ErrInvalidOutcome, http.StatusBadRequest},
	{ledger.ErrInvalidWager, http.StatusBadRequest},
	{betslip.ErrInvalidSelection, http.StatusBadRequest},
	{betslip.ErrUnsupportedSide, http.StatusBadRequest},
	{betslip.ErrStakeTooLarge, http.StatusBadRequest},

	{betslip.ErrNotAuthenticated, http.StatusUnauthorized},
	{ledger.ErrBadCredential, http.StatusUnauthorized},
	{session.ErrInvalidToken, http.StatusUnauthorized},
	{session.ErrSessionNotFound, http.StatusUnauthorized},

	{ledger.ErrAccountNotFound, http.StatusNotFound},
	{ledger.ErrWagerNotFound, http.StatusNotFound},
	{betslip.ErrSelectionNotFound, http.StatusNotFound},
	{stats.ErrAccountNotFound, http.StatusNotFound},

	{ledger.ErrDuplicateName, http.StatusConflict},
	{ledger.ErrAlreadySettled, http.StatusConflict},
	{ledger.ErrConcurrentUpdate, http.StatusConflict},
	{betslip.ErrSubmitInProgress, http.StatusConflict},

	{ledger.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{betslip.ErrEmpty, http.StatusUnprocessableEntity},

	{betslip.ErrPlacementFailed, http.StatusServiceUnavailable},
}

var errorMessages = map[error]string{
	ledger.ErrInvalidName:      "Display name must be 3 to 20 characters of a-z, 0-9 or underscore.",
	ledger.ErrWeakSecret:       "Password is too short.",
	ledger.ErrDuplicateName:    "That display name is taken.",
	ledger.ErrAccountNotFound:  "Account not found.",
	ledger.ErrBadCredential:    "Wrong display name or password.",
	ledger.ErrInvalidAmount:    "Amount must be positive.",
	ledger.ErrConcurrentUpdate: "The account is busy. Please try again.",
	session.ErrInvalidToken:    "Sign in again.",
	session.ErrSessionNotFound: "Your session has ended. Sign in again.",
}

// statusOf maps a domain error to its HTTP status and error code.
func statusOf(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func messageOf(err error) string {
	for e, msg := range errorMessages {
		if errors.Is(err, e) {
			return msg
		}
	}
	return betslip.Message(err)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{
		Error:     code,
		Message:   messageOf(err),
		Retryable: betslip.Retryable(err),
	})
}
