package httptransport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"betpro/internal/money"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const maxBodyBytes = 1 << 20

type credentialsRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=64"`
	Secret      string `json:"secret" validate:"required,max=256"`
}

type addSelectionRequest struct {
	MatchID  string      `json:"match_id" validate:"required,max=128"`
	Side     string      `json:"side" validate:"required,oneof=home away draw"`
	Price    money.Price `json:"price"`
	HomeTeam string      `json:"home_team" validate:"max=128"`
	AwayTeam string      `json:"away_team" validate:"max=128"`
	League   string      `json:"league" validate:"max=128"`
}

type updateStakeRequest struct {
	Stake *money.Amount `json:"stake" validate:"required"`
}

type settleRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=won lost"`
}

type topupRequest struct {
	Amount money.Amount `json:"amount" validate:"gt=0"`
}

// decodeRequest reads a JSON body into dst and validates it. On failure the
// error response has already been written.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_json", Message: "Request body is not valid JSON."})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		resp := errorResponse{Error: "invalid_request", Message: "Request failed validation."}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Details = make(map[string]string, len(verrs))
			for _, fe := range verrs {
				resp.Details[fe.Field()] = fmt.Sprintf("failed on '%s'", fe.Tag())
			}
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}
