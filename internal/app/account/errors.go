package account

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInvalidStatus  = errors.New("invalid_status")
)
