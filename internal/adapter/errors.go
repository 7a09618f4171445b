package adapter

import "errors"

var (
	// ErrNetwork wraps transport failures where no HTTP response was
	// received: connection refused, DNS failure, timeout.
	ErrNetwork = errors.New("network unreachable")

	// ErrUnauthorized is returned for 401 responses: the token is missing,
	// expired, or invalid.
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrVersionConflict is returned for 409 responses signalling an
	// optimistic-locking failure on the whole batch.
	ErrVersionConflict = errors.New("version conflict")

	// ErrValidation is returned for 400 responses rejecting the payload.
	ErrValidation = errors.New("invalid payload")

	ErrInternalServerError = errors.New("internal server error")
)
