package store

import "errors"

// Sentinel errors shared by the server and client repositories. Callers
// match them with errors.Is; repository methods wrap them with query
// context via fmt.Errorf("%w: %w", ...).
var (
	// ErrExecutingQuery indicates a query failed to execute.
	ErrExecutingQuery = errors.New("error executing query")
	// ErrScanningRow indicates a row could not be scanned into a model.
	ErrScanningRow = errors.New("error scanning row")
	// ErrScanningRows indicates rows iteration finished with an error.
	ErrScanningRows = errors.New("error scanning rows")
	// ErrBeginTransaction indicates a transaction could not be started.
	ErrBeginTransaction = errors.New("error beginning transaction")
	// ErrCommitTransaction indicates a transaction could not be committed.
	ErrCommitTransaction = errors.New("error committing transaction")

	// ErrRecordNotFound is returned when a record lookup matches nothing.
	ErrRecordNotFound = errors.New("record not found")
	// ErrVersionMismatch is returned when an optimistic-concurrency check
	// fails: the caller-supplied sync version differs from the stored one.
	ErrVersionMismatch = errors.New("sync version mismatch")
)
