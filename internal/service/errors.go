package service

import "errors"

var (
	// ErrSyncInFlight reports that a sync cycle was requested while
	// another one was already running. The new request is dropped, not
	// queued; callers may safely ignore this error.
	ErrSyncInFlight = errors.New("sync already in flight")

	// ErrOffline reports that the connectivity probe failed and the
	// cycle was aborted before any state was touched.
	ErrOffline = errors.New("server unreachable")

	ErrValidationNoClientID        = errors.New("no client id provided")
	ErrValidationInvalidRecordType = errors.New("record type must be income or expense")
	ErrValidationNonPositiveAmount = errors.New("amount must be positive")
	ErrValidationNoCategory        = errors.New("no category provided")
	ErrValidationNoLedger          = errors.New("no ledger provided")
	ErrValidationNoDate            = errors.New("no record date provided")
)
