package store

import (
	"context"

	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

//go:generate mockgen -source=client_interfaces.go -destination=../mock/client_store_mock.go -package=mock

// LocalRecordRepository is the client-side mutable record store.
type LocalRecordRepository interface {
	// Save upserts records by client id.
	Save(ctx context.Context, records ...models.Record) error

	// Get returns the record with the given client id, or
	// ErrRecordNotFound.
	Get(ctx context.Context, id string) (models.Record, error)

	// GetAll returns every locally stored record, tombstones included.
	GetAll(ctx context.Context) ([]models.Record, error)

	// Delete removes records by client id. Missing ids are not an error.
	Delete(ctx context.Context, ids ...string) error

	// ReplaceAll atomically swaps the whole record set. Used by the
	// full-sync bootstrap path.
	ReplaceAll(ctx context.Context, records []models.Record) error
}

// SyncStateRepository persists the three keyed sync-state blobs: session
// meta, the pending-change map and the version ledger. Each blob is
// readable independently so a restart can resume from a crash with no data
// loss beyond the in-flight cycle.
type SyncStateRepository interface {
	GetMeta(ctx context.Context) (models.SyncMeta, error)
	SetMeta(ctx context.Context, meta models.SyncMeta) error

	GetPending(ctx context.Context) (map[string]models.PendingChange, error)
	SetPending(ctx context.Context, pending map[string]models.PendingChange) error

	GetLedger(ctx context.Context) (map[string]models.RecordVersion, error)
	SetLedger(ctx context.Context, ledger map[string]models.RecordVersion) error
}

// CycleCommit bundles everything a successful sync cycle must persist
// together: merged record upserts, local removals, and the new values of
// all three sync-state blobs.
type CycleCommit struct {
	Upserts []models.Record
	Deletes []string
	Meta    models.SyncMeta
	Pending map[string]models.PendingChange
	Ledger  map[string]models.RecordVersion
}

// CycleCommitter applies a CycleCommit in a single database transaction so
// a crash mid-commit never leaves records and sync state disagreeing.
type CycleCommitter interface {
	CommitCycle(ctx context.Context, commit CycleCommit) error
}
