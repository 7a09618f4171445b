package service

import (
	"context"
	"time"

	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

// ChangeTracker records pending local mutations keyed by record id and keeps
// the version ledger in step. All methods are synchronous state transitions
// over in-memory maps; the tracker itself performs no I/O and cannot fail.
// Persistence of its state is the orchestrator's job.
type ChangeTracker interface {
	// TrackCreate inserts a create pending change for rec and a ledger
	// entry marked local-only with sync version zero.
	TrackCreate(rec models.Record)

	// TrackUpdate folds the non-zero fields of partial into the pending
	// change for id. A pending create absorbs the update and stays a
	// create; an existing pending update is merged in place; otherwise a
	// new update entry is inserted. The ledger's local timestamp is
	// refreshed either way.
	TrackUpdate(id string, partial models.Record)

	// TrackDelete records a delete intent for id. A still-unsynced
	// pending create is erased together with its ledger entry: the
	// server never learned of the record, so there is nothing to tell
	// it. A pending update is replaced by the delete.
	TrackDelete(id string)

	// Snapshot returns copies of the pending-change map and the version
	// ledger for a merge pass.
	Snapshot() (map[string]models.PendingChange, map[string]models.RecordVersion)

	// Replace swaps in a previously persisted state, used once at
	// startup to resume after a restart.
	Replace(pending map[string]models.PendingChange, ledger map[string]models.RecordVersion)

	// RemoveOlder deletes the pending changes for ids whose entry was
	// last touched at or before cutoff. An entry re-tracked after the
	// cutoff survives, so an edit made while a cycle was in flight is
	// never lost to that cycle's acknowledgement.
	RemoveOlder(ids []string, cutoff time.Time)

	// ApplyLedger overwrites the ledger entries present in entries and
	// deletes the ids listed in removed. Entries the sync cycle never
	// touched, such as a record created mid-cycle, are left alone.
	ApplyLedger(entries map[string]models.RecordVersion, removed []string)

	// PendingCount returns the number of pending changes, feeding the
	// status indicator.
	PendingCount() int
}

// MergeEngine reconciles one pulled batch of server changes against the
// local record set and the pending local mutations. Merge is a pure
// function: it mutates none of its inputs and two calls with equal inputs
// return equal results.
type MergeEngine interface {
	Merge(
		ctx context.Context,
		local []models.Record,
		serverChanges []models.ServerRecord,
		pending map[string]models.PendingChange,
		ledger map[string]models.RecordVersion,
	) (models.MergeResult, error)
}

// SyncOrchestrator drives the pull, merge, push, commit cycle and owns the
// one-sync-in-flight invariant. It is also the write path for tracked
// mutations so tracker state and its persisted blobs never drift apart.
type SyncOrchestrator interface {
	// Load restores the persisted sync state at startup.
	Load(ctx context.Context) error

	// Sync runs one full cycle. A call while another cycle is in flight
	// returns ErrSyncInFlight and does nothing else.
	Sync(ctx context.Context) (models.SyncReport, error)

	// FullSync bypasses the pending-change machinery entirely: it
	// fetches the complete server state, overwrites the local store and
	// rebuilds ledger and meta from scratch. Bootstrap and recovery
	// path.
	FullSync(ctx context.Context) (models.SyncReport, error)

	// Disconnect resets the persisted session meta to zero values, to be
	// called when the user detaches from the configured server.
	Disconnect(ctx context.Context) error

	// TrackCreate, TrackUpdate and TrackDelete forward to the change
	// tracker, persist its state and restart the auto-sync debounce.
	TrackCreate(ctx context.Context, rec models.Record) error
	TrackUpdate(ctx context.Context, id string, partial models.Record) error
	TrackDelete(ctx context.Context, id string) error

	// State returns the current engine state.
	State() models.SyncState

	// PendingCount returns the number of unacknowledged local changes.
	PendingCount() int

	// SetOnStateChange registers the callback invoked on every state
	// transition with the new state and the pending-change count.
	SetOnStateChange(fn func(state models.SyncState, pending int))

	// SetOnTrack registers the callback invoked after every tracked
	// mutation. The sync job uses it to restart its auto-sync debounce.
	SetOnTrack(fn func())

	// SetConnected feeds connectivity-probe results into the state
	// machine. The orchestrator flips to offline on a lost connection
	// and reports whether a reconnect sync should be scheduled.
	SetConnected(connected bool) (resync bool)
}

// ClientSyncJob owns the background timers of the sync engine: the periodic
// cycle, the connectivity probe with its reconnect debounce, and the
// edit-triggered auto-sync debounce.
type ClientSyncJob interface {
	// Start launches the background goroutine. Any previously running
	// job is stopped first.
	Start(ctx context.Context)

	// Stop signals the background goroutine to exit and blocks until it
	// has fully terminated. Safe to call when the job is not running.
	Stop()

	// NotifyChange restarts the auto-sync debounce timer. Called after
	// every tracked local mutation so a burst of edits collapses into a
	// single cycle.
	NotifyChange()
}

// ClientRecordService is the CRUD surface the application shell edits
// records through. Every mutation is applied to the local store first and
// handed to the change tracker; the user is never blocked on the network.
type ClientRecordService interface {
	// Create validates and stores a new record locally, assigns it a
	// client id, and tracks it for the next sync cycle.
	Create(ctx context.Context, rec models.Record) (models.Record, error)

	// GetAll returns every live (non-tombstoned) local record.
	GetAll(ctx context.Context) ([]models.Record, error)

	// Get returns the record with the given client id.
	Get(ctx context.Context, id string) (models.Record, error)

	// Update merges the non-zero fields of partial into the stored
	// record, persists it locally and tracks the mutation.
	Update(ctx context.Context, id string, partial models.Record) (models.Record, error)

	// Delete removes the record locally and tracks the deletion.
	Delete(ctx context.Context, id string) error

	// Summary totals the live records: income, expense and their balance.
	Summary(ctx context.Context) (models.Summary, error)
}
