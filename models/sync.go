package models

import "time"

// ChangeAction is the kind of local mutation recorded in a PendingChange.
type ChangeAction string

const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// RecordVersion is one Version Ledger entry: per-record bookkeeping of the
// local/server identity linkage and the last server version the record was
// known to be at.
//
// Invariant: IsLocalOnly is true iff ServerID is nil. SyncVersion is zero
// for records that have never been synced.
type RecordVersion struct {
	LocalID         string     `json:"local_id"`
	ServerID        *int64     `json:"server_id,omitempty"`
	SyncVersion     int64      `json:"sync_version"`
	LocalUpdatedAt  time.Time  `json:"local_updated_at"`
	ServerUpdatedAt *time.Time `json:"server_updated_at,omitempty"`
	IsLocalOnly     bool       `json:"is_local_only"`
}

// PendingChange is a local mutation not yet acknowledged by the server.
// At most one entry exists per record id; the tracker coalesces successive
// mutations into it.
type PendingChange struct {
	ID     string       `json:"id"`
	Action ChangeAction `json:"action"`

	// Data is the full record payload for create and update actions,
	// nil for deletes.
	Data *Record `json:"data,omitempty"`

	// Timestamp is when the latest local mutation folded into this
	// entry happened. It is the local side of the last-writer-wins
	// comparison during merge.
	Timestamp time.Time `json:"timestamp"`
}

// SyncMeta is the persisted per-device session state of the sync engine.
// Created with zero values on first use, advanced after every successful
// cycle, reset to zero values on disconnect.
type SyncMeta struct {
	LastSyncVersion int64     `json:"last_sync_version"`
	LastSyncAt      time.Time `json:"last_sync_at"`
	ServerURL       string    `json:"server_url"`
}

// SyncState is the observable state of the sync engine, driven by the
// orchestrator's state machine and rendered by the status indicator.
type SyncState string

const (
	SyncStateIdle     SyncState = "idle"
	SyncStateChecking SyncState = "checking"
	SyncStateSyncing  SyncState = "syncing"
	SyncStateSuccess  SyncState = "success"
	SyncStateError    SyncState = "error"
	SyncStateOffline  SyncState = "offline"
)

// SyncReport summarizes one completed sync cycle for observability. It is
// never persisted.
type SyncReport struct {
	Pulled        int
	Created       int
	Updated       int
	Deleted       int
	Conflicts     []ConflictRecord
	ServerVersion int64
	SyncedAt      time.Time
}

// ConflictType names the three divergence shapes the merge engine detects.
type ConflictType string

const (
	ConflictUpdateUpdate ConflictType = "update_update"
	ConflictUpdateDelete ConflictType = "update_delete"
	ConflictDeleteUpdate ConflictType = "delete_update"
)

// ConflictResolution says which side's intent survived a conflict.
type ConflictResolution string

const (
	ResolvedByLocal  ConflictResolution = "local"
	ResolvedByServer ConflictResolution = "server"
)

// ConflictRecord is an ephemeral merge result describing one resolved
// conflict. It is surfaced to the caller for the current cycle only and
// never persisted.
type ConflictRecord struct {
	ID         string             `json:"id"`
	Local      *Record            `json:"local,omitempty"`
	Server     *ServerRecord      `json:"server,omitempty"`
	Type       ConflictType       `json:"type"`
	ResolvedBy ConflictResolution `json:"resolved_by"`
}

// MergeResult is the output of one diff-merge pass: the reconciled local
// record set, the outbound change lists for the push step, the conflicts
// resolved along the way, and the updated version ledger.
type MergeResult struct {
	Merged    []Record
	ToCreate  []PendingChange
	ToUpdate  []PendingChange
	ToDelete  []PendingChange
	Conflicts []ConflictRecord

	// Upserts and Removed are the local-store delta implied by the server
	// pass: records adopted, overwritten or restored from the server, and
	// ids of records the server tombstoned.
	Upserts []Record
	Removed []string

	// Ledger is the version ledger after applying server changes.
	Ledger map[string]RecordVersion

	// Dropped lists pending-change ids discarded by conflict
	// resolution; the orchestrator must not retry them.
	Dropped []string
}
