package models

// PullResponse answers GET /api/sync/pull: every record (tombstones
// included) whose sync version is greater than the requested one, ordered
// by sync version ascending, plus the current global max for the user.
type PullResponse struct {
	ServerVersion int64          `json:"server_version"`
	Changes       []ServerRecord `json:"changes"`
}

// PushConflict reports one rejected mutation from a push batch.
type PushConflict struct {
	ClientID string `json:"client_id,omitempty"`
	ServerID int64  `json:"server_id,omitempty"`
	Type     string `json:"type"`
	Reason   string `json:"reason"`
}

// Conflict reasons reported in PushConflict.Reason.
const (
	ReasonVersionMismatch = "version_mismatch"
	ReasonInvalidPayload  = "invalid_payload"
)

// AppliedChange acknowledges one committed mutation from a push batch. It
// carries the identity linkage the client needs to keep its version ledger
// current: the server-assigned id and the sync version the mutation was
// committed at. Without it a client could never learn the server id of a
// record it created itself, because its pull cursor advances past the
// versions its own push consumed.
type AppliedChange struct {
	ClientID    string       `json:"client_id"`
	ServerID    int64        `json:"server_id"`
	Action      ChangeAction `json:"action"`
	SyncVersion int64        `json:"sync_version"`
}

// PushResponse answers POST /api/sync/push with the per-list commit counts,
// the version counter value after the batch, the identity acknowledgements
// for every committed mutation, and any per-item conflicts.
type PushResponse struct {
	ServerVersion int64           `json:"server_version"`
	Created       int             `json:"created"`
	Updated       int             `json:"updated"`
	Deleted       int             `json:"deleted"`
	Applied       []AppliedChange `json:"applied,omitempty"`
	Conflicts     []PushConflict  `json:"conflicts"`
}

// FullSyncResponse answers GET /api/sync/full: the complete authoritative
// record set used by the bootstrap/recovery path.
type FullSyncResponse struct {
	ServerVersion int64          `json:"server_version"`
	Records       []ServerRecord `json:"records"`
}

// PingResponse answers GET /discovery/ping and identifies the service
// before any sync call is made against it.
type PingResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
}
