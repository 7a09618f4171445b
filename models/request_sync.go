package models

// PushRequest is the payload of POST /api/sync/push. The three lists are
// applied within one logical transaction per caller.
type PushRequest struct {
	// Created holds records the client created locally and has never
	// synced. Identity is the client-assigned ID; pushes are idempotent
	// by (user, client id).
	Created []Record `json:"created"`

	// Updated holds partial mutations of records that already exist
	// server-side, each carrying the sync version the client last saw
	// for optimistic concurrency.
	Updated []RecordUpdate `json:"updated"`

	// Deleted holds server ids to tombstone. Ids that do not exist or
	// do not belong to the caller are silently ignored.
	Deleted []int64 `json:"deleted"`
}

// Empty reports whether the request carries no mutations at all.
func (r PushRequest) Empty() bool {
	return len(r.Created) == 0 && len(r.Updated) == 0 && len(r.Deleted) == 0
}
